package logging

import "time"

const consoleTimeLayout = "2006-01-02 15:04:05"

// formatTimestamp renders a timestamp in local time for console output.
// Zero times render empty.
func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}
