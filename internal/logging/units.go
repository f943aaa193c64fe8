package logging

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count in binary units (KiB, MiB) for display.
func FormatBytes(value int64) string {
	if value < 0 {
		return fmt.Sprintf("%d B", value)
	}
	return humanize.IBytes(uint64(value))
}

func formatDurationHuman(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d >= time.Hour:
		hours := int(d / time.Hour)
		minutes := int(d % time.Hour / time.Minute)
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	case d >= time.Minute:
		minutes := int(d / time.Minute)
		seconds := int(d % time.Minute / time.Second)
		return fmt.Sprintf("%dm%02ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
