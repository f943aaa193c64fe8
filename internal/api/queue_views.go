package api

import (
	"sort"
	"time"
)

// SortQueueItemsNewestFirst orders items by CreatedAt descending with ID
// descending as the tiebreak, returning a new slice.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := append([]QueueItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseQueueTime parses a queue timestamp for display formatting.
func ParseQueueTime(value string) time.Time {
	return parseQueueTime(value)
}
