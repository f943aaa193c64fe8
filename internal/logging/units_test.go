package logging

import (
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		value int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{-42, "-42 B"},
	}
	for _, tc := range cases {
		if got := FormatBytes(tc.value); got != tc.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestFormatDurationHuman(t *testing.T) {
	cases := []struct {
		value time.Duration
		want  string
	}{
		{250 * time.Millisecond, "250ms"},
		{3500 * time.Millisecond, "3.5s"},
		{95 * time.Second, "1m35s"},
		{3*time.Hour + 7*time.Minute, "3h07m"},
		{-95 * time.Second, "1m35s"},
	}
	for _, tc := range cases {
		if got := formatDurationHuman(tc.value); got != tc.want {
			t.Errorf("formatDurationHuman(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
