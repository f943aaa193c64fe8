package textutil

import "testing"

func TestTitleFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/music/demos/my-track.wav", "My Track"},
		{"warehouse_mix.2024.mp3", "Warehouse Mix 2024"},
		{"already titled.flac", "Already Titled"},
		{"/incoming/deep--house__set.mp3", "Deep House Set"},
	}
	for _, tc := range cases {
		if got := TitleFromPath(tc.path, "Manual Import"); got != tc.want {
			t.Fatalf("TitleFromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestTitleFromPathFallback(t *testing.T) {
	if got := TitleFromPath("", "Manual Import"); got != "Manual Import" {
		t.Fatalf("empty path = %q", got)
	}
	if got := TitleFromPath("/music/???.mp3", "Manual Import"); got != "Manual Import" {
		t.Fatalf("unusable path = %q", got)
	}
}
