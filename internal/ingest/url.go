package ingest

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes known YouTube URL shapes to a stable
// watch?v= form and returns the extracted video ID. Unknown hosts pass
// through untouched with an empty ID, so non-YouTube sources still work
// wherever yt-dlp supports them.
func NormalizeURL(raw string) (canonical, videoID string) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw, ""
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if parsed.Path == "/watch" {
			videoID = parsed.Query().Get("v")
		} else if id, ok := strings.CutPrefix(parsed.Path, "/shorts/"); ok {
			videoID = strings.Trim(id, "/")
		} else if id, ok := strings.CutPrefix(parsed.Path, "/live/"); ok {
			videoID = strings.Trim(id, "/")
		}
	case "youtu.be":
		videoID = strings.Trim(parsed.Path, "/")
	}

	if videoID == "" {
		return raw, ""
	}
	return "https://www.youtube.com/watch?v=" + videoID, videoID
}
