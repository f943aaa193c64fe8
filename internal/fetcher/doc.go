// Package fetcher implements the foreground workflow stage that acquires
// audio for a queue item: remote sources go through yt-dlp, local files are
// validated and copied into staging. The stage probes the staged audio,
// fingerprints a decoded head for duplicate detection, and records source
// metadata on the item.
package fetcher
