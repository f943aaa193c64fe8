// Package ingest acquires audio sources: yt-dlp downloads of reference
// material with metadata capture, and validated imports of local files into
// the staging workspace.
package ingest
