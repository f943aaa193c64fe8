// Package ffprobe inspects media containers by shelling out to ffprobe and
// parsing its JSON output. Fetch and analysis stages use it to validate audio
// sources and read container metadata before decoding.
package ffprobe
