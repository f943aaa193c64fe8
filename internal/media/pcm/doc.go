// Package pcm decodes audio sources into normalized float64 sample buffers.
//
// Decoding shells out to ffmpeg for broad format coverage, with a native
// go-mp3 path for plain MP3 files. All buffers are interleaved with samples
// scaled to [-1, 1], which is the form the analysis stages expect.
package pcm
