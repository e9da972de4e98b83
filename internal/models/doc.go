// Package models defines core data structures for chunks, requests, and search results.
package models

// Doc is one indexed chunk: a sliding window of a source file's text.
// ID is a process-local numeric string, assigned in discovery order during a
// cold build and continuing past the prior maximum on incremental updates.
// FileSize and LineCount describe the whole source file and are duplicated on
// every chunk of that file; all chunks sharing a Path carry identical values.
type Doc struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Chunk     int       `json:"chunk"`
	Text      string    `json:"text"`
	FileSize  int64     `json:"fileSize"`
	LineCount int       `json:"lineCount"`
	Embedding []float32 `json:"-"`
}
