package index

import "sync"

// Status tracks build progress. It is mutated only by the build worker and
// read concurrently by status callers. Ready is one-way: once set it is never
// unset, including across reindex passes.
type Status struct {
	mu              sync.Mutex
	filesDiscovered int
	chunksTotal     int
	chunksEmbedded  int
	ready           bool
}

// StatusSnapshot is a point-in-time copy of the progress counters.
type StatusSnapshot struct {
	FilesDiscovered int  `json:"filesDiscovered"`
	ChunksTotal     int  `json:"chunksTotal"`
	ChunksEmbedded  int  `json:"chunksEmbedded"`
	Ready           bool `json:"ready"`
}

// NewStatus returns an empty status handle.
func NewStatus() *Status {
	return &Status{}
}

func (s *Status) setDiscovered(n int) {
	s.mu.Lock()
	s.filesDiscovered = n
	s.mu.Unlock()
}

func (s *Status) setChunksTotal(n int) {
	s.mu.Lock()
	s.chunksTotal = n
	s.mu.Unlock()
}

func (s *Status) setEmbedded(n int) {
	s.mu.Lock()
	s.chunksEmbedded = n
	s.mu.Unlock()
}

func (s *Status) addEmbedded(n int) {
	s.mu.Lock()
	s.chunksEmbedded += n
	s.mu.Unlock()
}

func (s *Status) markReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSnapshot{
		FilesDiscovered: s.filesDiscovered,
		ChunksTotal:     s.chunksTotal,
		ChunksEmbedded:  s.chunksEmbedded,
		Ready:           s.ready,
	}
}
