package dive

import (
	"sync"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/types"
)

// Status holds the most recent reading and tissue snapshot of the running
// session for readers on other goroutines.
type Status struct {
	mu      sync.RWMutex
	latest  types.Reading
	tissues []deco.Tissue
	valid   bool
	running bool
}

// NewStatus returns an empty status holder.
func NewStatus() *Status {
	return &Status{}
}

// Latest returns the last published reading. ok is false until the first
// sample has been processed.
func (s *Status) Latest() (r types.Reading, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.valid
}

// Tissues returns a copy of the last tissue snapshot.
func (s *Status) Tissues() []deco.Tissue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]deco.Tissue, len(s.tissues))
	copy(out, s.tissues)
	return out
}

// Running reports whether a session loop is currently sampling.
func (s *Status) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Status) setRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

func (s *Status) update(r types.Reading, tissues []deco.Tissue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = r
	s.tissues = tissues
	s.valid = true
}
