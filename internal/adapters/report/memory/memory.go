// Package memory keeps the most recent cycle reports in memory.
package memory

import (
	"context"
	"sync"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/services/report"
)

const DefaultCapacity = 100

// Store is a ring of the last reports, oldest first.
type Store struct {
	mu   sync.RWMutex
	buf  []report.Event
	next int
	full bool
}

var _ report.Observer = (*Store)(nil)

// New returns a store holding up to capacity reports.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{buf: make([]report.Event, capacity)}
}

// Notify records evt, evicting the oldest report once full.
func (s *Store) Notify(_ context.Context, evt report.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = evt
	s.next = (s.next + 1) % len(s.buf)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Latest returns the newest report or domain.ErrNotFound.
func (s *Store) Latest() (report.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.full && s.next == 0 {
		return report.Event{}, domain.ErrNotFound
	}
	i := s.next - 1
	if i < 0 {
		i = len(s.buf) - 1
	}
	return s.buf[i], nil
}

// History returns up to limit reports, newest first. limit <= 0 means all.
func (s *Store) History(limit int) []report.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]report.Event, 0, limit)
	for k := 1; k <= limit; k++ {
		i := (s.next - k + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[i])
	}
	return out
}
