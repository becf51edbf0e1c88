// Package observer is a small typed fan-out: a Subject hands every published
// event to each attached observer in attach order.
package observer

import (
	"context"
	"sync"
)

// Observer receives published events of type T.
type Observer[T any] interface {
	Notify(context.Context, T) error
}

// ObserverFunc adapts a plain function into an Observer.
//
//revive:disable-next-line:exported
type ObserverFunc[T any] func(context.Context, T) error

func (f ObserverFunc[T]) Notify(ctx context.Context, evt T) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

// Publisher publishes events to downstream observers.
type Publisher[T any] interface {
	Publish(context.Context, T)
}

// ErrorHandler is told which observer failed.
type ErrorHandler func(name string, err error)

type entry[T any] struct {
	name string
	obs  Observer[T]
}

// Subject keeps named observers. Names are unique; attaching an existing
// name replaces that observer in place.
type Subject[T any] struct {
	mu      sync.RWMutex
	entries []entry[T]
	onError ErrorHandler
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Publish notifies every observer. A failing observer does not stop the rest.
func (s *Subject[T]) Publish(ctx context.Context, evt T) {
	if s == nil {
		return
	}

	s.mu.RLock()
	entries := append([]entry[T](nil), s.entries...)
	onError := s.onError
	s.mu.RUnlock()

	for _, e := range entries {
		if err := e.obs.Notify(ctx, evt); err != nil && onError != nil {
			onError(e.name, err)
		}
	}
}

// Attach registers obs under name. Nil observers are ignored.
func (s *Subject[T]) Attach(name string, obs Observer[T]) {
	if s == nil || obs == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].name == name {
			s.entries[i].obs = obs
			return
		}
	}
	s.entries = append(s.entries, entry[T]{name: name, obs: obs})
}

// Detach removes the observer registered under name and reports whether it
// was present.
func (s *Subject[T]) Detach(name string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].name == name {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Names lists attached observers in notification order.
func (s *Subject[T]) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.name)
	}
	return out
}

func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Subject[T]) SetErrorHandler(fn ErrorHandler) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}
