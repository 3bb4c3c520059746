package store

import (
	"context"
	"slices"
	"sync"

	"github.com/playperu/scoreboard/internal/broker"
)

// Memory keeps documents in process. Useful for a single-binary setup
// and for tests.
type Memory struct {
	docs

	mu     sync.RWMutex
	m      map[string][]byte
	events *broker.Broker[Event]
}

func NewMemory() *Memory {
	s := &Memory{
		m:      make(map[string][]byte),
		events: broker.New[Event](),
	}
	s.docs = docs{kv: s, notify: func(_ context.Context, ev Event) {
		s.events.Publish(eventsTopic, ev)
	}}
	return s
}

func (s *Memory) get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.m[key]
	if !ok {
		return nil, errMissing
	}
	return slices.Clone(raw), nil
}

func (s *Memory) put(_ context.Context, key string, raw []byte) error {
	s.mu.Lock()
	s.m[key] = slices.Clone(raw)
	s.mu.Unlock()
	return nil
}

func (s *Memory) del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Subscribe() (<-chan Event, func()) {
	ch := s.events.Subscribe(eventsTopic)
	return ch, func() { s.events.Unsubscribe(eventsTopic, ch) }
}

func (s *Memory) Check(context.Context) error { return nil }

func (s *Memory) Close() error { return nil }
