// Package broker is an in-process topic pub/sub.
package broker

import "sync"

// Broker fans values out to subscribers of a topic. Slow subscribers
// miss values rather than block publishers.
type Broker[T any] struct {
	mu   sync.RWMutex
	subs map[string]map[chan T]struct{}
}

func New[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[string]map[chan T]struct{}),
	}
}

// Subscribe returns a channel that receives values published to topic.
func (b *Broker[T]) Subscribe(topic string) chan T {
	ch := make(chan T, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan T]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch from topic and closes it.
func (b *Broker[T]) Unsubscribe(topic string, ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[topic][ch]; !ok {
		return
	}
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	close(ch)
}

// Publish sends v to every subscriber of topic.
func (b *Broker[T]) Publish(topic string, v T) {
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- v:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Subscribers reports how many channels listen on topic.
func (b *Broker[T]) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
