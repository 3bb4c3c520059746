// Package store holds the shared state between the admin and display
// sides: the competition document and the ephemeral trigger records.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

var ErrNoTrigger = errors.New("no trigger stored")

// StateStore is read by the display and written by the ledger.
type StateStore interface {
	scoreboard.Store
	ReadTrigger(ctx context.Context, key string) ([]byte, error)
}

// Event announces a write or delete of a key.
type Event struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Notifier pushes Events so readers need not poll. The returned func
// ends the subscription and closes the channel.
type Notifier interface {
	Subscribe() (<-chan Event, func())
}

// Backend is a complete store implementation.
type Backend interface {
	StateStore
	Notifier
	PutRaw(ctx context.Context, key string, raw []byte) error
	Check(ctx context.Context) error
	Close() error
}

const eventsTopic = "store"

// rawKV is the byte-level surface each backend provides.
type rawKV interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, raw []byte) error
	del(ctx context.Context, key string) error
}

var errMissing = errors.New("key missing")

// docs layers the typed state and trigger operations over a rawKV.
type docs struct {
	kv     rawKV
	notify func(ctx context.Context, ev Event)
}

func (d docs) ReadState(ctx context.Context) (scoreboard.State, error) {
	raw, err := d.kv.get(ctx, scoreboard.StateKey)
	if errors.Is(err, errMissing) {
		return scoreboard.State{}, scoreboard.ErrNoState
	}
	if err != nil {
		return scoreboard.State{}, fmt.Errorf("reading %s: %w", scoreboard.StateKey, err)
	}
	return scoreboard.DecodeState(raw)
}

func (d docs) WriteState(ctx context.Context, s scoreboard.State) error {
	raw, err := scoreboard.EncodeState(s)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return d.PutRaw(ctx, scoreboard.StateKey, raw)
}

func (d docs) ReadTrigger(ctx context.Context, key string) ([]byte, error) {
	raw, err := d.kv.get(ctx, key)
	if errors.Is(err, errMissing) {
		return nil, ErrNoTrigger
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return raw, nil
}

func (d docs) WriteTrigger(ctx context.Context, key string, raw []byte) error {
	return d.PutRaw(ctx, key, raw)
}

func (d docs) DeleteTrigger(ctx context.Context, key string) error {
	if err := d.kv.del(ctx, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	d.notify(ctx, Event{Key: key, Deleted: true})
	return nil
}

// PutRaw stores bytes as-is. Readers validate on decode.
func (d docs) PutRaw(ctx context.Context, key string, raw []byte) error {
	if err := d.kv.put(ctx, key, raw); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	d.notify(ctx, Event{Key: key})
	return nil
}
