package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps documents under prefix+key and pushes events over Redis
// pub/sub so several processes can share one board.
type Redis struct {
	docs

	client *redis.Client
	prefix string
}

func NewRedis(ctx context.Context, client *redis.Client, prefix string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s := &Redis{client: client, prefix: prefix}
	s.docs = docs{kv: s, notify: s.publish}
	return s, nil
}

func (s *Redis) channel() string { return s.prefix + "events" }

func (s *Redis) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errMissing
	}
	return raw, err
}

func (s *Redis) put(ctx context.Context, key string, raw []byte) error {
	return s.client.Set(ctx, s.prefix+key, raw, 0).Err()
}

func (s *Redis) del(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *Redis) publish(ctx context.Context, ev Event) {
	data, _ := json.Marshal(ev)
	// Best effort; pollers pick the change up on their next tick.
	_ = s.client.Publish(ctx, s.channel(), data).Err()
}

func (s *Redis) Subscribe() (<-chan Event, func()) {
	ctx := context.Background()
	ps := s.client.Subscribe(ctx, s.channel())
	// Wait for the subscription confirmation so writes made right after
	// Subscribe returns are not missed.
	_, _ = ps.Receive(ctx)
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()
	return out, func() { ps.Close() }
}

func (s *Redis) Check(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Redis) Close() error { return s.client.Close() }
