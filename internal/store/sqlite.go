package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/playperu/scoreboard/internal/broker"
)

// SQLite stores documents as JSONB rows in the kv table created by the
// migrations package. Notifications are in-process only.
type SQLite struct {
	docs

	db     *sql.DB
	events *broker.Broker[Event]
}

func NewSQLite(db *sql.DB) *SQLite {
	s := &SQLite{db: db, events: broker.New[Event]()}
	s.docs = docs{kv: s, notify: func(_ context.Context, ev Event) {
		s.events.Publish(eventsTopic, ev)
	}}
	return s
}

func (s *SQLite) get(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM kv WHERE key = ?`, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errMissing
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *SQLite) put(ctx context.Context, key string, raw []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, data, updated_at) VALUES (?, jsonb(?), ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLite) del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *SQLite) Subscribe() (<-chan Event, func()) {
	ch := s.events.Subscribe(eventsTopic)
	return ch, func() { s.events.Unsubscribe(eventsTopic, ch) }
}

func (s *SQLite) Check(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }
