package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errNoAdminSession = errors.New("no valid admin session")

var errNoAdmin = errors.New("admin not found")

type adminSession struct {
	AdminID string
	Email   string
}

// AdminStore holds operator accounts and their login sessions.
type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (adminID, passwordHash string, err error)
	CreateAdminSession(ctx context.Context, adminID string) (sessionID string, err error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)
}

// SQLAdminStore keeps admins in the migrated SQLite schema so sessions
// survive restarts.
type SQLAdminStore struct {
	db *sql.DB
}

func NewSQLAdminStore(db *sql.DB) *SQLAdminStore {
	return &SQLAdminStore{db: db}
}

// Seed creates the admin or replaces its password hash.
func (s *SQLAdminStore) Seed(ctx context.Context, email, passwordHash string) error {
	email = normalizeEmail(email)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET password_hash = excluded.password_hash
	`, uuid.NewString(), email, passwordHash)
	if err != nil {
		return fmt.Errorf("seeding admin %s: %w", email, err)
	}
	return nil
}

func (s *SQLAdminStore) AdminByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM admins WHERE email = ?`, normalizeEmail(email),
	).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", errNoAdmin
	}
	return id, hash, err
}

func (s *SQLAdminStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, admin_id, created_at) VALUES (?, ?, ?)`,
		id, adminID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("creating admin session: %w", err)
	}
	return id, nil
}

func (s *SQLAdminStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLAdminStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	var sess adminSession
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.AdminID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, errNoAdminSession
	}
	return sess, err
}

// MemoryAdminStore serves the single configured admin when no SQLite
// database is in use. Sessions end with the process.
type MemoryAdminStore struct {
	id    string
	email string
	hash  string

	mu       sync.Mutex
	sessions map[string]struct{}
}

func NewMemoryAdminStore(email, passwordHash string) *MemoryAdminStore {
	return &MemoryAdminStore{
		id:       uuid.NewString(),
		email:    normalizeEmail(email),
		hash:     passwordHash,
		sessions: make(map[string]struct{}),
	}
}

func (s *MemoryAdminStore) AdminByEmail(_ context.Context, email string) (string, string, error) {
	if normalizeEmail(email) != s.email {
		return "", "", errNoAdmin
	}
	return s.id, s.hash, nil
}

func (s *MemoryAdminStore) CreateAdminSession(_ context.Context, adminID string) (string, error) {
	if adminID != s.id {
		return "", errNoAdmin
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = struct{}{}
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryAdminStore) DeleteAdminSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryAdminStore) AdminFromSession(_ context.Context, sessionID string) (adminSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return adminSession{}, errNoAdminSession
	}
	return adminSession{AdminID: s.id, Email: s.email}, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
