package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps the server-side half of a login: session id -> user id.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (id string, expires time.Time, err error)
	Lookup(ctx context.Context, id string) (userID int64, expires time.Time, ok bool, err error)
	Destroy(ctx context.Context, id string) error
	DestroyUser(ctx context.Context, userID int64) error
}

// Manager stores sessions in the sessions table next to the blog data.
type Manager struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

func NewManager(db *sql.DB, maxAge time.Duration) *Manager {
	return &Manager{db: db, maxAge: maxAge, now: time.Now}
}

func (m *Manager) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	id := uuid.New().String()
	expires := m.now().Add(m.maxAge).UTC()

	_, err := m.db.ExecContext(ctx, `INSERT INTO sessions(id,user_id,expires_at) VALUES(?,?,?)`, id, userID, expires)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	return id, expires, nil
}

// Lookup returns the session's user and expiry. Expired sessions are
// removed and reported as missing.
func (m *Manager) Lookup(ctx context.Context, id string) (int64, time.Time, bool, error) {
	if id == "" {
		return 0, time.Time{}, false, nil
	}
	var uid int64
	var exp time.Time
	err := m.db.QueryRowContext(ctx, `SELECT user_id, expires_at FROM sessions WHERE id = ?`, id).Scan(&uid, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("lookup session: %w", err)
	}
	if m.now().After(exp) {
		return 0, time.Time{}, false, m.Destroy(ctx, id)
	}
	return uid, exp, true, nil
}

func (m *Manager) Destroy(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (m *Manager) DestroyUser(ctx context.Context, userID int64) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("destroy sessions of user %d: %w", userID, err)
	}
	return nil
}
