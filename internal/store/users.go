package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"blog/internal/models"
)

const minFieldLen = 4

// bcrypt refuses longer input.
const maxPasswordBytes = 72

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// Register validates the input and creates the user with a bcrypt hash of
// the password. A concurrent registration that slips past the email check is
// stopped by the unique indexes and reported the same way.
func (s *Store) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	switch {
	case exists > 0:
		return nil, duplicate("email", "email taken")
	case utf8.RuneCountInString(email) < minFieldLen:
		return nil, invalid("email", "email must be at least 4 characters")
	case utf8.RuneCountInString(username) < minFieldLen:
		return nil, invalid("username", "username must be at least 4 characters")
	case in.Password != in.Confirm:
		return nil, invalid("password2", "passwords must match")
	case utf8.RuneCountInString(in.Password) < minFieldLen:
		return nil, invalid("password", "password must be at least 4 characters")
	case len(in.Password) > maxPasswordBytes:
		return nil, invalid("password", "password must be at most 72 bytes")
	}

	hash, err := models.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash: %w", err)
	}

	u := &models.User{Username: username, Email: email, PasswordHash: hash, CreatedAt: s.now()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(email,username,password_hash,created_at) VALUES(?,?,?,?)`,
		u.Email, u.Username, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if col, ok := uniqueViolation(err); ok {
			if col == "users.username" {
				return nil, duplicate("username", "username taken")
			}
			return nil, duplicate("email", "email taken")
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return u, nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// equalizer returns a throwaway hash so a lookup miss costs a bcrypt compare
// just like a wrong password does.
func equalizer() string {
	dummyOnce.Do(func() {
		dummyHash, _ = models.HashPassword("not-a-real-password")
	})
	return dummyHash
}

// Authenticate looks the user up by username and checks the password. The
// error is ErrInvalidCredentials whether the user is missing or the password
// is wrong.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		models.CheckPassword(password, equalizer())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !u.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.userBy(ctx, s.db, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userBy(ctx, s.db, "username", username)
}

// DeleteUser removes the user. Their posts (with those posts' comments, likes
// and category links), their own comments, likes and sessions go with them
// through ON DELETE CASCADE.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// userBy accepts only the column names used in this file.
func (s *Store) userBy(ctx context.Context, q querier, col string, v any) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE `+col+` = ?`, v).
		Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
