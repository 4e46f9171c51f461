package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"blog/internal/models"
	"blog/internal/store"
)

// Users is the part of the store the identity layer needs.
type Users interface {
	Register(ctx context.Context, in store.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type Service struct {
	users    Users
	sessions SessionStore
	logger   *zap.SugaredLogger
}

func NewService(users Users, sessions SessionStore, logger *zap.SugaredLogger) *Service {
	return &Service{users: users, sessions: sessions, logger: logger}
}

// Register creates the account and logs it in.
func (s *Service) Register(ctx context.Context, in store.RegisterInput) (*Session, error) {
	u, err := s.users.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.login(ctx, u)
}

// Login checks the credentials and starts a fresh session. Earlier sessions
// of the same user are dropped.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.DestroyUser(ctx, u.Identity()); err != nil {
		s.logger.Warnw("drop old sessions", "user_id", u.ID, "err", err)
	}
	return s.login(ctx, u)
}

func (s *Service) login(ctx context.Context, u *models.User) (*Session, error) {
	id, exp, err := s.sessions.Create(ctx, u.Identity())
	if err != nil {
		return nil, err
	}
	s.logger.Infow("login", "user", u.DisplayName(), "user_id", u.Identity())
	return &Session{ID: id, User: u, ExpiresAt: exp}, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, sessionID)
}

// DeleteAccount removes the user with everything they own and ends all of
// their sessions.
func (s *Service) DeleteAccount(ctx context.Context, sess *Session) error {
	if sess == nil || sess.User == nil {
		return store.ErrNotFound
	}
	if err := s.users.DeleteUser(ctx, sess.User.ID); err != nil {
		return err
	}
	if err := s.sessions.DestroyUser(ctx, sess.User.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.Infow("account deleted", "user_id", sess.User.ID)
	return nil
}

// Resolve turns a session id into a Session. A missing, expired or orphaned
// session resolves to nil without error.
func (s *Service) Resolve(ctx context.Context, sessionID string) (*Session, error) {
	uid, exp, ok, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil || !ok {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.sessions.Destroy(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return &Session{ID: sessionID, User: u, ExpiresAt: exp}, nil
}
