package auth

import (
	"context"
	"net/http"
	"time"

	"blog/internal/models"
)

const sessionCookie = "blog_session"

// Session is the logged-in identity for one request. It is passed around
// explicitly in the request context; there is no process-wide current user.
type Session struct {
	ID        string
	User      *models.User
	ExpiresAt time.Time
}

type ctxKey int

const sessionCtxKey ctxKey = iota

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// FromContext returns the request's session, or nil for a guest.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey).(*Session)
	return s
}

// CurrentUser returns the logged-in user, or nil for a guest.
func CurrentUser(ctx context.Context) *models.User {
	if s := FromContext(ctx); s != nil {
		return s.User
	}
	return nil
}

func SetCookie(w http.ResponseWriter, s *Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.ExpiresAt,
	})
}

func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// SessionID reads the session cookie, "" when absent.
func SessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
