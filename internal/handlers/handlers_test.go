package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blog/internal/auth"
	"blog/internal/db"
	"blog/internal/metrics"
	"blog/internal/store"
)

type testApp struct {
	srv   *httptest.Server
	store *store.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dbc, err := db.Open(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbc.Close() })
	require.NoError(t, db.Migrate(context.Background(), dbc))

	logger := zap.NewNop().Sugar()
	st := store.New(dbc)
	svc := auth.NewService(st, auth.NewManager(dbc, time.Hour), logger)
	h := New(st, svc, metrics.New(), logger, Options{})

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, store: st}
}

// client keeps cookies but does not follow redirects, so tests can look at
// each Location.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(a.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (a *testApp) post(t *testing.T, c *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(a.srv.URL+path, form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (a *testApp) register(t *testing.T, c *http.Client, name string) {
	t.Helper()
	resp := a.post(t, c, "/register", url.Values{
		"username": {name}, "email": {name + "@x.com"}, "password": {"pass1"}, "password2": {"pass1"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func locationID(t *testing.T, resp *http.Response) int64 {
	t.Helper()
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/posts/"), "location %q", loc)
	id, err := strconv.ParseInt(strings.TrimPrefix(loc, "/posts/"), 10, 64)
	require.NoError(t, err)
	return id
}

func TestRegisterLogsIn(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	app.register(t, c, "alice")

	resp, body := app.get(t, c, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome alice")

	// the flash is shown once
	_, body = app.get(t, c, "/")
	assert.NotContains(t, body, "Welcome alice")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	app.register(t, app.client(t), "alice")

	c := app.client(t)
	resp := app.post(t, c, "/register", url.Values{
		"username": {"another"}, "email": {"alice@x.com"}, "password": {"pass1"}, "password2": {"pass1"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/register", resp.Header.Get("Location"))

	_, body := app.get(t, c, "/register")
	assert.Contains(t, body, "email taken")
}

func TestLoginErrorsAreIndistinguishable(t *testing.T) {
	app := newTestApp(t)
	app.register(t, app.client(t), "alice")

	bodies := make([]string, 0, 2)
	for _, form := range []url.Values{
		{"username": {"alice"}, "password": {"wrong"}},
		{"username": {"nobody"}, "password": {"pass1"}},
	} {
		c := app.client(t)
		resp := app.post(t, c, "/login", form)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
		_, body := app.get(t, c, "/login")
		bodies = append(bodies, body)
	}
	assert.Contains(t, bodies[0], "Invalid username or password")
	assert.Equal(t, bodies[0], bodies[1])

	c := app.client(t)
	resp := app.post(t, c, "/login", url.Values{"username": {"alice"}, "password": {"pass1"}})
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp, _ = app.get(t, c, "/user")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuestIsSentToLogin(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	for _, path := range []string{"/", "/posts", "/user", "/posts/new"} {
		resp, _ := app.get(t, c, path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
	resp := app.post(t, c, "/posts/1/like", nil)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "alice")
	ctx := context.Background()

	resp := app.post(t, c, "/posts/new", url.Values{"title": {"Hi"}, "text": {"World"}, "category": {"tech"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	id := locationID(t, resp)

	p, err := app.store.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, p.Categories)

	// blank comment is a no-op but still returns to the post
	resp = app.post(t, c, "/posts/"+strconv.FormatInt(id, 10)+"/comments", url.Values{"content": {"  "}})
	assert.Equal(t, "/posts/"+strconv.FormatInt(id, 10), resp.Header.Get("Location"))
	comments, err := app.store.ListComments(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, comments)

	app.post(t, c, "/posts/"+strconv.FormatInt(id, 10)+"/comments", url.Values{"content": {"first!"}})

	for i := 0; i < 2; i++ {
		resp = app.post(t, c, "/posts/"+strconv.FormatInt(id, 10)+"/like", url.Values{"next": {"/posts"}})
		assert.Equal(t, "/posts", resp.Header.Get("Location"))
	}
	p, err = app.store.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Likes)

	resp = app.post(t, c, "/posts/"+strconv.FormatInt(id, 10)+"/edit",
		url.Values{"title": {"Hello"}, "text": {"Again"}, "category": {"News"}})
	assert.Equal(t, "/posts/"+strconv.FormatInt(id, 10), resp.Header.Get("Location"))
	app.post(t, c, "/posts/"+strconv.FormatInt(id, 10)+"/edit",
		url.Values{"title": {"Hello"}, "text": {"Again"}, "category": {"General"}})

	resp, body := app.get(t, c, "/posts/"+strconv.FormatInt(id, 10))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hello")
	assert.Contains(t, body, "General, News")
	assert.Contains(t, body, "first!")
	assert.Contains(t, body, "1 likes")

	resp = app.post(t, c, "/posts/"+strconv.FormatInt(id, 10)+"/delete", nil)
	assert.Equal(t, "/posts", resp.Header.Get("Location"))

	// stale id goes back to the listing with a message
	resp, _ = app.get(t, c, "/posts/"+strconv.FormatInt(id, 10))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/posts", resp.Header.Get("Location"))
	_, body = app.get(t, c, "/posts")
	assert.Contains(t, body, "That item no longer exists")
}

func TestCreatePostValidationRedirectsBack(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "alice")

	resp := app.post(t, c, "/posts/new", url.Values{"title": {""}, "text": {"World"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/posts/new", resp.Header.Get("Location"))
	_, body := app.get(t, c, "/posts/new")
	assert.Contains(t, body, "title is required")
}

func TestDeleteComment(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "alice")
	ctx := context.Background()

	id := locationID(t, app.post(t, c, "/posts/new", url.Values{"title": {"Hi"}, "text": {"World"}}))
	app.post(t, c, "/posts/"+strconv.FormatInt(id, 10)+"/comments", url.Values{"content": {"bye"}})
	comments, err := app.store.ListComments(ctx, id)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	resp := app.post(t, c, "/comments/"+strconv.FormatInt(comments[0].ID, 10)+"/delete", nil)
	assert.Equal(t, "/posts/"+strconv.FormatInt(id, 10), resp.Header.Get("Location"))

	resp = app.post(t, c, "/comments/"+strconv.FormatInt(comments[0].ID, 10)+"/delete", nil)
	assert.Equal(t, "/posts", resp.Header.Get("Location"))
}

func TestCreateCategory(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "alice")

	resp := app.post(t, c, "/categories", url.Values{"name": {"tech"}, "next": {"/posts"}})
	assert.Equal(t, "/posts", resp.Header.Get("Location"))
	_, body := app.get(t, c, "/posts")
	assert.Contains(t, body, "Category tech created.")

	resp = app.post(t, c, "/categories", url.Values{"name": {"tech"}, "next": {"https://evil.example"}})
	assert.Equal(t, "/", resp.Header.Get("Location"))
	_, body = app.get(t, c, "/posts")
	assert.Contains(t, body, "already exists")
}

func TestLogoutAndDeleteAccount(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "alice")

	resp := app.post(t, c, "/logout", nil)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp, _ = app.get(t, c, "/")
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	app.post(t, c, "/login", url.Values{"username": {"alice"}, "password": {"pass1"}})
	app.post(t, c, "/posts/new", url.Values{"title": {"Hi"}, "text": {"World"}})

	resp = app.post(t, c, "/account/delete", nil)
	assert.Equal(t, "/register", resp.Header.Get("Location"))
	resp, _ = app.get(t, c, "/")
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	posts, err := app.store.ListPosts(context.Background(), store.PostFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)

	resp = app.post(t, c, "/login", url.Values{"username": {"alice"}, "password": {"pass1"}})
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestNotFoundAndHealth(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp, body := app.get(t, c, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Not found")

	resp, body = app.get(t, c, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, body = app.get(t, c, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "blog_http_requests_total")
}

func TestWithRecover(t *testing.T) {
	h := &Handler{logger: zap.NewNop().Sugar()}
	w := httptest.NewRecorder()
	h.WithRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNextURL(t *testing.T) {
	tests := map[string]string{
		"":                "/fallback",
		"/posts":          "/posts",
		"//evil.example":  "/fallback",
		"http://evil.com": "/fallback",
	}
	for next, want := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"next": {next}}.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.Equal(t, want, nextURL(r, "/fallback"), next)
	}
}
