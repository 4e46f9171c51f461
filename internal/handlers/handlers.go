package handlers

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"blog/internal/auth"
	"blog/internal/metrics"
	"blog/internal/models"
	"blog/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Store is the data core as seen by the HTTP layer.
type Store interface {
	CreatePost(ctx context.Context, authorID int64, title, content, categoryName string) (*models.Post, error)
	ListPosts(ctx context.Context, f store.PostFilter) ([]models.Post, error)
	ListPostsByAuthor(ctx context.Context, userID int64) ([]models.Post, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	UpdatePost(ctx context.Context, id int64, title, content, categoryName string) (*models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	AddComment(ctx context.Context, postID, authorID int64, content string) (*models.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id int64) (int64, error)
	ToggleLike(ctx context.Context, userID, postID int64) (store.LikeState, error)
	PostLikers(ctx context.Context, postID int64) ([]models.User, error)
}

type Handler struct {
	store        Store
	auth         *auth.Service
	tpls         *template.Template
	logger       *zap.SugaredLogger
	metrics      *metrics.Metrics
	cookieSecure bool
}

type Options struct {
	CookieSecure bool
}

func New(st Store, svc *auth.Service, m *metrics.Metrics, logger *zap.SugaredLogger, opts Options) *Handler {
	tpls := template.Must(template.New("").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html"))
	return &Handler{
		store:        st,
		auth:         svc,
		tpls:         tpls,
		logger:       logger,
		metrics:      m,
		cookieSecure: opts.CookieSecure,
	}
}

// Routes builds the router with the full middleware chain.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.WithRecover)
	r.Use(h.WithLogging)
	r.Use(h.LoadSession)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/posts/{id}", h.PostByID)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/", h.Index)
		r.Get("/posts", h.Index)
		r.Post("/logout", h.Logout)
		r.Post("/account/delete", h.DeleteAccount)
		r.Get("/user", h.MyPosts)

		r.Get("/posts/new", h.NewPost)
		r.Post("/posts/new", h.CreatePost)
		r.Get("/posts/{id}/edit", h.EditPost)
		r.Post("/posts/{id}/edit", h.UpdatePost)
		r.Post("/posts/{id}/delete", h.DeletePost)
		r.Post("/posts/{id}/like", h.LikePost)
		r.Post("/posts/{id}/comments", h.CreateComment)
		r.Post("/comments/{id}/delete", h.DeleteComment)
		r.Post("/categories", h.CreateCategory)
	})

	r.NotFound(h.NotFound)
	return r
}

func (h *Handler) sidebarCats(ctx context.Context) []string {
	cats, err := h.store.ListCategories(ctx)
	if err != nil {
		h.logger.Errorw("list categories", "err", err)
		return nil
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

// render adds the values every page needs and executes the named template.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["User"] = auth.CurrentUser(r.Context())
	data["Flash"] = popFlash(w, r)
	data["Cats"] = h.sidebarCats(r.Context())
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Blog"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tpls.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Errorw("render", "template", name, "err", err)
	}
}

// fail turns an operation error into the response the user sees:
// recoverable errors go back to the form with a message, a stale id goes to
// the post listing, anything else is a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		setFlash(w, flashDanger, verr.Msg)
		http.Redirect(w, r, back, http.StatusSeeOther)
	case errors.Is(err, store.ErrInvalidCredentials):
		setFlash(w, flashDanger, "Invalid username or password")
		http.Redirect(w, r, back, http.StatusSeeOther)
	case errors.Is(err, store.ErrNotFound):
		setFlash(w, flashDanger, "That item no longer exists")
		http.Redirect(w, r, "/posts", http.StatusSeeOther)
	default:
		h.logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// nextURL returns the local redirect target from the "next" form value, or
// fallback when it is missing or points off-site.
func nextURL(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return fallback
}

func postURL(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10)
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", map[string]any{"Title": "Not Found"})
}
