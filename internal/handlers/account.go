package handlers

import (
	"net/http"

	"blog/internal/auth"
	"blog/internal/store"
)

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", map[string]any{"Title": "Register"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.Register(r.Context(), store.RegisterInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("password2"),
	})
	h.metrics.ObserveOp("register", err)
	if err != nil {
		h.fail(w, r, err, "/register")
		return
	}
	auth.SetCookie(w, sess, h.cookieSecure)
	setFlash(w, flashSuccess, "Welcome "+sess.User.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", map[string]any{"Title": "Login"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	h.metrics.ObserveOp("login", err)
	if err != nil {
		h.fail(w, r, err, "/login")
		return
	}
	auth.SetCookie(w, sess, h.cookieSecure)
	setFlash(w, flashSuccess, "You are logged in as "+sess.User.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.SessionID(r)); err != nil {
		h.logger.Warnw("logout", "err", err)
	}
	auth.ClearCookie(w)
	setFlash(w, flashSuccess, "You are logged out, log in to continue.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := h.auth.DeleteAccount(r.Context(), auth.FromContext(r.Context()))
	h.metrics.ObserveOp("delete_account", err)
	if err != nil {
		h.fail(w, r, err, "/user")
		return
	}
	auth.ClearCookie(w)
	setFlash(w, flashInfo, "Your account is deleted, create a new one to continue.")
	http.Redirect(w, r, "/register", http.StatusSeeOther)
}

// MyPosts is the profile page: the current user's posts.
func (h *Handler) MyPosts(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r.Context())
	posts, err := h.store.ListPostsByAuthor(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.render(w, r, http.StatusOK, "user", map[string]any{"Title": u.Username, "Posts": posts})
}
