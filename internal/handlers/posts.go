package handlers

import (
	"net/http"

	"blog/internal/auth"
	"blog/internal/store"
)

// Index lists posts newest first. ?cat=<name> narrows to a category and
// ?liked=1 to posts the current user liked.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	f := store.PostFilter{Category: r.URL.Query().Get("cat")}
	if r.URL.Query().Get("liked") == "1" {
		f.LikedBy = auth.CurrentUser(r.Context()).ID
	}
	posts, err := h.store.ListPosts(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.render(w, r, http.StatusOK, "home", map[string]any{
		"Title": "Posts",
		"Posts": posts,
		"Query": r.URL.Query(),
	})
}

func (h *Handler) NewPost(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "new_post", map[string]any{"Title": "New Post"})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r.Context())
	p, err := h.store.CreatePost(r.Context(), u.ID, r.FormValue("title"), r.FormValue("text"), r.FormValue("category"))
	h.metrics.ObserveOp("create_post", err)
	if err != nil {
		h.fail(w, r, err, "/posts/new")
		return
	}
	http.Redirect(w, r, postURL(p.ID), http.StatusSeeOther)
}

func (h *Handler) PostByID(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	ctx := r.Context()
	post, err := h.store.GetPost(ctx, id)
	if err != nil {
		h.fail(w, r, err, "/posts")
		return
	}
	comments, err := h.store.ListComments(ctx, id)
	if err != nil {
		h.fail(w, r, err, "/posts")
		return
	}
	likers, err := h.store.PostLikers(ctx, id)
	if err != nil {
		h.fail(w, r, err, "/posts")
		return
	}
	h.render(w, r, http.StatusOK, "post", map[string]any{
		"Title":    post.Title,
		"Post":     post,
		"Comments": comments,
		"Likers":   likers,
	})
}

func (h *Handler) EditPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	post, err := h.store.GetPost(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/posts")
		return
	}
	h.render(w, r, http.StatusOK, "edit_post", map[string]any{
		"Title": "Edit " + post.Title,
		"Post":  post,
		"Next":  r.URL.Query().Get("next"),
	})
}

// UpdatePost overwrites title and text and adds the chosen category to the
// ones the post already has.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	_, err := h.store.UpdatePost(r.Context(), id, r.FormValue("title"), r.FormValue("text"), r.FormValue("category"))
	h.metrics.ObserveOp("update_post", err)
	if err != nil {
		h.fail(w, r, err, postURL(id)+"/edit")
		return
	}
	http.Redirect(w, r, nextURL(r, postURL(id)), http.StatusSeeOther)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	err := h.store.DeletePost(r.Context(), id)
	h.metrics.ObserveOp("delete_post", err)
	if err != nil {
		h.fail(w, r, err, "/posts")
		return
	}
	setFlash(w, flashSuccess, "Post deleted.")
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
}

// LikePost adds the current user's like. Liking twice changes nothing.
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	u := auth.CurrentUser(r.Context())
	_, err := h.store.ToggleLike(r.Context(), u.ID, id)
	h.metrics.ObserveOp("like", err)
	if err != nil {
		h.fail(w, r, err, postURL(id))
		return
	}
	http.Redirect(w, r, nextURL(r, postURL(id)), http.StatusSeeOther)
}

// CreateComment ignores blank comments and returns to the post either way.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	u := auth.CurrentUser(r.Context())
	_, err := h.store.AddComment(r.Context(), id, u.ID, r.FormValue("content"))
	h.metrics.ObserveOp("add_comment", err)
	if err != nil {
		h.fail(w, r, err, postURL(id))
		return
	}
	http.Redirect(w, r, postURL(id), http.StatusSeeOther)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	postID, err := h.store.DeleteComment(r.Context(), id)
	h.metrics.ObserveOp("delete_comment", err)
	if err != nil {
		h.fail(w, r, err, "/posts")
		return
	}
	http.Redirect(w, r, postURL(postID), http.StatusSeeOther)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.CreateCategory(r.Context(), r.FormValue("name"))
	h.metrics.ObserveOp("create_category", err)
	if err != nil {
		h.fail(w, r, err, nextURL(r, "/"))
		return
	}
	if c != nil {
		setFlash(w, flashSuccess, "Category "+c.Name+" created.")
	}
	http.Redirect(w, r, nextURL(r, "/"), http.StatusSeeOther)
}
