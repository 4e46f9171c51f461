package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const flashCookie = "blog_flash"

const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func setFlash(w http.ResponseWriter, category, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(category + "|" + msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// popFlash reads the pending flash and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:    flashCookie,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	category, msg, ok := strings.Cut(raw, "|")
	if !ok {
		return &Flash{Category: flashInfo, Message: raw}
	}
	return &Flash{Category: category, Message: msg}
}
