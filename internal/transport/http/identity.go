package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	userCookieName = "userId"
	userCookieAge  = 365 * 24 * time.Hour
)

// identify resolves the learner for a request. An explicit userId query parameter
// wins, then the userId cookie; otherwise a fresh id is minted and returned as a
// cookie to set. anonymous=1 opts out of identity entirely (empty userID).
func identify(r *http.Request) (userID string, cookie *http.Cookie) {
	q := r.URL.Query()
	if q.Get("anonymous") == "1" {
		return "", nil
	}
	if id := q.Get("userId"); id != "" {
		return id, nil
	}
	if c, err := r.Cookie(userCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	id := uuid.NewString()
	return id, &http.Cookie{
		Name:     userCookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(userCookieAge),
		MaxAge:   int(userCookieAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	}
}
