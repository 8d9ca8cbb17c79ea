package main

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const playerCookieName = "clash_id"

// Names double as room id components, so "_" is not allowed.
var validName = regexp.MustCompile(`^[A-Za-z0-9.-]{1,40}$`)

var errInvalidName = errors.New("names may only contain letters, digits, '.' and '-' (1-40 characters)")

// getOrSetPlayerID returns the anonymous identity stored in the player
// cookie, assigning a fresh one if the cookie is missing or malformed.
func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && validName.MatchString(c.Value) {
		return c.Value
	}

	id := "guest-" + uuid.NewString()[:8]

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// identify picks the user a websocket speaks for: an explicit ?name=,
// falling back to the player cookie set when the page was served.
func identify(r *http.Request) (string, error) {
	if name := r.URL.Query().Get("name"); name != "" {
		if !validName.MatchString(name) {
			return "", errInvalidName
		}
		return name, nil
	}

	if c, err := r.Cookie(playerCookieName); err == nil && validName.MatchString(c.Value) {
		return c.Value, nil
	}

	return "", errors.New("missing player name")
}
