// Package theme stores the light, dark or system colour preference in a
// cookie.
package theme

import (
	"net/http"
	"strings"
	"time"
)

// Preference is the colour scheme a visitor picked.
type Preference string

const (
	Light  Preference = "light"
	Dark   Preference = "dark"
	System Preference = "system"
)

// Default applies when no valid cookie is present.
const Default = System

// CookieName is the cookie holding the preference.
const CookieName = "theme"

const cookieMaxAge = 365 * 24 * time.Hour

// Parse returns the preference named by s.
func Parse(s string) (Preference, bool) {
	switch p := Preference(strings.ToLower(strings.TrimSpace(s))); p {
	case Light, Dark, System:
		return p, true
	}
	return "", false
}

// FromRequest reads the preference cookie, falling back to Default.
func FromRequest(r *http.Request) Preference {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Default
	}
	if p, ok := Parse(c.Value); ok {
		return p
	}
	return Default
}

// SetCookie stores p on the response.
func SetCookie(w http.ResponseWriter, p Preference, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(p),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Handler serves GET /theme?value=<pref>&next=<path>. It stores the
// preference and redirects to next, which must be a local path.
func Handler(secure bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		p, ok := Parse(r.URL.Query().Get("value"))
		if !ok {
			http.Error(w, "unknown theme", http.StatusBadRequest)
			return
		}
		SetCookie(w, p, secure)
		http.Redirect(w, r, SafeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
	})
}

// SafeNext returns next when it is a path on this site, "/" otherwise.
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}
