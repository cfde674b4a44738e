package middleware

import (
	"net/http"
	"strings"
)

// attendantPrefixes are the paths reserved for logged-in attendants. The
// kiosk surface stays public.
var attendantPrefixes = []string{
	"/api/escalations",
	"/api/adjustments",
	"/logs",
	"/attendant",
}

func attendantOnly(path string) bool {
	for _, prefix := range attendantPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// AuthMiddleware requires a live attendant session on attendant paths.
func AuthMiddleware(sessions *Sessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !attendantOnly(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !sessions.Authenticated(r) {
			// API clients get 401, browsers are sent to the login page
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
