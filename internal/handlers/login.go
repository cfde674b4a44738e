package handlers

import (
	"crypto/subtle"
	"net/http"

	"selfcheckout/internal/config"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/middleware"
)

// LoginHandler checks the attendant password and sets the session cookie.
func LoginHandler(cfg *config.Config, sessions *middleware.Sessions, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		password := r.FormValue("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
			logger.Warning("Failed attendant login from %s", r.RemoteAddr)
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, sessions.Cookie(sessions.Create()))
		logger.Info("Attendant logged in from %s", r.RemoteAddr)
		http.Redirect(w, r, "/attendant", http.StatusSeeOther)
	}
}
