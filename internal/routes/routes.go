package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"selfcheckout/internal/config"
	"selfcheckout/internal/handlers"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/middleware"
	"selfcheckout/internal/repository"
	"selfcheckout/internal/services"
	"selfcheckout/internal/services/websocket"
)

// Services are the components the HTTP surface talks to.
type Services struct {
	Manager     *services.Manager
	Hub         *websocket.HubService
	Adjustments repository.AdjustmentRepository
	AuditBuffer handlers.Flusher
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean(path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the kiosk and attendant endpoints and wraps the mux
// with the authentication middleware.
func SetupRoutes(svc Services, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	manager := svc.Manager
	sessions := middleware.NewSessions(cfg.SessionTTL)

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Kiosk endpoints
	mux.HandleFunc("/api/state", handlers.StateHandler(manager, logger))
	mux.HandleFunc("/api/cart/adjust", handlers.AdjustHandler(manager, logger))
	mux.HandleFunc("/api/cart/reset", handlers.ResetHandler(manager, logger))
	mux.HandleFunc("/api/zones/ignore", handlers.IgnoreZoneHandler(manager, logger))
	mux.HandleFunc("/api/assistance", handlers.HelpHandler(manager, logger))
	if svc.Hub != nil {
		mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(manager, svc.Hub, logger))
	}
	mux.Handle("/metrics", manager.Metrics().Handler())

	// Attendant endpoints
	mux.HandleFunc("/api/escalations", handlers.EscalationsHandler(manager, logger))
	mux.HandleFunc("/api/escalations/resolve", handlers.ResolveEscalationHandler(manager, logger))
	if svc.Adjustments != nil {
		mux.HandleFunc("/api/adjustments", handlers.AdjustmentsHandler(svc.Adjustments, svc.AuditBuffer, logger))
	}

	// Log endpoints
	mux.HandleFunc("/logs/view", handlers.ShowLogsHandler(logger))
	mux.HandleFunc("/logs/clear", handlers.ClearLogsHandler(logger))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handlers.LoginHandler(cfg, sessions, logger))
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler(sessions))

	// Automatic HTML handler mapping for example: /attendant -> /static/attendant.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(sessions, mux)
}
