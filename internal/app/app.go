package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"selfcheckout/internal/config"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/repository/sqlite"
	"selfcheckout/internal/routes"
	"selfcheckout/internal/services"
	"selfcheckout/internal/services/backend"
	"selfcheckout/internal/services/metrics"
	"selfcheckout/internal/services/overlay"
	"selfcheckout/internal/services/storage"
	"selfcheckout/internal/services/websocket"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	backendClient *backend.Client
	manager       *services.Manager
	server        *http.Server
}

// NewApp wires every component from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, warning := range cfg.Warnings() {
		log.Warning("%s", warning)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	adjustments := sqlite.NewAdjustmentRepository(db)
	buffer := storage.NewBufferService(adjustments, cfg.AuditFlushInterval, log)
	hub := websocket.NewHubService(log)
	client := backend.NewClient(cfg, log)
	m := metrics.New()

	deps := services.Dependencies{
		Sender:      client,
		Escalations: sqlite.NewEscalationRepository(db),
		Audit:       buffer,
		Publisher:   hub,
		Metrics:     m,
	}
	if cfg.OverlayEnabled {
		deps.Renderer = overlay.NewRenderer(log)
	}
	mng := services.NewManager(cfg, deps, log)

	m.AddGaugeFunc("checkout_viewers", "Connected viewers", func() float64 {
		return float64(hub.GetClientCount())
	})
	m.AddGaugeFunc("checkout_backend_connected", "Backend link state (0=down, 1=up)", func() float64 {
		if client.Connected() {
			return 1
		}
		return 0
	})
	m.AddGaugeFunc("checkout_backend_dial_failures", "Failed backend dial attempts", func() float64 {
		return float64(client.Reconnects())
	})
	m.AddGaugeFunc("checkout_snapshots_dropped", "Snapshots overwritten before processing", func() float64 {
		return float64(mng.Mailbox().Stats().TotalDrops)
	})

	m.AddGaugeFunc("checkout_audit_dropped", "Adjustment records discarded while the database was unavailable", func() float64 {
		return float64(buffer.Dropped())
	})

	router := routes.SetupRoutes(routes.Services{
		Manager:     mng,
		Hub:         hub,
		Adjustments: adjustments,
		AuditBuffer: buffer,
	}, cfg, log)

	return &App{
		config:        cfg,
		logger:        log,
		db:            db,
		bufferService: buffer,
		hubService:    hub,
		backendClient: client,
		manager:       mng,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run starts the background services and the HTTP server and blocks until ctx
// is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.hubService.Run(ctx) })
	g.Go(func() error { return a.bufferService.Run(ctx) })
	g.Go(func() error { return a.manager.Run(ctx) })
	g.Go(func() error {
		return a.backendClient.Run(ctx, backend.Handlers{
			OnDetection: a.manager.HandleDetection,
			OnZoneAck:   a.manager.HandleZoneAck,
		})
	})

	g.Go(func() error {
		a.logger.Info("Self-checkout server listening on http://localhost:%d (backend %s)", a.config.Port, a.config.BackendURL)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.logger.Info("Self-checkout server stopped")
	return err
}

func (a *App) close() {
	a.manager.Mailbox().Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Close()
}
