package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"selfcheckout/internal/app"
	"selfcheckout/internal/config"

	"github.com/spf13/cobra"
)

var (
	envFile    string
	port       int
	backendURL string
)

var rootCmd = &cobra.Command{
	Use:   "selfcheckout",
	Short: "Self-checkout session server",
	Long: `Connects to the detection backend, keeps the checkout session
(cart, guidance, unstable zones, escalations) and serves it to kiosk and
attendant screens.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file to load")
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides PORT)")
	rootCmd.Flags().StringVar(&backendURL, "backend-url", "", "Detection backend websocket URL (overrides BACKEND_URL)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.Load(envFile)
	if port > 0 {
		cfg.Port = port
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
