package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdthewzrd/chartscan/internal/api"
	"github.com/mdthewzrd/chartscan/internal/api/handlers"
	"github.com/mdthewzrd/chartscan/internal/pipeline"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scan API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health           - Health check
  GET  /api/v1/patterns  - List available pattern IDs
  POST /api/v1/scan      - Run a scan

Example:
  scanctl serve
  scanctl serve --port 8090`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "server port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	runner := pipeline.NewDefault(a.store, a.calendar, a.cfg.Scan, a.log)
	scanHandler := handlers.NewScanHandler(runner, a.log)
	router := api.NewRouter(scanHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.WithField("port", a.cfg.Port).Info("API server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
