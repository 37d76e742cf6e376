package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parley0/parley/api"
	"github.com/parley0/parley/internal/app"
	"github.com/parley0/parley/internal/config"
	"github.com/parley0/parley/internal/log"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the conversation engine over HTTP: session CRUD,
synchronous chat, and Server-Sent Events streaming.

The server shares its storage with the interactive client, so sessions
created over the API show up in the terminal interface and vice versa.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config http_addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	logger := log.New(log.Config{
		Level: cfg.SlogLevel(),
		JSON:  cfg.LogJSON,
	})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("starting parley: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	return api.NewServer(a.Engine, a.Gateway, logger).Run(ctx, addr)
}
