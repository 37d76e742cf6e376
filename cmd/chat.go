package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/parley0/parley/internal/app"
	"github.com/parley0/parley/internal/config"
	"github.com/parley0/parley/internal/log"
	"github.com/parley0/parley/internal/tui"
)

// runChat is the default command: open the interactive chat interface.
func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// The TUI owns the terminal, so logs go to a file instead of stderr.
	logger, closeLog, err := fileLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("starting parley: %w", err)
	}

	ui, err := tui.New(ctx, a.Engine)
	if err != nil {
		_ = a.Close()
		return err
	}

	p := tea.NewProgram(ui, tea.WithContext(ctx))
	_, runErr := p.Run()

	if err := a.SaveSettings(); err != nil {
		logger.Warn("saving settings on exit", "error", err)
	}
	closeErr := a.Close()

	// Ctrl+C delivered through the signal context is a normal quit.
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return errors.Join(runErr, closeErr)
}

// fileLogger opens a logger writing to parley.log in the config directory.
func fileLogger(cfg *config.Config) (log.Logger, func(), error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving config directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "parley.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		// Fall back to a discarding logger rather than refusing to start.
		return log.NewNop(), func() {}, nil
	}

	logger := log.NewWithWriter(f, log.Config{
		Level: cfg.SlogLevel(),
		JSON:  cfg.LogJSON,
	})
	return logger, func() { _ = f.Close() }, nil
}
