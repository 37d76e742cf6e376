// Package app provides application initialization and dependency wiring.
//
// App is the container that orchestrates the application components: it
// initializes Genkit with the configured provider, opens the session
// gateway (local or PostgreSQL), and assembles the conversation engine.
// Both the TUI and the HTTP server are thin front-ends over an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/parley0/parley/internal/chat"
	"github.com/parley0/parley/internal/config"
	"github.com/parley0/parley/internal/i18n"
	"github.com/parley0/parley/internal/llm"
	"github.com/parley0/parley/internal/log"
	"github.com/parley0/parley/internal/observability"
	"github.com/parley0/parley/internal/session"
	"github.com/parley0/parley/internal/store/local"
	"github.com/parley0/parley/internal/store/postgres"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit  *genkit.Genkit
	Gateway session.Gateway
	Engine  *chat.Engine

	// Lifecycle management
	bgCancel     context.CancelFunc
	gatewayClose func() error
	otelShutdown func(context.Context) error
}

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	i18n.Init(cfg.Language)

	if cfg.TracingEnabled {
		// Must run before genkit.Init so the TracerProvider is ready.
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.TracingEndpoint,
			ServiceName: "parley",
		})
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.otelShutdown = shutdown
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	a.Genkit = g

	gateway, gatewayClose, err := OpenGateway(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Gateway = gateway
	a.gatewayClose = gatewayClose

	client, err := llm.New(llm.Config{
		Genkit:    g,
		ModelName: cfg.ModelName,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generation client: %w", err)
	}

	bgCtx, bgCancel := context.WithCancel(context.WithoutCancel(ctx))
	a.bgCancel = bgCancel

	engine, err := chat.New(chat.Config{
		Generator: client,
		Sessions:  session.NewStore(gateway, logger),
		Gateway:   gateway,
		Logger:    logger,
		Settings: chat.Settings{
			SystemInstruction: cfg.SystemInstruction,
			Language:          cfg.Language,
			SendKey:           chat.SendKey(cfg.SendKey),
			FontSize:          cfg.FontSize,
		},
		BackgroundCtx: bgCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("creating conversation engine: %w", err)
	}
	a.Engine = engine

	if err := engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	return a, nil
}

// OpenGateway opens the configured session gateway. Callers that only
// need storage (session management commands) use this directly instead
// of a full Setup.
func OpenGateway(ctx context.Context, cfg *config.Config, logger log.Logger) (session.Gateway, func() error, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		st, err := postgres.Connect(ctx, cfg.ConnString(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		return st, func() error { st.Close(); return nil }, nil

	case config.StorageLocal:
		st, err := local.Open(cfg.DataDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening local store: %w", err)
		}
		return st, st.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// SaveSettings persists the engine's current settings to the config file.
// Called when the user changes settings at runtime.
func (a *App) SaveSettings() error {
	s := a.Engine.Settings()
	a.Config.SystemInstruction = s.SystemInstruction
	a.Config.Language = s.Language
	a.Config.SendKey = string(s.SendKey)
	a.Config.FontSize = s.FontSize
	return config.Save(a.Config)
}

// Close gracefully shuts down all resources. Pending write-behind
// persistence and title derivation are drained before the gateway
// closes, so a completed exchange is never lost on quit.
func (a *App) Close() error {
	var errs []error

	if a.Engine != nil {
		a.Engine.Wait()
	}
	if a.bgCancel != nil {
		a.bgCancel()
	}
	if a.gatewayClose != nil {
		if err := a.gatewayClose(); err != nil {
			errs = append(errs, fmt.Errorf("closing gateway: %w", err))
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	return errors.Join(errs...)
}
