package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/parley0/parley/internal/app"
	"github.com/parley0/parley/internal/config"
	"github.com/parley0/parley/internal/i18n"
	"github.com/parley0/parley/internal/log"
	"github.com/parley0/parley/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently active first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withGateway(cmd.Context(), func(ctx context.Context, gw session.Gateway) error {
			sessions, err := gw.ListSessions(ctx)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			printSessions(sessions)
			return nil
		})
	},
}

var sessionsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search sessions by title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGateway(cmd.Context(), func(ctx context.Context, gw session.Gateway) error {
			sessions, err := gw.SearchSessions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("searching sessions: %w", err)
			}
			printSessions(sessions)
			return nil
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session ID %q", args[0])
		}
		return withGateway(cmd.Context(), func(ctx context.Context, gw session.Gateway) error {
			msgs, err := gw.ListMessages(ctx, id)
			if err != nil {
				return fmt.Errorf("loading messages: %w", err)
			}
			for _, m := range msgs {
				prefix := i18n.T("chat.assistant")
				if m.Role == session.RoleUser {
					prefix = i18n.T("chat.prompt")
				}
				fmt.Printf("%s%s\n\n", prefix, m.Content)
			}
			return nil
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session ID %q", args[0])
		}
		return withGateway(cmd.Context(), func(ctx context.Context, gw session.Gateway) error {
			if err := gw.DeleteSession(ctx, id); err != nil {
				return fmt.Errorf("deleting session: %w", err)
			}
			fmt.Println(i18n.T("session.deleted"))
			return nil
		})
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsSearchCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

// withGateway opens the configured storage backend, runs fn, and closes
// it. Session commands only touch storage, so they skip the model setup.
func withGateway(ctx context.Context, fn func(context.Context, session.Gateway) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	i18n.Init(cfg.Language)

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	gw, closeFn, err := app.OpenGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	return fn(ctx, gw)
}

func printSessions(sessions []*session.Session) {
	if len(sessions) == 0 {
		fmt.Println(i18n.T("sessions.empty"))
		return
	}

	fmt.Println(i18n.T("sessions.header"))
	for _, s := range sessions {
		fmt.Printf("  %s  %-40s  %s\n", shortID(s.ID), truncate(s.Title, 40), formatTime(s.UpdatedAt))
		if s.Preview != "" {
			fmt.Printf("            %s\n", s.Preview)
		}
	}
	fmt.Printf("\n%d session(s)\n", len(sessions))
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// formatTime renders a timestamp relative to now for recent activity,
// falling back to a date for anything older than a week.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
