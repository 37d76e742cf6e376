// Package llm wraps the model provider behind a small streaming client.
//
// The client converts the provider's incremental deltas into cumulative
// text: every onChunk call carries the full text so far, superseding the
// previous call. Consumers replace content; they never append.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/parley0/parley/internal/session"
)

// ErrEmptyTitle indicates the model returned no usable title text.
var ErrEmptyTitle = errors.New("model returned empty title")

// Turn is one prior conversation turn handed to the provider.
type Turn struct {
	Role string // session.RoleUser or session.RoleModel
	Text string
}

// StreamFunc receives the cumulative response text after each chunk.
type StreamFunc func(cumulative string)

// Config contains required parameters for the client.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Logger    *slog.Logger

	// RateLimiter throttles outgoing requests (nil = default
	// 2 requests/sec sustained, burst of 5).
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Client is the generation client used by the conversation engine.
type Client struct {
	g         *genkit.Genkit
	modelName string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(2, 5)
	}

	return &Client{
		g:         cfg.Genkit,
		modelName: cfg.ModelName,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Stream sends the conversation to the provider and streams the response.
//
// history holds the prior turns only; text is the new user message and is
// appended as the final turn. onChunk (optional) receives cumulative text.
// On error no final value was produced; whatever onChunk delivered last is
// partial output, not an authoritative result.
func (c *Client) Stream(ctx context.Context, history []Turn, text, systemInstruction string, onChunk StreamFunc) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	messages := make([]*ai.Message, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Role {
		case session.RoleModel:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Text)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Text)))
		}
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(text)))

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithMessages(messages...),
	}
	if systemInstruction != "" {
		opts = append(opts, ai.WithSystem(systemInstruction))
	}

	var cumulative strings.Builder
	if onChunk != nil {
		opts = append(opts, ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			cumulative.WriteString(chunk.Text())
			onChunk(cumulative.String())
			return nil
		}))
	}

	c.logger.Debug("generating response",
		"model", c.modelName,
		"history_turns", len(history),
		"input_length", len(text))

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	return resp.Text(), nil
}

// Title derivation constants.
const (
	titleTimeout       = 5 * time.Second
	titleInputMaxRunes = 500
)

var titlePrompt = fmt.Sprintf("Generate a concise title (max %d characters) for a chat session based on this first message.", session.TitleMaxLength) + `
The title should capture the main topic or intent.
Write the title in %s.
Return ONLY the title text, no quotes, no explanations, no punctuation at the end.

Message: %s

Title:`

// DeriveTitle asks the model for a short session title based on the
// user's first message. language is the human-readable language name the
// title should be written in.
func (c *Client) DeriveTitle(ctx context.Context, firstMessage, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	inputRunes := []rune(firstMessage)
	if len(inputRunes) > titleInputMaxRunes {
		firstMessage = string(inputRunes[:titleInputMaxRunes]) + "..."
	}

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithPrompt(titlePrompt, language, firstMessage),
	)
	if err != nil {
		return "", fmt.Errorf("deriving title: %w", err)
	}

	title := strings.TrimSpace(resp.Text())
	if title == "" {
		return "", ErrEmptyTitle
	}

	titleRunes := []rune(title)
	if len(titleRunes) > session.TitleMaxLength {
		title = string(titleRunes[:session.TitleMaxLength-3]) + "..."
	}
	return title, nil
}
