package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/parley0/parley/internal/chat"
	"github.com/parley0/parley/internal/session"
)

// streamBufferSize is sized for ~1.5s burst at 60 FPS refresh rate.
// This prevents backpressure during UI render delays while keeping
// memory bounded.
const streamBufferSize = 100

// streamEvent is a discriminated union for all stream events.
// Using a single channel with union type simplifies select logic
// and eliminates complex multi-channel closure handling.
type streamEvent struct {
	msg      session.Message // Latest snapshot of the streaming message
	done     bool            // True when the exchange finished
	rejected bool            // True when the engine refused to start
}

// Stream message types for Bubble Tea
type streamStartedMsg struct {
	eventCh <-chan streamEvent
	cancel  context.CancelFunc
}

type streamSnapshotMsg struct {
	msg session.Message
}

type streamFinishedMsg struct {
	rejected bool
}

// exchangeFunc starts one engine exchange, blocking until it completes.
// Both Send and Regenerate fit this shape.
type exchangeFunc func(ctx context.Context, observe chat.ObserveFunc) bool

// startSend creates a command that runs one send exchange.
func (t *TUI) startSend(text string) tea.Cmd {
	return t.startExchange(func(ctx context.Context, observe chat.ObserveFunc) bool {
		return t.engine.Send(ctx, text, observe)
	})
}

// startRegenerate creates a command that re-runs a model message.
func (t *TUI) startRegenerate(targetID uuid.UUID) tea.Cmd {
	return t.startExchange(func(ctx context.Context, observe chat.ObserveFunc) bool {
		return t.engine.Regenerate(ctx, targetID, observe)
	})
}

// startExchange bridges the engine's blocking exchange into Bubble Tea's
// message loop.
//
// Goroutine lifecycle: the spawned goroutine exits when the exchange
// returns: normal completion, failure recorded in the transcript, or
// context cancellation (the engine treats a canceled stream as a failed
// generation). Channel closure signals completion; no WaitGroup needed.
func (t *TUI) startExchange(run exchangeFunc) tea.Cmd {
	return func() tea.Msg {
		eventCh := make(chan streamEvent, streamBufferSize)

		// Timeout prevents indefinite hangs on a stuck provider.
		ctx, cancel := context.WithTimeout(t.ctx, streamTimeout)

		go func() {
			defer cancel()
			defer close(eventCh)

			accepted := run(ctx, func(m session.Message) {
				select {
				case eventCh <- streamEvent{msg: m}:
				default: // best-effort: never block the engine on a slow UI
				}
			})

			// The final observe notification already carried the
			// completed message; done just unblocks the input.
			select {
			case eventCh <- streamEvent{done: true, rejected: !accepted}:
			case <-ctx.Done():
			}
		}()

		return streamStartedMsg{
			eventCh: eventCh,
			cancel:  cancel,
		}
	}
}

// listenForStream creates a command to wait for the next stream event.
// Empty events are skipped via loop instead of recursion.
func listenForStream(eventCh <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}

		for {
			event, ok := <-eventCh
			if !ok {
				// Channel closed - stream ended
				return streamFinishedMsg{}
			}

			switch {
			case event.done:
				return streamFinishedMsg{rejected: event.rejected}
			case event.msg.ID != uuid.Nil:
				return streamSnapshotMsg{msg: event.msg}
			default:
				continue
			}
		}
	}
}
