package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/parley0/parley/internal/chat"
	"github.com/parley0/parley/internal/i18n"
	"github.com/parley0/parley/internal/session"
)

// Slash command constants.
const (
	cmdHelp  = "/help"
	cmdNew   = "/new"
	cmdRetry = "/retry"
	cmdExit  = "/exit"
	cmdQuit  = "/quit"
)

// keyMap holds key bindings for help bar display.
type keyMap struct {
	sendKey chat.SendKey

	Submit     key.Binding
	NewLine    key.Binding
	Regenerate key.Binding
	NewChat    key.Binding
	History    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
}

func newKeyMap(sendKey chat.SendKey) keyMap {
	km := keyMap{
		sendKey:    sendKey,
		Regenerate: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		NewChat:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		EscCancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
	if sendKey == chat.SendKeyCtrlEnter {
		km.Submit = key.NewBinding(key.WithKeys("ctrl+enter"), key.WithHelp("ctrl+enter", "send"))
		km.NewLine = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "newline"))
	} else {
		km.Submit = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send"))
		km.NewLine = key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline"))
	}
	return km
}

func (t *TUI) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return t.handleCtrlC()
		case 'd':
			return t, t.cleanup()
		case 'n':
			return t.handleNewChat()
		case 'r':
			return t.handleRegenerate()
		case tea.KeyEnter:
			if t.state == StateInput && t.keys.sendKey == chat.SendKeyCtrlEnter {
				return t.handleSubmit()
			}
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		if t.state == StateInput {
			submitKey := t.keys.sendKey != chat.SendKeyCtrlEnter && k.Mod&tea.ModShift == 0
			if submitKey {
				return t.handleSubmit()
			}
			// Otherwise enter inserts a newline (pass through to textarea).
		}

	case tea.KeyUp:
		// Up at first line navigates history, otherwise pass to textarea
		if t.state == StateInput && t.input.Line() == 0 {
			return t.navigateHistory(-1)
		}

	case tea.KeyDown:
		// Down at last line navigates history, otherwise pass to textarea
		if t.state == StateInput && t.input.Line() == t.input.LineCount()-1 {
			return t.navigateHistory(1)
		}

	case tea.KeyEscape:
		if t.state == StateStreaming || t.state == StateThinking {
			// Cancel the provider stream; the engine records the failed
			// exchange in the transcript and releases the gate.
			if t.streamCancel != nil {
				t.streamCancel()
			}
			return t, nil
		}

	case tea.KeyPgUp:
		t.viewport.PageUp()
		return t, nil

	case tea.KeyPgDown:
		t.viewport.PageDown()
		return t, nil
	}

	// Pass keys to textarea for typing - ALWAYS allow typing even during
	// streaming so the next message can be prepared.
	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

func (t *TUI) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within 1 second = quit
	if now.Sub(t.lastCtrlC) < time.Second {
		return t, t.cleanup()
	}
	t.lastCtrlC = now

	switch t.state {
	case StateInput:
		t.input.Reset()
		return t, nil

	case StateThinking, StateStreaming:
		if t.streamCancel != nil {
			t.streamCancel()
		}
		return t, nil
	}

	return t, nil
}

func (t *TUI) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(t.input.Value())
	if text == "" {
		return t, nil
	}

	if strings.HasPrefix(text, "/") {
		return t.handleSlashCommand(text)
	}

	// Engine refuses re-entrant sends; avoid losing the typed text.
	if t.engine.Generating() {
		t.notice = i18n.T("tui.busy")
		t.rebuildViewportContent()
		return t, nil
	}

	t.pushHistory(text)
	t.input.Reset()
	t.state = StateThinking

	return t, tea.Batch(
		t.spinner.Tick,
		t.startSend(text),
	)
}

// handleNewChat creates a fresh session and switches to it.
func (t *TUI) handleNewChat() (tea.Model, tea.Cmd) {
	if t.state != StateInput {
		return t, nil
	}
	if _, err := t.engine.NewSession(t.ctx); err != nil {
		t.notice = i18n.Sprintf("error.session_create", err)
	}
	t.rebuildViewportContent()
	t.viewport.GotoBottom()
	return t, nil
}

// handleRegenerate re-runs the last model message, in place.
func (t *TUI) handleRegenerate() (tea.Model, tea.Cmd) {
	if t.state != StateInput {
		return t, nil
	}

	msgs := t.engine.Messages()
	if len(msgs) == 0 {
		return t, nil
	}
	last := msgs[len(msgs)-1]
	if last.Role != session.RoleModel {
		return t, nil
	}

	t.state = StateThinking
	return t, tea.Batch(
		t.spinner.Tick,
		t.startRegenerate(last.ID),
	)
}

func (t *TUI) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case cmdHelp:
		t.notice = i18n.T("tui.help")
		t.input.Reset()
		t.rebuildViewportContent()
		return t, nil
	case cmdNew:
		t.input.Reset()
		return t.handleNewChat()
	case cmdRetry:
		t.input.Reset()
		return t.handleRegenerate()
	case cmdExit, cmdQuit:
		return t, t.cleanup()
	default:
		t.notice = i18n.Sprintf("tui.unknown_command", cmd)
		t.input.Reset()
		t.rebuildViewportContent()
		return t, nil
	}
}

// pushHistory appends to input history, enforcing the maxHistory cap.
func (t *TUI) pushHistory(text string) {
	t.history = append(t.history, text)
	if len(t.history) > maxHistory {
		t.history = t.history[len(t.history)-maxHistory:]
	}
	t.historyIdx = len(t.history)
}

func (t *TUI) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(t.history) == 0 {
		return t, nil
	}

	t.historyIdx += delta

	if t.historyIdx < 0 {
		t.historyIdx = 0
	}
	if t.historyIdx > len(t.history) {
		t.historyIdx = len(t.history)
	}

	if t.historyIdx == len(t.history) {
		t.input.SetValue("")
	} else {
		t.input.SetValue(t.history[t.historyIdx])
		t.input.CursorEnd()
	}

	return t, nil
}

// cleanup cancels any active stream and returns the quit command.
func (t *TUI) cleanup() tea.Cmd {
	// Cancel main context first - this triggers all goroutines using t.ctx
	if t.ctxCancel != nil {
		t.ctxCancel()
		t.ctxCancel = nil
	}
	t.releaseStream()
	return tea.Quit
}
