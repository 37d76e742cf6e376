// Package tui provides the Bubble Tea terminal interface for parley.
//
// The TUI is a thin view over the conversation engine: the engine owns
// the transcript and applies optimistic updates, the TUI re-renders the
// engine's message snapshot whenever a stream event arrives.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/parley0/parley/internal/chat"
	"github.com/parley0/parley/internal/i18n"
	"github.com/parley0/parley/internal/session"
)

// State represents TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput     State = iota // Awaiting user input
	StateThinking               // Request sent, no text yet
	StateStreaming              // Streaming response
)

// maxHistory bounds the input history.
const maxHistory = 100

// streamTimeout is the maximum time for a single generation.
const streamTimeout = 5 * time.Minute

// Layout constants for viewport height calculation.
const (
	separatorLines = 2 // Two separator lines (above and below input)
	helpLines      = 1 // Help bar height
	promptLines    = 1 // Prompt prefix line
	minViewport    = 3 // Minimum viewport height
)

// TUI is the Bubble Tea model for the parley terminal interface.
type TUI struct {
	// Input (textarea for multi-line support)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state     State
	lastCtrlC time.Time
	notice    string // transient system line under the transcript

	// Output
	spinner spinner.Model
	viewBuf strings.Builder // Reusable buffer for View() to reduce allocations

	// Scrollable message viewport
	viewport viewport.Model

	// Help bar for keyboard shortcuts
	help help.Model
	keys keyMap

	// Stream management
	// Note: No sync.WaitGroup - Bubble Tea's event loop provides synchronization.
	streamCancel  context.CancelFunc
	streamEventCh <-chan streamEvent

	// Dependencies (direct, no interface)
	engine    *chat.Engine
	ctx       context.Context
	ctxCancel context.CancelFunc // For canceling all operations on exit

	// Dimensions
	width  int
	height int

	// Styles
	styles Styles

	// Markdown rendering (nil = graceful degradation to plain text)
	markdown *markdownRenderer
}

// New creates a TUI model over the conversation engine.
//
// IMPORTANT: ctx MUST be the same context passed to tea.WithContext()
// to ensure consistent cancellation behavior.
func New(ctx context.Context, engine *chat.Engine) (*TUI, error) {
	if engine == nil {
		return nil, errors.New("tui.New: engine is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = i18n.T("chat.placeholder")
	ta.SetHeight(1)
	ta.SetWidth(120) // Updated on WindowSizeMsg
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	// Clean, minimal styling: no background colors, just text.
	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Disable built-in keyboard handling; keys are routed explicitly
	// in handleKey to avoid conflicts with textarea/history navigation.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	h := help.New()

	return &TUI{
		engine:    engine,
		ctx:       ctx,
		ctxCancel: cancel,
		input:     ta,
		spinner:   sp,
		viewport:  vp,
		help:      h,
		keys:      newKeyMap(engine.Settings().SendKey),
		styles:    DefaultStyles(),
		history:   make([]string, 0, maxHistory),
		markdown:  newMarkdownRenderer(80),
		width:     80, // Default width until WindowSizeMsg arrives
	}, nil
}

// Init implements tea.Model.
func (t *TUI) Init() tea.Cmd {
	t.rebuildViewportContent()
	t.viewport.GotoBottom()
	return tea.Batch(
		textarea.Blink,
		t.spinner.Tick,
		t.input.Focus(),
	)
}

// Update implements tea.Model.
func (t *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return t.handleKey(msg)

	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height

		// Viewport height: total - input - separators - help
		inputHeight := t.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		t.viewport.SetWidth(msg.Width)
		t.viewport.SetHeight(vpHeight)
		t.input.SetWidth(msg.Width - 4) // Room for "> " prompt
		t.help.SetWidth(msg.Width)
		t.markdown.UpdateWidth(msg.Width)

		t.rebuildViewportContent()
		return t, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		t.spinner, cmd = t.spinner.Update(msg)
		if t.state == StateThinking {
			t.rebuildViewportContent()
		}
		return t, cmd

	case streamStartedMsg:
		t.streamCancel = msg.cancel
		t.streamEventCh = msg.eventCh
		t.state = StateThinking
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, listenForStream(msg.eventCh)

	case streamSnapshotMsg:
		// The engine already applied the chunk; just re-render.
		if msg.msg.Content != "" {
			t.state = StateStreaming
		}
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, listenForStream(t.streamEventCh)

	case streamFinishedMsg:
		t.state = StateInput
		t.releaseStream()
		if msg.rejected {
			t.notice = i18n.T("tui.busy")
		}
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, t.input.Focus()
	}

	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

// releaseStream drops stream resources after completion or cancel.
func (t *TUI) releaseStream() {
	if t.streamCancel != nil {
		t.streamCancel()
		t.streamCancel = nil
	}
	t.streamEventCh = nil
}

// View implements tea.Model.
// Uses AltScreen with viewport for scrollable message history.
func (t *TUI) View() tea.View {
	t.viewBuf.Reset()

	_, _ = t.viewBuf.WriteString(t.viewport.View())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderSeparator())
	_, _ = t.viewBuf.WriteString("\n")

	// Input prompt - always accepts typing, even during streaming, so
	// the next message can be prepared while the model responds.
	_, _ = t.viewBuf.WriteString(t.styles.Prompt.Render("> "))
	_, _ = t.viewBuf.WriteString(t.input.View())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderSeparator())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderStatusBar())

	v := tea.NewView(t.viewBuf.String())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

// rebuildViewportContent reconstructs the viewport from the engine's
// message snapshot. Called whenever the transcript or state changes.
func (t *TUI) rebuildViewportContent() {
	var b strings.Builder

	_, _ = b.WriteString(t.styles.RenderBanner())
	_, _ = b.WriteString("\n")

	title := t.sessionTitle()
	if title != "" {
		_, _ = b.WriteString(t.styles.Header.Render(title))
		_, _ = b.WriteString("\n\n")
	}

	msgs := t.engine.Messages()
	if len(msgs) == 0 {
		_, _ = b.WriteString(t.styles.RenderWelcomeTips())
		_, _ = b.WriteString("\n")
	}

	for _, msg := range msgs {
		switch {
		case msg.Role == session.RoleUser:
			_, _ = b.WriteString(t.styles.User.Render("You> "))
			_, _ = b.WriteString(msg.Content)
		case msg.IsError:
			_, _ = b.WriteString(t.styles.Error.Render(msg.Content))
		default:
			_, _ = b.WriteString(t.styles.Assistant.Render("Parley> "))
			_, _ = b.WriteString(t.markdown.Render(msg.Content))
		}
		_, _ = b.WriteString("\n\n")
	}

	if t.state == StateThinking {
		_, _ = b.WriteString(t.spinner.View())
		_, _ = b.WriteString(" ")
		_, _ = b.WriteString(i18n.T("chat.thinking"))
		_, _ = b.WriteString("\n\n")
	}

	if t.notice != "" {
		_, _ = b.WriteString(t.styles.System.Render(t.notice))
		_, _ = b.WriteString("\n")
		t.notice = ""
	}

	t.viewport.SetContent(b.String())
}

// sessionTitle returns the active session's title for the header line.
func (t *TUI) sessionTitle() string {
	sess, ok := t.engine.Sessions().Get(t.engine.ActiveSession())
	if !ok {
		return ""
	}
	return sess.Title
}

// renderSeparator returns a horizontal line separator.
func (t *TUI) renderSeparator() string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	return t.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (t *TUI) renderStatusBar() string {
	var bindings []key.Binding
	switch t.state {
	case StateInput:
		bindings = []key.Binding{
			t.keys.Submit, t.keys.NewLine, t.keys.Regenerate,
			t.keys.NewChat, t.keys.History, t.keys.Quit,
		}
	case StateThinking, StateStreaming:
		bindings = []key.Binding{
			t.keys.EscCancel, t.keys.Cancel,
			t.keys.ScrollUp, t.keys.ScrollDown,
		}
	}
	return t.help.ShortHelpView(bindings)
}
