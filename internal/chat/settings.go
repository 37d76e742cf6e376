package chat

import "github.com/parley0/parley/internal/i18n"

// SendKey selects how the input surface submits a message.
type SendKey string

// Submit key behaviors.
const (
	SendKeyEnter     SendKey = "enter"      // Enter submits, Shift+Enter inserts newline
	SendKeyCtrlEnter SendKey = "ctrl+enter" // Ctrl/Cmd+Enter submits, Enter inserts newline
)

// Settings is the runtime-mutable configuration snapshot consumed by the
// engine and the front-ends. Snapshots are immutable: UpdateSettings
// swaps the whole value atomically, so readers never observe a torn
// update. Persisting the settings is the config package's concern.
type Settings struct {
	// SystemInstruction is applied to every subsequent send.
	SystemInstruction string

	// Language is the UI locale (one of i18n's supported languages).
	Language string

	// SendKey selects the submit key behavior.
	SendKey SendKey

	// FontSize is the display font size for graphical front-ends.
	FontSize int
}

// normalize fills defaults for zero-value fields.
func (s Settings) normalize() Settings {
	if s.Language == "" {
		s.Language = i18n.GetLanguage()
	}
	if s.SendKey != SendKeyCtrlEnter {
		s.SendKey = SendKeyEnter
	}
	if s.FontSize <= 0 {
		s.FontSize = 14
	}
	return s
}

// Settings returns the current settings snapshot.
func (e *Engine) Settings() Settings {
	return *e.settings.Load()
}

// UpdateSettings replaces the settings snapshot. The new snapshot applies
// to subsequent sends; an in-flight generation keeps the snapshot it
// started with.
func (e *Engine) UpdateSettings(s Settings) {
	normalized := s.normalize()
	e.settings.Store(&normalized)
	if normalized.Language != "" {
		i18n.SetLanguage(normalized.Language)
	}
}
