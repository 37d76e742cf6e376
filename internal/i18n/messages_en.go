package i18n

// loadEnglishMessages registers the English message set.
func loadEnglishMessages() {
	en := messages[LangEN]

	// Session
	en["session.default_title"] = "New Chat"
	en["session.deleted"] = "Session deleted."
	en["sessions.empty"] = "No sessions yet. Start one with: parley"
	en["sessions.header"] = "SESSIONS"

	// Chat
	en["chat.error_response"] = "Sorry, something went wrong while generating a response. Please try again."
	en["chat.prompt"] = "You: "
	en["chat.assistant"] = "Parley: "
	en["chat.thinking"] = "Thinking..."
	en["chat.placeholder"] = "Ask anything..."

	// Title derivation
	en["title.language"] = "English"

	// General
	en["welcome"] = "Parley v%s — chat with your model, sessions persist."
	en["welcome.help"] = "Type a message and press Enter. Ctrl+C twice to quit."
	en["goodbye"] = "Goodbye!"

	// Errors (CLI surfaces)
	en["error.config"] = "failed to load configuration: %v"
	en["error.storage"] = "failed to open storage: %v"
	en["error.session"] = "failed to prepare session: %v"

	// TUI help bar
	en["tui.help.send"] = "send"
	en["tui.help.retry"] = "retry"
	en["tui.help.newchat"] = "new chat"
	en["tui.help.quit"] = "quit"

	// TUI surfaces
	en["tui.busy"] = "A response is still being generated."
	en["tui.help"] = "Commands: /help, /new, /retry, /exit\nShortcuts: Ctrl+N new chat, Ctrl+R retry, Ctrl+C cancel, Ctrl+D exit, ↑/↓ history, PgUp/PgDn scroll"
	en["tui.unknown_command"] = "Unknown command: %s"
	en["tui.tips"] = "Tips for getting started:\n  • Type a message and press Enter to send\n  • Use /help to see available commands\n  • Press Ctrl+R to regenerate the last response\n  • Press Ctrl+N to start a new chat"
	en["error.session_create"] = "Creating session failed: %v"
}
