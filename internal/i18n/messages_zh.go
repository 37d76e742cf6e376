package i18n

// loadChineseMessages registers the Traditional Chinese message set.
func loadChineseMessages() {
	zh := messages[LangZhTW]

	// Session
	zh["session.default_title"] = "新對話"
	zh["session.deleted"] = "對話已刪除。"
	zh["sessions.empty"] = "尚無對話，執行 parley 開始新對話"
	zh["sessions.header"] = "對話列表"

	// Chat
	zh["chat.error_response"] = "抱歉，產生回應時發生錯誤，請再試一次。"
	zh["chat.prompt"] = "你："
	zh["chat.assistant"] = "Parley："
	zh["chat.thinking"] = "思考中..."
	zh["chat.placeholder"] = "想問什麼都可以..."

	// Title derivation
	zh["title.language"] = "繁體中文"

	// General
	zh["welcome"] = "Parley v%s — 與模型對話，紀錄自動保存。"
	zh["welcome.help"] = "輸入訊息後按 Enter 送出，連按兩次 Ctrl+C 離開。"
	zh["goodbye"] = "再見！"

	// Errors (CLI surfaces)
	zh["error.config"] = "載入設定失敗：%v"
	zh["error.storage"] = "開啟儲存空間失敗：%v"
	zh["error.session"] = "準備對話失敗：%v"

	// TUI help bar
	zh["tui.help.send"] = "送出"
	zh["tui.help.retry"] = "重試"
	zh["tui.help.newchat"] = "新對話"
	zh["tui.help.quit"] = "離開"

	// TUI surfaces
	zh["tui.busy"] = "回應仍在產生中。"
	zh["tui.help"] = "指令：/help、/new、/retry、/exit\n快捷鍵：Ctrl+N 新對話、Ctrl+R 重試、Ctrl+C 取消、Ctrl+D 離開、↑/↓ 歷史、PgUp/PgDn 捲動"
	zh["tui.unknown_command"] = "未知的指令：%s"
	zh["tui.tips"] = "快速上手：\n  • 輸入訊息後按 Enter 送出\n  • 輸入 /help 查看可用指令\n  • 按 Ctrl+R 重新產生上一則回應\n  • 按 Ctrl+N 開始新對話"
	zh["error.session_create"] = "建立對話失敗：%v"
}
