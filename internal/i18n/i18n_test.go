package i18n

import (
	"strings"
	"testing"
)

func TestT(t *testing.T) {
	Init(LangEN)
	t.Cleanup(func() { Init(LangEN) })

	if got := T("session.default_title"); got != "New Chat" {
		t.Errorf("T(session.default_title) = %q", got)
	}

	Init("zh-TW")
	if got := T("session.default_title"); got != "新對話" {
		t.Errorf("zh-TW T(session.default_title) = %q", got)
	}

	// Unknown keys fall back to the key itself.
	if got := T("no.such.key"); got != "no.such.key" {
		t.Errorf("T(unknown) = %q, want the key", got)
	}
}

func TestInit_Variations(t *testing.T) {
	t.Cleanup(func() { Init(LangEN) })

	tests := []struct {
		input string
		want  string
	}{
		{"en", LangEN},
		{"EN-US", LangEN},
		{"english", LangEN},
		{"zh-TW", LangZhTW},
		{"zh_tw", LangZhTW},
		{"Traditional Chinese", LangZhTW},
		{"klingon", LangEN}, // unknown falls back to English
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			Init(tt.input)
			if got := GetLanguage(); got != tt.want {
				t.Errorf("Init(%q) -> %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestJapaneseFallsBackToEnglish(t *testing.T) {
	t.Cleanup(func() { Init(LangEN) })

	// Japanese is reserved: no message file yet, English strings serve.
	Init("ja")
	if got := GetLanguage(); got != LangJA {
		t.Fatalf("GetLanguage() = %q, want ja", got)
	}
	if got := T("session.default_title"); got != "New Chat" {
		t.Errorf("ja T(session.default_title) = %q, want English fallback", got)
	}
}

func TestSprintf(t *testing.T) {
	Init(LangEN)
	got := Sprintf("tui.unknown_command", "/frobnicate")
	if !strings.Contains(got, "/frobnicate") {
		t.Errorf("Sprintf() = %q, want the argument interpolated", got)
	}
}

func TestAll(t *testing.T) {
	Init(LangEN)
	titles := All("session.default_title")
	if len(titles) != len(GetSupportedLanguages()) {
		t.Fatalf("All() count = %d, want one per supported language", len(titles))
	}

	want := map[string]bool{"New Chat": false, "新對話": false}
	for _, title := range titles {
		if _, ok := want[title]; !ok {
			t.Errorf("unexpected localized value %q", title)
		}
		want[title] = true
	}
	for title, seen := range want {
		if !seen {
			t.Errorf("missing localized value %q", title)
		}
	}
}

func TestIsLanguageSupported(t *testing.T) {
	if !IsLanguageSupported("en") || !IsLanguageSupported("ZH-tw") {
		t.Error("supported languages rejected")
	}
	if IsLanguageSupported("ja") {
		t.Error("reserved language reported as supported")
	}
	if IsLanguageSupported("fr") {
		t.Error("unknown language reported as supported")
	}
}
