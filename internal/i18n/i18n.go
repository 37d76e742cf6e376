// Package i18n provides localized user-facing strings for parley.
//
// The locale set is closed: adding a language means adding a message file
// and extending the switch in Init.
package i18n

import (
	"fmt"
	"os"
	"strings"
)

// Supported languages
const (
	LangEN   = "en"
	LangZhTW = "zh-TW"
	LangJA   = "ja" // Reserved for future
)

// currentLang holds the current language setting
var currentLang = LangEN

// messages stores all translations
var messages = make(map[string]map[string]string)

// Init initializes the i18n system with the specified language
func Init(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))

	// Map common variations
	switch lang {
	case "en", "en-us", "english":
		currentLang = LangEN
	case "zh-tw", "zh_tw", "zh-hant", "chinese", "traditional chinese":
		currentLang = LangZhTW
	case "ja", "jp", "japanese":
		currentLang = LangJA
	default:
		if envLang := os.Getenv("PARLEY_LANG"); envLang != "" && !strings.EqualFold(envLang, lang) {
			Init(envLang)
			return
		}
		currentLang = LangEN
	}

	loadMessages()
}

// SetLanguage changes the current language
func SetLanguage(lang string) {
	Init(lang)
}

// GetLanguage returns the current language
func GetLanguage() string {
	return currentLang
}

// T returns the translated message for the given key.
// Falls back to English, then to the key itself.
func T(key string) string {
	if msg, ok := messages[currentLang][key]; ok {
		return msg
	}

	if msg, ok := messages[LangEN][key]; ok {
		return msg
	}

	return key
}

// Sprintf returns the translated and formatted message
func Sprintf(key string, args ...any) string {
	return fmt.Sprintf(T(key), args...)
}

// All returns the key's translation in every supported locale.
// Useful when a stored value must be compared against a localized
// default regardless of the locale it was written under.
func All(key string) []string {
	out := make([]string, 0, len(messages))
	for _, lang := range GetSupportedLanguages() {
		if msg, ok := messages[lang][key]; ok {
			out = append(out, msg)
		}
	}
	return out
}

// loadMessages initializes the message maps
func loadMessages() {
	messages[LangEN] = make(map[string]string)
	messages[LangZhTW] = make(map[string]string)
	messages[LangJA] = make(map[string]string)

	loadEnglishMessages()
	loadChineseMessages()
	// Japanese reserved; falls back to English until a message file exists.
}

// GetSupportedLanguages returns a list of supported language codes
func GetSupportedLanguages() []string {
	return []string{LangEN, LangZhTW}
}

// IsLanguageSupported checks if a language is supported
func IsLanguageSupported(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, supported := range GetSupportedLanguages() {
		if strings.EqualFold(lang, supported) {
			return true
		}
	}
	return false
}

func init() {
	if envLang := os.Getenv("PARLEY_LANG"); envLang != "" {
		Init(envLang)
	} else {
		Init(LangEN)
	}
}
