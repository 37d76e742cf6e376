package config

import (
	"fmt"
	"strings"

	"github.com/parley0/parley/internal/i18n"
)

// Validate checks configuration values against their allowed ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	switch c.Storage {
	case StorageLocal, StoragePostgres:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidStorage, c.Storage, StorageLocal, StoragePostgres)
	}

	if !i18n.IsLanguageSupported(c.Language) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrInvalidLanguage, c.Language,
			strings.Join(i18n.GetSupportedLanguages(), ", "))
	}

	switch c.SendKey {
	case "enter", "ctrl+enter":
	default:
		return fmt.Errorf("%w: %q (want \"enter\" or \"ctrl+enter\")", ErrInvalidSendKey, c.SendKey)
	}

	if c.FontSize < MinFontSize || c.FontSize > MaxFontSize {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidFontSize, c.FontSize, MinFontSize, MaxFontSize)
	}

	if c.Storage == StoragePostgres {
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
		}
	}

	return nil
}
