package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func defaultTestConfig() *Config {
	return &Config{
		ModelName: "googleai/gemini-2.5-flash",
		Language:  "en",
		SendKey:   "enter",
		FontSize:  14,
		Storage:   StorageLocal,
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := load(dir)
	if err != nil {
		t.Fatalf("load() unexpected error: %v", err)
	}

	if cfg.ModelName != "googleai/gemini-2.5-flash" {
		t.Errorf("ModelName = %q, want default", cfg.ModelName)
	}
	if cfg.Storage != StorageLocal {
		t.Errorf("Storage = %q, want %q", cfg.Storage, StorageLocal)
	}
	if cfg.Language != "en" {
		t.Errorf("Language = %q, want %q", cfg.Language, "en")
	}
	if cfg.SendKey != "enter" {
		t.Errorf("SendKey = %q, want %q", cfg.SendKey, "enter")
	}
	if cfg.FontSize != 14 {
		t.Errorf("FontSize = %d, want 14", cfg.FontSize)
	}
	if want := filepath.Join(dir, "data"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("language: zh-TW\nfont_size: 18\nstorage: postgres\npostgres_password: secret\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := load(dir)
	if err != nil {
		t.Fatalf("load() unexpected error: %v", err)
	}

	if cfg.Language != "zh-TW" {
		t.Errorf("Language = %q, want %q", cfg.Language, "zh-TW")
	}
	if cfg.FontSize != 18 {
		t.Errorf("FontSize = %d, want 18", cfg.FontSize)
	}
	if cfg.Storage != StoragePostgres {
		t.Errorf("Storage = %q, want %q", cfg.Storage, StoragePostgres)
	}
	if cfg.PostgresPassword != "secret" {
		t.Errorf("PostgresPassword = %q, want %q", cfg.PostgresPassword, "secret")
	}
	// Unset keys keep defaults.
	if cfg.SendKey != "enter" {
		t.Errorf("SendKey = %q, want default", cfg.SendKey)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("language: en\nfont_size: 12\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("PARLEY_LANGUAGE", "zh-TW")
	t.Setenv("PARLEY_FONT_SIZE", "20")

	cfg, err := load(dir)
	if err != nil {
		t.Fatalf("load() unexpected error: %v", err)
	}

	if cfg.Language != "zh-TW" {
		t.Errorf("Language = %q, want env override %q", cfg.Language, "zh-TW")
	}
	if cfg.FontSize != 20 {
		t.Errorf("FontSize = %d, want env override 20", cfg.FontSize)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := defaultTestConfig()
	cfg.Language = "zh-TW"
	cfg.FontSize = 16
	cfg.SystemInstruction = "be terse"

	if err := save(cfg, dir); err != nil {
		t.Fatalf("save() unexpected error: %v", err)
	}

	loaded, err := load(dir)
	if err != nil {
		t.Fatalf("load() after save unexpected error: %v", err)
	}
	if loaded.Language != "zh-TW" {
		t.Errorf("Language = %q, want %q", loaded.Language, "zh-TW")
	}
	if loaded.FontSize != 16 {
		t.Errorf("FontSize = %d, want 16", loaded.FontSize)
	}
	if loaded.SystemInstruction != "be terse" {
		t.Errorf("SystemInstruction = %q, want %q", loaded.SystemInstruction, "be terse")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "  " },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage = "redis" },
			wantErr: ErrInvalidStorage,
		},
		{
			name:    "unknown language",
			mutate:  func(c *Config) { c.Language = "fr" },
			wantErr: ErrInvalidLanguage,
		},
		{
			name:    "unknown send key",
			mutate:  func(c *Config) { c.SendKey = "shift+enter" },
			wantErr: ErrInvalidSendKey,
		},
		{
			name:    "font size too small",
			mutate:  func(c *Config) { c.FontSize = 4 },
			wantErr: ErrInvalidFontSize,
		},
		{
			name:    "font size too large",
			mutate:  func(c *Config) { c.FontSize = 64 },
			wantErr: ErrInvalidFontSize,
		},
		{
			name: "bad postgres port with postgres storage",
			mutate: func(c *Config) {
				c.Storage = StoragePostgres
				c.PostgresPort = 0
			},
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name: "bad postgres port ignored with local storage",
			mutate: func(c *Config) {
				c.Storage = StorageLocal
				c.PostgresPort = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultTestConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConnString(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "db.example.com",
		PostgresPort:     5433,
		PostgresUser:     "parley",
		PostgresPassword: "pw",
		PostgresDBName:   "parley",
		PostgresSSLMode:  "require",
	}

	want := "postgres://parley:pw@db.example.com:5433/parley?sslmode=require"
	if got := cfg.ConnString(); got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}
}

func TestMarshalJSON_MasksPassword(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.PostgresPassword = "super-secret"

	data, err := cfg.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() unexpected error: %v", err)
	}

	got := string(data)
	if strings.Contains(got, "super-secret") {
		t.Errorf("MarshalJSON() leaked password: %s", got)
	}
	if !strings.Contains(got, "********") {
		t.Errorf("MarshalJSON() missing mask: %s", got)
	}
}
