package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
schema = "schema"
dialect = "ansi"
log_level = "debug"

[check]
database = "/tmp/check.db"
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Schema != filepath.Join(dir, "schema") {
		t.Errorf("expected schema resolved against config dir, got %q", cfg.Schema)
	}
	if cfg.Dialect != "ansi" {
		t.Errorf("expected dialect 'ansi', got %q", cfg.Dialect)
	}
	if cfg.Check.Database != "/tmp/check.db" {
		t.Errorf("expected absolute database path kept, got %q", cfg.Check.Database)
	}

	level, err := cfg.Level()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", level)
	}
}

func TestLoadFrom_UnknownKey(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
schema = "schema"
dialcet = "ansi"
`)

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadFrom_Malformed(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `schema = `)

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad(t *testing.T) {
	t.Run("explicit missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Fatal("expected error for missing explicit config")
		}
	})

	t.Run("no default file", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Schema != "" || cfg.Dialect != "" {
			t.Errorf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("default file in working directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, `dialect = "sqlite"`)
		t.Chdir(dir)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Dialect != "sqlite" {
			t.Errorf("expected dialect 'sqlite', got %q", cfg.Dialect)
		}
	})
}

func TestConfigLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"info", slog.LevelInfo},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		level, err := (&Config{LogLevel: tt.in}).Level()
		if err != nil {
			t.Fatalf("Level(%q): unexpected error: %v", tt.in, err)
		}
		if level != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.in, level, tt.want)
		}
	}

	if _, err := (&Config{LogLevel: "loud"}).Level(); err == nil {
		t.Error("expected error for unknown level")
	}
}
