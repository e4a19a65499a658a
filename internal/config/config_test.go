package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPathAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "quota:\n  daily_limit: 50\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Quota.DailyLimit != 50 {
		t.Errorf("daily_limit = %d, want 50", cfg.Quota.DailyLimit)
	}
	if cfg.Models.Primary != "claude-sonnet-4-20250514" {
		t.Errorf("primary model default missing, got %q", cfg.Models.Primary)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("max_attempts default = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.Delay != 2*time.Second {
		t.Errorf("delay default = %v, want 2s", cfg.Retry.Delay)
	}
	if cfg.Streaming.ChunkWords != 15 || cfg.Streaming.ChunkDelay != 80*time.Millisecond {
		t.Errorf("streaming defaults = %d/%v", cfg.Streaming.ChunkWords, cfg.Streaming.ChunkDelay)
	}
}

func TestLoadFromPathOverrides(t *testing.T) {
	path := writeConfig(t, `
models:
  primary: model-a
  fallback: model-b
  fallback_after_attempts: 5
retry:
  max_attempts: 7
  delay: 500ms
streaming:
  chunk_words: 4
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Models.Primary != "model-a" || cfg.Models.Fallback != "model-b" {
		t.Errorf("models = %+v", cfg.Models)
	}
	if cfg.Models.FallbackAfterAttempts != 5 {
		t.Errorf("fallback_after_attempts = %d", cfg.Models.FallbackAfterAttempts)
	}
	if cfg.Retry.MaxAttempts != 7 || cfg.Retry.Delay != 500*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Streaming.ChunkWords != 4 {
		t.Errorf("chunk_words = %d", cfg.Streaming.ChunkWords)
	}
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero daily limit", "quota:\n  daily_limit: 0\n"},
		{"warn fraction above one", "quota:\n  warn_fraction: 1.5\n"},
		{"zero max attempts", "retry:\n  max_attempts: 0\n"},
		{"empty primary model", "models:\n  primary: \"\"\n"},
		{"zero chunk words", "streaming:\n  chunk_words: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := LoadFromPath(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestUsageDBPathPrefersConfigured(t *testing.T) {
	cfg := Default()
	cfg.Quota.DBPath = "/tmp/custom.db"
	if got := cfg.UsageDBPath(); got != "/tmp/custom.db" {
		t.Errorf("UsageDBPath = %q", got)
	}

	cfg.Quota.DBPath = ""
	if got := cfg.UsageDBPath(); got == "" {
		t.Error("expected XDG fallback path")
	}
}
