package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://api.vetski.test/")
	t.Setenv("DB_PORT", "")
	cfg := LoadConfig()

	if cfg.DBPort != "5432" {
		t.Errorf("expected default db port 5432, got %q", cfg.DBPort)
	}
	if cfg.WebhookURL() != "https://api.vetski.test/transcriptions/webhook" {
		t.Errorf("unexpected webhook url %q", cfg.WebhookURL())
	}
}

func TestValidateListsMissing(t *testing.T) {
	err := Config{DBHost: "db"}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"DB_USER", "DB_NAME", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %s in %q", name, err.Error())
		}
	}
	if strings.Contains(err.Error(), "DB_HOST") {
		t.Errorf("DB_HOST is set, should not be reported")
	}
}

func TestLoadPromptsOverride(t *testing.T) {
	p, err := LoadPrompts("")
	if err != nil {
		t.Fatalf("embedded prompts: %v", err)
	}
	if p.TranscriptPrefix != "Transcript update:" || p.ChatSystem == "" {
		t.Fatalf("unexpected embedded prompts: %+v", p)
	}

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("chat_system: custom\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err = LoadPrompts(path)
	if err != nil {
		t.Fatalf("override prompts: %v", err)
	}
	if p.ChatSystem != "custom" {
		t.Errorf("expected override, got %q", p.ChatSystem)
	}
	if p.ConsultationSystem == "" {
		t.Errorf("expected blank keys to keep defaults")
	}
}
