package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MENTORSPACE_PROVIDER", "MENTORSPACE_ADDR", "MENTORSPACE_REMOTE_URL",
		"LLM_MAX_TOKENS", "LLM_TEMPERATURE",
		"SANDBOX_TIMEOUT", "SANDBOX_ALLOWED_COMMANDS",
		"ANALYSIS_CACHE_TTL", "ANALYSIS_CACHE_PATH", "ANALYSIS_REVIEWER",
		"LOG_LEVEL", "LOG_FORMAT",
		"OPENAI_MODEL", "ANTHROPIC_MODEL", "DEEPSEEK_MODEL", "GEMINI_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mentorspace.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewDefaults(t *testing.T) {
	clearEnv(t)
	s, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s, Defaults()) {
		t.Errorf("settings = %+v, want defaults %+v", s, Defaults())
	}
}

func TestNewWithAlias(t *testing.T) {
	clearEnv(t)
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
	if settings.LLM.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", settings.LLM.Model)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	clearEnv(t)
	if _, err := New("unknown_provider"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MENTORSPACE_PROVIDER", "gemini")
	t.Setenv("GEMINI_MODEL", "gemini-custom")
	t.Setenv("SANDBOX_TIMEOUT", "3s")
	t.Setenv("SANDBOX_ALLOWED_COMMANDS", "python, node ,")
	t.Setenv("ANALYSIS_REVIEWER", "none")
	t.Setenv("MENTORSPACE_REMOTE_URL", "http://backend:8080")

	s, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LLM.Provider != "gemini" || s.LLM.Model != "gemini-custom" {
		t.Errorf("llm = %+v", s.LLM)
	}
	if s.Sandbox.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", s.Sandbox.Timeout)
	}
	if !reflect.DeepEqual(s.Sandbox.AllowedCommands, []string{"python", "node"}) {
		t.Errorf("allowed = %v", s.Sandbox.AllowedCommands)
	}
	if s.Analysis.Reviewer != "none" || s.Remote.BaseURL != "http://backend:8080" {
		t.Errorf("settings = %+v", s)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
provider: deepseek
model: deepseek-coder
temperature: 0
server:
  addr: ":9000"
sandbox:
  timeout: 30s
  allowed_commands: [pytest]
analysis:
  cache_ttl: 1h
  cache_path: /tmp/cache.db
log:
  level: debug
  format: json
`)
	t.Setenv("LOG_LEVEL", "warn")

	s, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LLM.Provider != "deepseek" || s.LLM.Model != "deepseek-coder" || s.LLM.Temperature != 0 {
		t.Errorf("llm = %+v", s.LLM)
	}
	if s.Server.Addr != ":9000" || s.Sandbox.Timeout != 30*time.Second {
		t.Errorf("settings = %+v", s)
	}
	if s.Analysis.CacheTTL != time.Hour || s.Analysis.CachePath != "/tmp/cache.db" {
		t.Errorf("analysis = %+v", s.Analysis)
	}
	if s.Log.Level != "warn" || s.Log.Format != "json" {
		t.Errorf("log = %+v", s.Log)
	}

	// An explicit different provider ignores the file's model.
	s, err = Load(path, "openai")
	if err != nil {
		t.Fatal(err)
	}
	if s.LLM.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want openai default", s.LLM.Model)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "sandbox: [not, a, map]"), ""); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(writeConfig(t, "sandbox:\n  timeout: soon\n"), ""); err == nil {
		t.Error("expected duration error")
	}
}

func TestAPIKeyFor(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	key, err := APIKeyFor("gpt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}

	t.Setenv("OPENAI_API_KEY", "")
	if _, err := APIKeyFor("openai"); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := APIKeyFor("unknown"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestModelFor(t *testing.T) {
	t.Setenv("DEEPSEEK_MODEL", "")
	model, err := ModelFor("deepseek")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "deepseek-chat" {
		t.Errorf("model = %q", model)
	}
}

func TestInvalidEnvValues(t *testing.T) {
	for key, val := range map[string]string{
		"LLM_MAX_TOKENS":     "not-a-number",
		"LLM_TEMPERATURE":    "hot",
		"ANALYSIS_CACHE_TTL": "forever",
		"ANALYSIS_REVIEWER":  "human",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			if _, err := New("openai"); err == nil {
				t.Errorf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestMustNewPanics(t *testing.T) {
	clearEnv(t)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("unknown_provider")
}
