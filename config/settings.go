// Package config provides application settings loaded from an optional
// YAML file and environment variables.
//
// Precedence, lowest first: defaults, config file, environment, and
// finally the explicit provider passed by the caller.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Server   ServerConfig
	Sandbox  SandboxConfig
	Analysis AnalysisConfig
	Log      LogConfig
	Remote   RemoteConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string
}

// SandboxConfig holds command execution limits.
type SandboxConfig struct {
	Timeout         time.Duration
	AllowedCommands []string
}

// AnalysisConfig holds analysis service configuration. An empty CachePath
// keeps the cache in memory.
type AnalysisConfig struct {
	CacheTTL  time.Duration
	CachePath string
	// Reviewer is "llm" or "none".
	Reviewer string
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string
}

// RemoteConfig points the session's collaborators at a backend. Empty
// means collaborators run in-process.
type RemoteConfig struct {
	BaseURL string
}

// File mirrors the YAML config file. Durations are strings such as "30s".
type File struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	MaxTokens   uint32   `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	Server      struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Sandbox struct {
		Timeout         string   `yaml:"timeout"`
		AllowedCommands []string `yaml:"allowed_commands"`
	} `yaml:"sandbox"`
	Analysis struct {
		CacheTTL  string `yaml:"cache_ttl"`
		CachePath string `yaml:"cache_path"`
		Reviewer  string `yaml:"reviewer"`
	} `yaml:"analysis"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Remote struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"remote"`
}

// DefaultAllowedCommands are the interpreters and tools the sandbox runs
// when nothing else is configured.
var DefaultAllowedCommands = []string{"python", "python3", "pytest", "node", "go", "sh", "cat", "ls"}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.0-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

const defaultProvider = "openai"

// Defaults returns settings with every field at its default.
func Defaults() Settings {
	return Settings{
		LLM: LLMConfig{
			Provider:    defaultProvider,
			Model:       providers[defaultProvider].defaultModel,
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		Server:   ServerConfig{Addr: ":8080"},
		Sandbox:  SandboxConfig{Timeout: 10 * time.Second, AllowedCommands: DefaultAllowedCommands},
		Analysis: AnalysisConfig{CacheTTL: 10 * time.Minute, Reviewer: "llm"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// New creates settings for the specified provider from defaults and the
// environment. An empty provider falls back to MENTORSPACE_PROVIDER, then
// openai.
func New(provider string) (Settings, error) {
	return Load("", provider)
}

// Load reads path, when non-empty, then overlays the environment and
// provider.
func Load(path, provider string) (Settings, error) {
	s := Defaults()
	fileModel := ""
	if path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return Settings{}, err
		}
		if err := s.applyFile(f); err != nil {
			return Settings{}, fmt.Errorf("config %s: %w", path, err)
		}
		fileModel = f.Model
	}
	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}

	if provider == "" {
		provider = os.Getenv("MENTORSPACE_PROVIDER")
	}
	explicit := provider != ""
	if !explicit {
		provider = s.LLM.Provider
	}
	provider = normalizeProvider(provider)
	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	// A file model only applies to the file's own provider.
	switch model := os.Getenv(info.modelEnv); {
	case model != "":
		s.LLM.Model = model
	case fileModel != "" && (!explicit || provider == normalizeProvider(s.LLM.Provider)):
		s.LLM.Model = fileModel
	default:
		s.LLM.Model = info.defaultModel
	}
	s.LLM.Provider = provider
	return s, nil
}

// LoadFile parses a YAML config file.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

func (s *Settings) applyFile(f File) error {
	if f.Provider != "" {
		s.LLM.Provider = normalizeProvider(f.Provider)
	}
	if f.MaxTokens != 0 {
		s.LLM.MaxTokens = f.MaxTokens
	}
	if f.Temperature != nil {
		s.LLM.Temperature = *f.Temperature
	}
	setString(&s.Server.Addr, f.Server.Addr)
	if len(f.Sandbox.AllowedCommands) > 0 {
		s.Sandbox.AllowedCommands = f.Sandbox.AllowedCommands
	}
	if err := setDuration(&s.Sandbox.Timeout, "sandbox.timeout", f.Sandbox.Timeout); err != nil {
		return err
	}
	if err := setDuration(&s.Analysis.CacheTTL, "analysis.cache_ttl", f.Analysis.CacheTTL); err != nil {
		return err
	}
	setString(&s.Analysis.CachePath, f.Analysis.CachePath)
	setString(&s.Analysis.Reviewer, f.Analysis.Reviewer)
	setString(&s.Log.Level, f.Log.Level)
	setString(&s.Log.Format, f.Log.Format)
	setString(&s.Remote.BaseURL, f.Remote.BaseURL)
	return nil
}

func (s *Settings) applyEnv() error {
	var err error
	if s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", s.LLM.MaxTokens); err != nil {
		return err
	}
	if s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", s.LLM.Temperature); err != nil {
		return err
	}
	if s.Sandbox.Timeout, err = getEnvDuration("SANDBOX_TIMEOUT", s.Sandbox.Timeout); err != nil {
		return err
	}
	if s.Analysis.CacheTTL, err = getEnvDuration("ANALYSIS_CACHE_TTL", s.Analysis.CacheTTL); err != nil {
		return err
	}
	setString(&s.Server.Addr, os.Getenv("MENTORSPACE_ADDR"))
	if v := os.Getenv("SANDBOX_ALLOWED_COMMANDS"); v != "" {
		s.Sandbox.AllowedCommands = splitList(v)
	}
	setString(&s.Analysis.CachePath, os.Getenv("ANALYSIS_CACHE_PATH"))
	setString(&s.Analysis.Reviewer, os.Getenv("ANALYSIS_REVIEWER"))
	setString(&s.Log.Level, os.Getenv("LOG_LEVEL"))
	setString(&s.Log.Format, os.Getenv("LOG_FORMAT"))
	setString(&s.Remote.BaseURL, os.Getenv("MENTORSPACE_REMOTE_URL"))

	switch s.Analysis.Reviewer {
	case "llm", "none":
	default:
		return fmt.Errorf("invalid analysis reviewer %q: want llm or none", s.Analysis.Reviewer)
	}
	return nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// Environment variable helpers

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d := defaultVal
	if err := setDuration(&d, key, os.Getenv(key)); err != nil {
		return 0, err
	}
	return d, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
