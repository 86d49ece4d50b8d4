package llm

import (
	"fmt"
	"slices"
	"strings"
)

// Backend identifies one of the supported model vendors.
type Backend int

const (
	BackendOpenAI Backend = iota
	BackendAnthropic
	BackendDeepSeek
	BackendGemini
)

// Default model per backend.
const (
	ModelOpenAIGPT4oMini        = "gpt-4o-mini"
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelDeepSeekChat           = "deepseek-chat"
	ModelGeminiFlash2           = "gemini-2.0-flash"
)

// Options tune a provider. Empty Model and zero MaxTokens select the
// backend defaults; BaseURL is ignored by Gemini.
type Options struct {
	Model       string
	BaseURL     string
	MaxTokens   uint32
	Temperature float32
}

const defaultMaxTokens = 4096

type backendSpec struct {
	name         string
	aliases      []string
	keyEnv       string
	defaultModel string
	open         func(apiKey string, o Options) Provider
}

var backendSpecs = map[Backend]backendSpec{
	BackendOpenAI: {
		name: "openai", aliases: []string{"gpt"}, keyEnv: "OPENAI_API_KEY",
		defaultModel: ModelOpenAIGPT4oMini,
		open: func(key string, o Options) Provider {
			return NewOpenAIProvider(key, o.BaseURL, o.Model, o.MaxTokens, o.Temperature)
		},
	},
	BackendAnthropic: {
		name: "anthropic", aliases: []string{"claude"}, keyEnv: "ANTHROPIC_API_KEY",
		defaultModel: ModelAnthropicClaudeSonnet4,
		open: func(key string, o Options) Provider {
			return NewAnthropicProvider(key, o.BaseURL, o.Model, o.MaxTokens, o.Temperature)
		},
	},
	BackendDeepSeek: {
		name: "deepseek", keyEnv: "DEEPSEEK_API_KEY",
		defaultModel: ModelDeepSeekChat,
		open: func(key string, o Options) Provider {
			return NewDeepSeekProvider(key, o.BaseURL, o.Model, o.MaxTokens, o.Temperature)
		},
	},
	BackendGemini: {
		name: "gemini", aliases: []string{"google"}, keyEnv: "GEMINI_API_KEY",
		defaultModel: ModelGeminiFlash2,
		open: func(key string, o Options) Provider {
			return NewGeminiProvider(key, o.Model, o.MaxTokens, o.Temperature)
		},
	},
}

// Backends lists every backend in display order.
var Backends = []Backend{BackendOpenAI, BackendAnthropic, BackendDeepSeek, BackendGemini}

func (b Backend) String() string {
	if s, ok := backendSpecs[b]; ok {
		return s.name
	}
	return "unknown"
}

// EnvVar names the environment variable holding the backend's API key.
func (b Backend) EnvVar() string { return backendSpecs[b].keyEnv }

// DefaultModel is the model used when Options.Model is empty.
func (b Backend) DefaultModel() string { return backendSpecs[b].defaultModel }

// ParseBackend accepts a backend name or alias, ignoring case and
// surrounding space.
func ParseBackend(s string) (Backend, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, b := range Backends {
		spec := backendSpecs[b]
		if spec.name == name || slices.Contains(spec.aliases, name) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown provider: %s", s)
}

// Open creates a provider for the backend with the given key.
func (b Backend) Open(apiKey string, o Options) (Provider, error) {
	spec, ok := backendSpecs[b]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %d", int(b))
	}
	if o.Model == "" {
		o.Model = spec.defaultModel
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = defaultMaxTokens
	}
	return spec.open(apiKey, o), nil
}
