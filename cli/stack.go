// Component wiring for CLI commands.
//
// Information Hiding:
// - Settings resolution and provider construction hidden
// - Cache backend selection hidden
// - Local versus remote collaborator choice hidden

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/richinex/mentorspace/actionlog"
	"github.com/richinex/mentorspace/agent"
	"github.com/richinex/mentorspace/analysis"
	"github.com/richinex/mentorspace/config"
	"github.com/richinex/mentorspace/internal/logging"
	"github.com/richinex/mentorspace/llm"
	"github.com/richinex/mentorspace/remote"
	"github.com/richinex/mentorspace/sandbox"
	"github.com/richinex/mentorspace/session"
	"github.com/richinex/mentorspace/storage"
	"github.com/richinex/mentorspace/workspace"
)

// Options holds CLI execution options.
type Options struct {
	Provider   string
	ConfigPath string
	Verbose    bool
	// NoLLM runs analysis with static rules only and leaves chat unconfigured.
	NoLLM bool
	// CachePath overrides the analysis cache location.
	CachePath string
	// RemoteURL sends the session's collaborator calls to a backend.
	RemoteURL string
}

// Stack holds the in-process collaborators built from one set of settings.
type Stack struct {
	Settings config.Settings
	Logger   *slog.Logger
	Analyzer *analysis.Service
	Runner   *sandbox.Runner
	// Chat is nil when no LLM provider is available.
	Chat session.ChatCollaborator

	cache storage.AnalysisCache
}

// BuildStack resolves settings and constructs the collaborators. Logs go
// to logOut.
func BuildStack(opts Options, logOut io.Writer) (*Stack, error) {
	settings, err := config.Load(opts.ConfigPath, opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.CachePath != "" {
		settings.Analysis.CachePath = opts.CachePath
	}
	if opts.RemoteURL != "" {
		settings.Remote.BaseURL = opts.RemoteURL
	}
	level := settings.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(logOut, level, settings.Log.Format)
	if err != nil {
		return nil, err
	}

	cache, err := openCache(settings.Analysis.CachePath)
	if err != nil {
		return nil, err
	}

	s := &Stack{
		Settings: settings,
		Logger:   logger,
		Runner: sandbox.NewRunner(
			sandbox.WithTimeout(settings.Sandbox.Timeout),
			sandbox.WithAllowedCommands(settings.Sandbox.AllowedCommands),
			sandbox.WithLogger(logger),
		),
		cache: cache,
	}

	analysisOpts := []analysis.Option{
		analysis.WithCache(cache, settings.Analysis.CacheTTL),
		analysis.WithLogger(logger),
	}
	if !opts.NoLLM {
		provider, err := createProvider(settings)
		if err != nil {
			logger.Warn("cli.llm_disabled", "provider", settings.LLM.Provider, "error", err)
		} else {
			s.Chat = agent.New(agent.DefaultConfig(), provider).WithLogger(logger)
			if settings.Analysis.Reviewer == "llm" {
				analysisOpts = append(analysisOpts, analysis.WithReviewer(analysis.NewLLMReviewer(provider)))
			}
		}
	}
	s.Analyzer = analysis.NewService(analysisOpts...)
	return s, nil
}

// Close releases the analysis cache.
func (s *Stack) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// NewSession creates a controller over files. When the settings name a
// remote backend the collaborators are remote clients; otherwise they are
// the stack's own.
func (s *Stack) NewSession(files []workspace.File) *session.Controller {
	ws := workspace.New(workspace.WithFiles(files...), workspace.WithLogger(s.Logger))
	log := actionlog.New(ws, actionlog.WithLogger(s.Logger))

	opts := []session.Option{session.WithLogger(s.Logger)}
	if url := s.Settings.Remote.BaseURL; url != "" {
		client := remote.New(url, remote.WithTimeout(s.Settings.Sandbox.Timeout+remoteSlack))
		opts = append(opts,
			session.WithAnalyzer(client),
			session.WithRunner(client),
			session.WithChat(client),
		)
		return session.New(log, opts...)
	}

	opts = append(opts, session.WithAnalyzer(s.Analyzer), session.WithRunner(s.Runner))
	if s.Chat != nil {
		opts = append(opts, session.WithChat(s.Chat))
	}
	return session.New(log, opts...)
}

// remoteSlack is added to the sandbox timeout so a remote run can time out
// on the backend before the client gives up.
const remoteSlack = 5 * time.Second

func openCache(path string) (storage.AnalysisCache, error) {
	if path == "" {
		return storage.NewMemoryCache(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	cache, err := storage.OpenSqlite(path)
	if err != nil {
		return nil, fmt.Errorf("open analysis cache: %w", err)
	}
	return cache, nil
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	backend, err := llm.ParseBackend(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	return backend.Open(apiKey, llm.Options{
		Model:       settings.LLM.Model,
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: float32(settings.LLM.Temperature),
	})
}
