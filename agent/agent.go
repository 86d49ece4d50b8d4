// Package agent implements the chat collaborator on top of an LLM provider.
//
// Each message is a single completion: the system prompt fixes the reply
// schema, the user message carries the editor context as JSON, and the
// reply is decoded into a proposed action.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	jsonutil "github.com/richinex/mentorspace/internal/json"
	"github.com/richinex/mentorspace/internal/logging"
	"github.com/richinex/mentorspace/llm"
	"github.com/richinex/mentorspace/model"
)

// Agent answers chat messages.
type Agent struct {
	config   Config
	provider llm.Provider
	logger   *slog.Logger
}

// New creates an agent with the given configuration and provider.
func New(config Config, provider llm.Provider) *Agent {
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	if config.Name == "" {
		config.Name = "mentor"
	}
	return &Agent{config: config, provider: provider, logger: logging.Nop()}
}

// WithLogger sets the logger.
func (a *Agent) WithLogger(logger *slog.Logger) *Agent {
	a.logger = logging.OrNop(logger)
	return a
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Chat sends req to the model and decodes the proposed action. Provider and
// decode failures are reported as an unavailable collaborator.
func (a *Agent) Chat(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	start := time.Now()
	messages, err := a.messages(req)
	if err != nil {
		return model.ChatResponse{}, model.Unavailable("chat", err)
	}

	resp, err := a.provider.ChatWithFormat(ctx, messages, llm.NewJSONObjectFormat())
	if err != nil {
		return model.ChatResponse{}, model.Unavailable("chat", err)
	}

	r, err := jsonutil.ExtractJSONFromResponse[reply](resp.Content)
	if err != nil {
		return model.ChatResponse{}, model.Unavailable("chat", fmt.Errorf("decode reply: %w", err))
	}
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))

	attrs := []any{
		"agent", a.config.Name,
		"provider", a.provider.Name(),
		"action", r.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if resp.Usage != nil {
		attrs = append(attrs, "tokens", resp.Usage.TotalTokens)
	}
	a.logger.Info("agent.replied", attrs...)
	return r.response(), nil
}

func (a *Agent) messages(req model.ChatRequest) ([]llm.ChatMessage, error) {
	limit := a.config.MaxFileChars
	p := prompt{
		Message:      req.UserMessage,
		ActiveFile:   req.CurrentFilePath,
		SelectedCode: req.SelectedCode,
	}
	p.FileContent, p.Truncated = truncate(req.CurrentFileContent, limit)
	if len(req.FullProjectTree) > 0 {
		p.ProjectFiles = make(model.FileMap, len(req.FullProjectTree))
		for path, content := range req.FullProjectTree {
			var cut bool
			p.ProjectFiles[path], cut = truncate(content, limit)
			p.Truncated = p.Truncated || cut
		}
	}
	payload, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	return []llm.ChatMessage{
		llm.SystemMessage(a.config.SystemPrompt),
		llm.UserMessage(string(payload)),
	}, nil
}

// truncate cuts s to at most limit bytes without splitting a UTF-8
// sequence. A non-positive limit keeps s whole.
func truncate(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
