// Package session drives one coding session: it turns chat replies into
// action records, and runs analysis and sandbox requests against the
// current workspace.
//
// Collaborators are called without any lock held. A collaborator failure is
// reported inline in the transcript or result and never touches the
// workspace or the action log.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/richinex/mentorspace/actionlog"
	"github.com/richinex/mentorspace/internal/logging"
	"github.com/richinex/mentorspace/model"
	"github.com/richinex/mentorspace/workspace"
)

// ErrEmptyMessage is returned by Submit for a blank message.
var ErrEmptyMessage = errors.New("empty message")

// Inline messages shown when a collaborator cannot be reached.
const (
	ChatFailedMessage     = "Failed to get a response from the AI mentor."
	AnalyzeFailedMessage  = "Failed to analyze code."
	SandboxFailedMessage  = "Failed to connect to Sandbox."
	NoRunnableFileMessage = "No runnable file is active."
)

// ChatCollaborator answers a user message with an optional proposed action.
type ChatCollaborator interface {
	Chat(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error)
}

// Analyzer scores a set of files.
type Analyzer interface {
	Analyze(ctx context.Context, files model.FileMap) (model.AnalysisReport, error)
}

// Runner executes a command against a set of files.
type Runner interface {
	Run(ctx context.Context, req model.RunRequest) (model.RunResult, error)
}

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleError Role = "error"
)

// Entry is one transcript line. RecordID links an agent reply to the action
// it proposed.
type Entry struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	RecordID  string    `json:"record_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Controller is safe for concurrent use.
type Controller struct {
	ws       *workspace.Workspace
	log      *actionlog.Log
	chat     ChatCollaborator
	analyzer Analyzer
	runner   Runner
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	transcript []Entry
	lastReport *model.AnalysisReport
	lastRun    *model.RunResult
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithChat sets the chat collaborator.
func WithChat(chat ChatCollaborator) Option {
	return func(c *Controller) { c.chat = chat }
}

// WithAnalyzer sets the analysis collaborator.
func WithAnalyzer(a Analyzer) Option {
	return func(c *Controller) { c.analyzer = a }
}

// WithRunner sets the sandbox collaborator.
func WithRunner(r Runner) Option {
	return func(c *Controller) { c.runner = r }
}

// WithClock overrides the time source used for transcript entries.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a controller over log and its workspace. Collaborators left
// unset behave as unavailable.
func New(log *actionlog.Log, opts ...Option) *Controller {
	c := &Controller{
		ws:     log.Workspace(),
		log:    log,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// Workspace returns the session's workspace.
func (c *Controller) Workspace() *workspace.Workspace { return c.ws }

// Log returns the session's action log.
func (c *Controller) Log() *actionlog.Log { return c.log }

// Submit sends message to the chat collaborator together with the active
// file, the project tree and selectedCode. The returned entry is the
// agent's reply, or an error entry when the collaborator failed.
func (c *Controller) Submit(ctx context.Context, message, selectedCode string) (Entry, error) {
	if strings.TrimSpace(message) == "" {
		return Entry{}, ErrEmptyMessage
	}
	c.appendEntry(Entry{Role: RoleUser, Text: message})

	req := model.ChatRequest{
		UserMessage:     message,
		FullProjectTree: c.ws.Files(),
		SelectedCode:    selectedCode,
	}
	if f, ok := c.ws.ActiveFile(); ok {
		req.CurrentFilePath = f.Path
		req.CurrentFileContent = f.Content
	}

	resp, err := c.callChat(ctx, req)
	if err != nil {
		c.logger.Warn("session.chat_failed", "error", err)
		return c.appendEntry(Entry{Role: RoleError, Text: ChatFailedMessage}), nil
	}

	if !resp.HasAction() {
		return c.appendEntry(Entry{Role: RoleAgent, Text: resp.Explanation}), nil
	}

	kind, err := actionlog.ParseKind(resp.Action)
	if err != nil {
		c.logger.Warn("session.unsupported_action", "action", resp.Action)
		return c.appendEntry(Entry{Role: RoleError, Text: fmt.Sprintf("Unsupported action %q proposed.", resp.Action)}), nil
	}
	rec, err := c.log.Append(actionlog.Action{
		Kind:        kind,
		Target:      resp.TargetFile,
		Content:     resp.Code,
		Explanation: resp.Explanation,
	})
	if err != nil {
		c.logger.Warn("session.invalid_action", "error", err)
		return c.appendEntry(Entry{Role: RoleError, Text: "The proposed action was invalid."}), nil
	}
	return c.appendEntry(Entry{Role: RoleAgent, Text: resp.Explanation, RecordID: rec.ID}), nil
}

func (c *Controller) callChat(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	if c.chat == nil {
		return model.ChatResponse{}, model.Unavailable("chat", errors.New("not configured"))
	}
	return c.chat.Chat(ctx, req)
}

// Apply applies a proposed action.
func (c *Controller) Apply(id string) (actionlog.RecordView, error) {
	return c.log.Apply(id)
}

// Undo reverses an applied action.
func (c *Controller) Undo(id string) (actionlog.RecordView, error) {
	return c.log.Undo(id)
}

// ApplyWithSnapshot applies an action and returns the workspace it produced.
func (c *Controller) ApplyWithSnapshot(id string) (actionlog.RecordView, workspace.Snapshot, error) {
	return c.log.ApplyWithSnapshot(id)
}

// UndoWithSnapshot reverses an action and returns the workspace it produced.
func (c *Controller) UndoWithSnapshot(id string) (actionlog.RecordView, workspace.Snapshot, error) {
	return c.log.UndoWithSnapshot(id)
}

// Analyze sends every file to the analysis collaborator. On failure the
// report carries AnalyzeFailedMessage in Error. The result replaces the
// last report.
func (c *Controller) Analyze(ctx context.Context) model.AnalysisReport {
	files := c.ws.Files()

	var (
		report model.AnalysisReport
		err    error
	)
	if c.analyzer == nil {
		err = model.Unavailable("analysis", errors.New("not configured"))
	} else {
		report, err = c.analyzer.Analyze(ctx, files)
	}
	if err != nil {
		c.logger.Warn("session.analyze_failed", "error", err)
		report = model.AnalysisReport{Error: AnalyzeFailedMessage}
	}

	c.mu.Lock()
	c.lastReport = &report
	c.mu.Unlock()
	return report
}

// Run executes command in the sandbox. An empty command runs the active
// file with the interpreter matching its extension.
func (c *Controller) Run(ctx context.Context, command string) model.RunResult {
	if strings.TrimSpace(command) == "" {
		active, _ := c.ws.Active()
		command = DefaultCommand(active)
	}

	var result model.RunResult
	switch {
	case command == "":
		result = model.RunResult{Stderr: NoRunnableFileMessage, Error: true}
	case c.runner == nil:
		c.logger.Warn("session.run_failed", "error", "runner not configured")
		result = model.RunResult{Stderr: SandboxFailedMessage, Error: true}
	default:
		var err error
		result, err = c.runner.Run(ctx, model.RunRequest{Files: c.ws.Files(), Command: command})
		if err != nil {
			c.logger.Warn("session.run_failed", "command", command, "error", err)
			result = model.RunResult{Stderr: SandboxFailedMessage, Error: true}
		}
	}

	c.mu.Lock()
	c.lastRun = &result
	c.mu.Unlock()
	return result
}

// DefaultCommand returns the shell command that runs file, or "" when its
// extension has no known interpreter.
func DefaultCommand(file string) string {
	if file == "" {
		return ""
	}
	var argv []string
	switch strings.ToLower(path.Ext(file)) {
	case ".py":
		argv = []string{"python"}
	case ".js", ".mjs":
		argv = []string{"node"}
	case ".go":
		argv = []string{"go", "run"}
	case ".sh":
		argv = []string{"sh"}
	default:
		return ""
	}
	return shellquote.Join(append(argv, file)...)
}

// Transcript returns a copy of the conversation so far.
func (c *Controller) Transcript() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// LastReport returns the most recently completed analysis.
func (c *Controller) LastReport() (model.AnalysisReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastReport == nil {
		return model.AnalysisReport{}, false
	}
	return *c.lastReport, true
}

// LastRun returns the most recently completed run.
func (c *Controller) LastRun() (model.RunResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRun == nil {
		return model.RunResult{}, false
	}
	return *c.lastRun, true
}

func (c *Controller) appendEntry(e Entry) Entry {
	e.CreatedAt = c.now()
	c.mu.Lock()
	c.transcript = append(c.transcript, e)
	c.mu.Unlock()
	return e
}
