// Package sandbox runs a command against a set of files.
//
// Each run materialises the files in a fresh temporary directory, executes
// the command with that directory as working directory, and removes the
// directory afterwards. Without an allowlist the command goes through sh -c.
// With one, it is split into words and run directly, and any shell control
// syntax is refused.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/richinex/mentorspace/internal/logging"
	"github.com/richinex/mentorspace/model"
)

// TimeoutMessage is reported on stderr when a run exceeds its timeout.
const TimeoutMessage = "Execution timed out."

const (
	DefaultTimeout   = 10 * time.Second
	DefaultMaxOutput = 1 << 20
)

// ErrUnsafePath is returned for file paths that would land outside the
// sandbox directory.
var ErrUnsafePath = errors.New("unsafe sandbox path")

// Runner implements the sandbox collaborator.
type Runner struct {
	timeout         time.Duration
	allowedCommands []string
	tempRoot        string
	maxOutput       int
	logger          *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds each run.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithAllowedCommands restricts the program a command may run. Empty allows
// any shell command.
func WithAllowedCommands(commands []string) Option {
	return func(r *Runner) { r.allowedCommands = commands }
}

// WithTempRoot sets where job directories are created. Empty uses the
// system temp directory.
func WithTempRoot(dir string) Option {
	return func(r *Runner) { r.tempRoot = dir }
}

// WithMaxOutput caps the bytes kept from each of stdout and stderr.
func WithMaxOutput(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxOutput = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		timeout:   DefaultTimeout,
		maxOutput: DefaultMaxOutput,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Run executes req.Command against req.Files. A non-zero exit, a timeout or
// a disallowed command is reported in the result; the error is reserved for
// failures to prepare the sandbox.
func (r *Runner) Run(ctx context.Context, req model.RunRequest) (model.RunResult, error) {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return model.RunResult{Stderr: "command cannot be empty", Error: true}, nil
	}
	argv, reason := r.parseCommand(command)
	if reason != "" {
		return model.RunResult{Stderr: reason, Error: true}, nil
	}

	jobID := uuid.NewString()
	dir, err := os.MkdirTemp(r.tempRoot, "sandbox-"+jobID[:8]+"-")
	if err != nil {
		return model.RunResult{}, fmt.Errorf("create sandbox dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("sandbox.cleanup_failed", "job_id", jobID, "error", err)
		}
	}()

	if err := materialize(dir, req.Files); err != nil {
		return model.RunResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stdout := &cappedBuffer{max: r.maxOutput}
	stderr := &cappedBuffer{max: r.maxOutput}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("sandbox.timed_out", "job_id", jobID, "command", command, "timeout", r.timeout)
		return model.RunResult{Stdout: stdout.String(), Stderr: TimeoutMessage, Error: true}, nil
	}

	result := model.RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if runErr != nil {
		var exitErr *exec.ExitError
		var execErr *exec.Error
		switch {
		case errors.As(runErr, &exitErr):
		case errors.As(runErr, &execErr):
			result.Stderr = execErr.Error()
		default:
			return model.RunResult{}, fmt.Errorf("execute command: %w", runErr)
		}
		result.Error = true
	}

	r.logger.Info("sandbox.ran",
		"job_id", jobID,
		"command", command,
		"files", len(req.Files),
		"failed", result.Error,
		"duration_ms", elapsed.Milliseconds(),
	)
	return result, nil
}

// materialize writes files under dir, refusing paths that escape it.
func materialize(dir string, files model.FileMap) error {
	for _, name := range files.Paths() {
		target, err := safeJoin(dir, name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create dir for %q: %w", name, err)
		}
		if err := os.WriteFile(target, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("write %q: %w", name, err)
		}
	}
	return nil
}

func safeJoin(dir, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

// parseCommand returns the argv to execute, or a reason the command is
// refused. Without an allowlist the whole command is handed to sh -c.
func (r *Runner) parseCommand(command string) ([]string, string) {
	if len(r.allowedCommands) == 0 {
		return []string{"sh", "-c", command}, ""
	}
	if op, ok := shellOperator(command); ok {
		return nil, fmt.Sprintf("shell operator %q is not allowed", op)
	}
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Sprintf("cannot parse command: %v", err)
	}
	if len(argv) == 0 {
		return nil, "command cannot be empty"
	}
	if !r.isAllowed(argv[0]) {
		return nil, fmt.Sprintf("command '%s' is not in the allowed list", argv[0])
	}
	return argv, ""
}

func (r *Runner) isAllowed(program string) bool {
	for _, allowed := range r.allowedCommands {
		if allowed == program {
			return true
		}
	}
	return false
}

// shellOperator reports the first character sequence outside single quotes
// that a shell would treat as control syntax: command separators, pipes,
// redirections and substitutions. Double quotes still expand $( and
// backticks, so those are refused there too.
func shellOperator(command string) (string, bool) {
	var single, double bool
	for i := 0; i < len(command); i++ {
		c := command[i]
		switch {
		case single:
			if c == '\'' {
				single = false
			}
		case c == '\\':
			i++
		case c == '`':
			return "`", true
		case c == '$' && i+1 < len(command) && command[i+1] == '(':
			return "$(", true
		case double:
			if c == '"' {
				double = false
			}
		case c == '\'':
			single = true
		case c == '"':
			double = true
		case strings.IndexByte(";&|<>\n", c) >= 0:
			return string(c), true
		}
	}
	return "", false
}

// cappedBuffer keeps the first max bytes and discards the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
