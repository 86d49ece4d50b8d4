// Package actionlog records changes proposed by the chat agent and applies
// or reverses them against a workspace.
//
// Each record captures the prior content of its target the first time it is
// applied. Undo restores that baseline, or removes the file when the record
// created it. A record is applied at most once at a time: a second Apply
// without an intervening Undo is rejected, never queued.
package actionlog

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/mentorspace/internal/diff"
	"github.com/richinex/mentorspace/internal/logging"
	"github.com/richinex/mentorspace/workspace"
)

var (
	ErrAlreadyApplied = errors.New("action already applied")
	ErrNotApplied     = errors.New("action not applied")
	ErrRecordNotFound = errors.New("action record not found")
	ErrInvalidAction  = errors.New("invalid action")
)

// Kind names what an action does to its target.
type Kind string

const (
	KindCreateFile Kind = "create_file"
	KindModifyFile Kind = "modify_file"
	KindInsertCode Kind = "insert_code"
)

// ParseKind validates s as an action kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCreateFile, KindModifyFile, KindInsertCode:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unsupported kind %q", ErrInvalidAction, s)
	}
}

// Action is a change proposed by the agent. Content is the full new text of
// Target; insert_code is not a patch.
type Action struct {
	Kind        Kind   `json:"kind"`
	Target      string `json:"target"`
	Content     string `json:"content"`
	Explanation string `json:"explanation,omitempty"`
}

// Validate rejects unknown kinds and empty targets.
func (a Action) Validate() error {
	if _, err := ParseKind(string(a.Kind)); err != nil {
		return err
	}
	if a.Target == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidAction)
	}
	return nil
}

// Baseline is the target's state before the first apply: absent, or
// existing with some content.
type Baseline struct {
	existed bool
	content string
}

// Absent is the baseline of a target that did not exist.
func Absent() Baseline { return Baseline{} }

// Existing is the baseline of a target that held content.
func Existing(content string) Baseline { return Baseline{existed: true, content: content} }

// Existed reports whether the target existed, and its content if so.
func (b Baseline) Existed() (string, bool) { return b.content, b.existed }

// Status is a record's lifecycle state.
type Status string

const (
	StatusUnapplied Status = "unapplied"
	StatusApplied   Status = "applied"
)

type record struct {
	id        string
	action    Action
	createdAt time.Time
	status    Status
	baseline  *Baseline
	appliedAt time.Time
}

// RecordView is a read-only snapshot of a record.
type RecordView struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	AppliedAt time.Time `json:"applied_at,omitempty"`
	// HasBaseline is false until the first successful apply.
	HasBaseline bool `json:"has_baseline"`
	// BaselineAbsent is true when the target did not exist before the first apply.
	BaselineAbsent bool `json:"baseline_absent,omitempty"`

	baseline Baseline
}

// Applied reports whether the record is currently applied.
func (v RecordView) Applied() bool { return v.Status == StatusApplied }

// Baseline returns the captured baseline, if any.
func (v RecordView) Baseline() (Baseline, bool) { return v.baseline, v.HasBaseline }

func (r *record) view() RecordView {
	v := RecordView{
		ID:        r.id,
		Action:    r.action,
		Status:    r.status,
		CreatedAt: r.createdAt,
		AppliedAt: r.appliedAt,
	}
	if r.baseline != nil {
		v.HasBaseline = true
		v.baseline = *r.baseline
		_, existed := r.baseline.Existed()
		v.BaselineAbsent = !existed
	}
	return v
}

// Log is an append-only list of records bound to one workspace.
type Log struct {
	mu      sync.Mutex
	ws      *workspace.Workspace
	records []*record
	byID    map[string]*record
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates an empty log over ws.
func New(ws *workspace.Workspace, opts ...Option) *Log {
	l := &Log{
		ws:     ws,
		byID:   make(map[string]*record),
		now:    time.Now,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrNop(l.logger)
	return l
}

// Workspace returns the workspace the log mutates.
func (l *Log) Workspace() *workspace.Workspace { return l.ws }

// Append records a new unapplied action.
func (l *Log) Append(a Action) (RecordView, error) {
	if err := a.Validate(); err != nil {
		return RecordView{}, err
	}
	r := &record{
		id:        uuid.New().String(),
		action:    a,
		createdAt: l.now(),
		status:    StatusUnapplied,
	}

	l.mu.Lock()
	l.records = append(l.records, r)
	l.byID[r.id] = r
	l.mu.Unlock()

	l.logger.Info("actionlog.appended", "id", r.id, "kind", a.Kind, "target", a.Target)
	return r.view(), nil
}

// Apply writes the record's content into the workspace and makes its
// target active. The first apply captures the target's prior state.
func (l *Log) Apply(id string) (RecordView, error) {
	view, _, err := l.ApplyWithSnapshot(id)
	return view, err
}

// ApplyWithSnapshot is Apply that also returns the workspace exactly as
// the apply left it, before any later writer can run.
func (l *Log) ApplyWithSnapshot(id string) (RecordView, workspace.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.byID[id]
	if !ok {
		return RecordView{}, workspace.Snapshot{}, fmt.Errorf("apply %s: %w", id, ErrRecordNotFound)
	}
	if r.status == StatusApplied {
		return RecordView{}, workspace.Snapshot{}, fmt.Errorf("apply %s: %w", id, ErrAlreadyApplied)
	}

	var (
		captured Baseline
		snap     workspace.Snapshot
	)
	err := l.ws.Batch(func(tx *workspace.Txn) error {
		a := r.action
		current, exists := tx.Get(a.Target)
		if exists {
			captured = Existing(current)
		} else {
			captured = Absent()
		}
		switch a.Kind {
		case KindCreateFile:
			tx.Add(a.Target, a.Content)
		case KindModifyFile, KindInsertCode:
			if exists {
				if err := tx.Update(a.Target, a.Content); err != nil {
					return err
				}
			} else {
				tx.Add(a.Target, a.Content)
			}
		default:
			return fmt.Errorf("%w: unsupported kind %q", ErrInvalidAction, a.Kind)
		}
		if err := tx.SetActive(a.Target); err != nil {
			return err
		}
		snap = tx.Snapshot()
		return nil
	})
	if err != nil {
		l.logger.Warn("actionlog.apply_failed", "id", id, "error", err)
		return RecordView{}, workspace.Snapshot{}, fmt.Errorf("apply %s: %w", id, err)
	}

	if r.baseline == nil {
		r.baseline = &captured
	}
	r.status = StatusApplied
	r.appliedAt = l.now()
	l.logger.Info("actionlog.applied", "id", id, "target", r.action.Target)
	return r.view(), snap, nil
}

// Undo restores the record's baseline: the prior content, or removal of
// the target when the record created it.
func (l *Log) Undo(id string) (RecordView, error) {
	view, _, err := l.UndoWithSnapshot(id)
	return view, err
}

// UndoWithSnapshot is Undo that also returns the workspace exactly as the
// undo left it.
func (l *Log) UndoWithSnapshot(id string) (RecordView, workspace.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.byID[id]
	if !ok {
		return RecordView{}, workspace.Snapshot{}, fmt.Errorf("undo %s: %w", id, ErrRecordNotFound)
	}
	if r.status != StatusApplied || r.baseline == nil {
		return RecordView{}, workspace.Snapshot{}, fmt.Errorf("undo %s: %w", id, ErrNotApplied)
	}

	target := r.action.Target
	var snap workspace.Snapshot
	err := l.ws.Batch(func(tx *workspace.Txn) error {
		var err error
		if prior, existed := r.baseline.Existed(); existed {
			err = tx.Update(target, prior)
		} else {
			err = tx.Remove(target)
		}
		if err != nil {
			return err
		}
		snap = tx.Snapshot()
		return nil
	})
	if err != nil {
		l.logger.Warn("actionlog.undo_failed", "id", id, "error", err)
		return RecordView{}, workspace.Snapshot{}, fmt.Errorf("undo %s: %w", id, err)
	}

	r.status = StatusUnapplied
	r.appliedAt = time.Time{}
	l.logger.Info("actionlog.undone", "id", id, "target", target)
	return r.view(), snap, nil
}

// Get returns a snapshot of one record.
func (l *Log) Get(id string) (RecordView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.byID[id]
	if !ok {
		return RecordView{}, fmt.Errorf("get %s: %w", id, ErrRecordNotFound)
	}
	return r.view(), nil
}

// Records returns snapshots of every record in append order.
func (l *Log) Records() []RecordView {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]RecordView, len(l.records))
	for i, r := range l.records {
		out[i] = r.view()
	}
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Preview is the line diff a record would produce against the target's
// current content. An absent target diffs from empty.
type Preview struct {
	ID        string      `json:"id"`
	Target    string      `json:"target"`
	Exists    bool        `json:"exists"`
	Hunks     []diff.Hunk `json:"hunks,omitempty"`
	Added     int         `json:"added"`
	Removed   int         `json:"removed"`
	Truncated bool        `json:"truncated,omitempty"`
}

// Preview diffs the record's proposed content against the workspace.
func (l *Log) Preview(id string) (Preview, error) {
	r, err := l.Get(id)
	if err != nil {
		return Preview{}, err
	}
	current, exists := l.ws.Get(r.Action.Target)
	hunks, truncated := diff.LinesWithLimit(current, r.Action.Content, diff.MaxLines)
	added, removed := diff.Stats(hunks)
	return Preview{
		ID:        r.ID,
		Target:    r.Action.Target,
		Exists:    exists,
		Hunks:     hunks,
		Added:     added,
		Removed:   removed,
		Truncated: truncated,
	}, nil
}
