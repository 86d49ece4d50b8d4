package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/richinex/mentorspace/actionlog"
	"github.com/richinex/mentorspace/model"
	"github.com/richinex/mentorspace/workspace"
)

type fakeChat struct {
	mu   sync.Mutex
	resp model.ChatResponse
	err  error
	reqs []model.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

type fakeAnalyzer struct {
	report model.AnalysisReport
	err    error
	got    model.FileMap
}

func (f *fakeAnalyzer) Analyze(_ context.Context, files model.FileMap) (model.AnalysisReport, error) {
	f.got = files
	return f.report, f.err
}

type fakeRunner struct {
	result model.RunResult
	err    error
	got    model.RunRequest
}

func (f *fakeRunner) Run(_ context.Context, req model.RunRequest) (model.RunResult, error) {
	f.got = req
	return f.result, f.err
}

func newController(opts ...Option) *Controller {
	ws := workspace.New(workspace.WithFiles(workspace.File{Path: "index.py", Content: "print(1)"}))
	return New(actionlog.New(ws), opts...)
}

func TestSubmitRecordsProposedAction(t *testing.T) {
	chat := &fakeChat{resp: model.ChatResponse{
		Action:      "create_file",
		TargetFile:  "utils.py",
		Code:        "def f(): pass",
		Explanation: "Added a helper.",
	}}
	c := newController(WithChat(chat))
	c.Workspace().Add("config.py", "DEBUG = True")
	if err := c.Workspace().SetActive("index.py"); err != nil {
		t.Fatal(err)
	}

	entry, err := c.Submit(context.Background(), "add a helper", "print")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if entry.Role != RoleAgent || entry.RecordID == "" || entry.Text != "Added a helper." {
		t.Fatalf("entry = %+v", entry)
	}

	req := chat.reqs[0]
	want := model.ChatRequest{
		UserMessage:        "add a helper",
		CurrentFileContent: "print(1)",
		CurrentFilePath:    "index.py",
		FullProjectTree:    model.FileMap{"config.py": "DEBUG = True", "index.py": "print(1)"},
		SelectedCode:       "print",
	}
	if !reflect.DeepEqual(req, want) {
		t.Errorf("request = %+v, want %+v", req, want)
	}

	rec, err := c.Log().Get(entry.RecordID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Applied() || rec.Action.Target != "utils.py" {
		t.Errorf("record = %+v", rec)
	}
	// Proposals are advisory until applied.
	if c.Workspace().Has("utils.py") {
		t.Error("submit applied the action")
	}

	if _, err := c.Apply(entry.RecordID); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !c.Workspace().Has("utils.py") {
		t.Error("apply did not create utils.py")
	}
	if _, err := c.Apply(entry.RecordID); !errors.Is(err, actionlog.ErrAlreadyApplied) {
		t.Errorf("second Apply = %v", err)
	}
	if _, err := c.Undo(entry.RecordID); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	tr := c.Transcript()
	if len(tr) != 2 || tr[0].Role != RoleUser || tr[1].Role != RoleAgent {
		t.Errorf("transcript = %+v", tr)
	}
}

func TestSubmitWithoutAction(t *testing.T) {
	for _, action := range []string{"", "none"} {
		chat := &fakeChat{resp: model.ChatResponse{Action: action, Explanation: "Looks fine."}}
		c := newController(WithChat(chat))
		entry, err := c.Submit(context.Background(), "review", "")
		if err != nil {
			t.Fatal(err)
		}
		if entry.RecordID != "" || entry.Text != "Looks fine." {
			t.Errorf("action %q: entry = %+v", action, entry)
		}
		if c.Log().Len() != 0 {
			t.Errorf("action %q: record appended", action)
		}
	}
}

func TestSubmitChatFailureLeavesStateUntouched(t *testing.T) {
	chat := &fakeChat{err: model.Unavailable("chat", errors.New("connection refused"))}
	c := newController(WithChat(chat))
	version := c.Workspace().Version()

	entry, err := c.Submit(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if entry.Role != RoleError || entry.Text != ChatFailedMessage {
		t.Errorf("entry = %+v", entry)
	}
	if c.Workspace().Version() != version || c.Log().Len() != 0 {
		t.Error("failed chat changed the workspace or log")
	}
}

func TestSubmitUnsupportedAction(t *testing.T) {
	chat := &fakeChat{resp: model.ChatResponse{Action: "delete_file", TargetFile: "index.py"}}
	c := newController(WithChat(chat))
	entry, err := c.Submit(context.Background(), "delete it", "")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Role != RoleError || c.Log().Len() != 0 {
		t.Errorf("entry = %+v, records = %d", entry, c.Log().Len())
	}
}

func TestSubmitEmptyMessage(t *testing.T) {
	c := newController(WithChat(&fakeChat{}))
	if _, err := c.Submit(context.Background(), "  ", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("err = %v, want ErrEmptyMessage", err)
	}
	if len(c.Transcript()) != 0 {
		t.Error("empty message was recorded")
	}
}

func TestAnalyze(t *testing.T) {
	an := &fakeAnalyzer{report: model.AnalysisReport{Score: 90, Insights: "ok"}}
	c := newController(WithAnalyzer(an))

	report := c.Analyze(context.Background())
	if report.Score != 90 {
		t.Errorf("report = %+v", report)
	}
	if !reflect.DeepEqual(an.got, model.FileMap{"index.py": "print(1)"}) {
		t.Errorf("analyzer got %v", an.got)
	}
	if last, ok := c.LastReport(); !ok || last.Score != 90 {
		t.Errorf("LastReport = %+v, %v", last, ok)
	}

	an.err = model.Unavailable("analysis", errors.New("down"))
	report = c.Analyze(context.Background())
	if report.Error != AnalyzeFailedMessage {
		t.Errorf("failure report = %+v", report)
	}
}

func TestRun(t *testing.T) {
	runner := &fakeRunner{result: model.RunResult{Stdout: "1\n"}}
	c := newController(WithRunner(runner))

	result := c.Run(context.Background(), "")
	if result.Stdout != "1\n" || result.Error {
		t.Errorf("result = %+v", result)
	}
	if runner.got.Command != "python index.py" {
		t.Errorf("command = %q", runner.got.Command)
	}

	runner.err = errors.New("dial tcp: refused")
	result = c.Run(context.Background(), "pytest")
	if !result.Error || result.Stderr != SandboxFailedMessage {
		t.Errorf("failure result = %+v", result)
	}
	if last, _ := c.LastRun(); last.Stderr != SandboxFailedMessage {
		t.Errorf("LastRun = %+v", last)
	}
}

func TestUnconfiguredCollaborators(t *testing.T) {
	c := newController()
	if entry, _ := c.Submit(context.Background(), "hi", ""); entry.Role != RoleError {
		t.Errorf("entry = %+v", entry)
	}
	if r := c.Analyze(context.Background()); r.Error == "" {
		t.Error("expected analysis error")
	}
	if r := c.Run(context.Background(), "ls"); !r.Error {
		t.Error("expected run error")
	}
}

func TestDefaultCommand(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"index.py", "python index.py"},
		{"src/app.js", "node src/app.js"},
		{"main.go", "go run main.go"},
		{"my app.py", "python 'my app.py'"},
		{"README.md", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DefaultCommand(tt.file); got != tt.want {
			t.Errorf("DefaultCommand(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
