package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/richinex/mentorspace/model"
	"github.com/richinex/mentorspace/storage"
)

type fakeReviewer struct {
	calls  int
	intent Intent
	seen   ReviewContext
	review Review
	err    error
}

func (f *fakeReviewer) Review(_ context.Context, intent Intent, rc ReviewContext) (Review, error) {
	f.calls++
	f.intent = intent
	f.seen = rc
	return f.review, f.err
}

var sampleFiles = model.FileMap{
	"index.py": "def hello():\n    print(\"Hello\")\n\npassword = \"hunter2\"\n",
}

func TestAnalyzeStaticOnly(t *testing.T) {
	report, err := NewService().Analyze(context.Background(), sampleFiles)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.Issues) != 2 {
		t.Fatalf("issues = %+v", report.Issues)
	}
	if report.Score != 96 {
		t.Errorf("score = %d, want 96", report.Score)
	}
	if report.Insights == "" {
		t.Error("expected a static summary")
	}
}

func TestAnalyzeWithReviewer(t *testing.T) {
	rev := &fakeReviewer{review: Review{
		Feedback: []model.Issue{{File: "index.py", Severity: model.SeverityHigh, Message: "secret in source"}},
		Insights: "Move credentials to the environment.",
	}}
	report, err := NewService(WithReviewer(rev)).Analyze(context.Background(), sampleFiles)
	if err != nil {
		t.Fatal(err)
	}
	if rev.intent != IntentReview || len(rev.seen.StaticData["index.py"].Warnings) != 2 {
		t.Errorf("reviewer saw intent %q, static %+v", rev.intent, rev.seen.StaticData)
	}
	if report.Score != 100-4-8 || len(report.Issues) != 3 || report.Insights != "Move credentials to the environment." {
		t.Errorf("report = %+v", report)
	}
}

func TestSecurityIntentKeepsSecretsOnly(t *testing.T) {
	rev := &fakeReviewer{}
	report, err := NewService(WithReviewer(rev)).AnalyzeIntent(context.Background(), sampleFiles, IntentSecurity)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Kind != KindSecret {
		t.Errorf("issues = %+v", report.Issues)
	}
	if rev.intent != IntentSecurity {
		t.Errorf("intent = %q", rev.intent)
	}
}

func TestCacheHitSkipsReviewer(t *testing.T) {
	rev := &fakeReviewer{review: Review{Insights: "ok"}}
	svc := NewService(WithReviewer(rev), WithCache(storage.NewMemoryCache(), DefaultCacheTTL))
	ctx := context.Background()

	first, _ := svc.Analyze(ctx, sampleFiles)
	second, _ := svc.Analyze(ctx, sampleFiles.Clone())
	if rev.calls != 1 {
		t.Errorf("reviewer called %d times, want 1", rev.calls)
	}
	if first.Score != second.Score {
		t.Errorf("cached score %d != %d", second.Score, first.Score)
	}

	changed := sampleFiles.Clone()
	changed["utils.py"] = "x = 1"
	_, _ = svc.Analyze(ctx, changed)
	if rev.calls != 2 {
		t.Errorf("changed workspace served from cache")
	}

	_, _ = svc.AnalyzeIntent(ctx, sampleFiles, IntentSecurity)
	if rev.calls != 3 {
		t.Errorf("security intent served from review cache")
	}
}

func TestReviewerFailureNotCached(t *testing.T) {
	rev := &fakeReviewer{err: errors.New("timeout")}
	svc := NewService(WithReviewer(rev), WithCache(storage.NewMemoryCache(), DefaultCacheTTL))
	ctx := context.Background()

	if _, err := svc.Analyze(ctx, sampleFiles); !errors.Is(err, model.ErrCollaboratorUnavailable) {
		t.Fatalf("err = %v, want collaborator unavailable", err)
	}
	rev.err = nil
	if _, err := svc.Analyze(ctx, sampleFiles); err != nil {
		t.Fatal(err)
	}
	if rev.calls != 2 {
		t.Errorf("reviewer called %d times, want 2", rev.calls)
	}
}

func TestParseIntent(t *testing.T) {
	for in, want := range map[string]Intent{"": IntentReview, "review": IntentReview, "security": IntentSecurity} {
		got, err := ParseIntent(in)
		if err != nil || got != want {
			t.Errorf("ParseIntent(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseIntent("refactor"); err == nil {
		t.Error("expected error for unknown intent")
	}
}
