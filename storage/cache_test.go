package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/richinex/mentorspace/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func line(n int) *int { return &n }

func sampleReport() model.AnalysisReport {
	return model.AnalysisReport{
		Score:    88,
		Insights: "Use logging instead of print.",
		Issues: []model.Issue{
			{File: "index.py", Line: line(2), Severity: model.SeverityLow, Message: "print call"},
		},
	}
}

// cacheContract runs the behaviour every AnalysisCache must share.
func cacheContract(t *testing.T, cache AnalysisCache, clk *clock) {
	t.Helper()
	ctx := context.Background()
	key := CacheKey("review", "abc123")

	if _, ok, err := cache.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get on empty cache = %v, %v", ok, err)
	}

	if err := cache.Put(ctx, key, sampleReport(), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok, err := cache.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get after Put = %v, %v", ok, err)
	}
	if got.Score != 88 || len(got.Issues) != 1 || *got.Issues[0].Line != 2 {
		t.Errorf("unexpected report: %+v", got)
	}

	// Other intents with the same fingerprint are separate entries.
	if _, ok, _ := cache.Get(ctx, CacheKey("security", "abc123")); ok {
		t.Error("security intent hit the review entry")
	}

	if err := cache.Put(ctx, "forever", sampleReport(), 0); err != nil {
		t.Fatal(err)
	}

	clk.advance(2 * time.Minute)
	if _, ok, _ := cache.Get(ctx, key); ok {
		t.Error("expired entry was served")
	}
	if _, ok, _ := cache.Get(ctx, "forever"); !ok {
		t.Error("entry without ttl expired")
	}

	removed, err := cache.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge removed %d, want 1", removed)
	}
}

func TestMemoryCache(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	cache := NewMemoryCache()
	cache.now = clk.now
	cacheContract(t, cache, clk)
	if cache.Len() != 1 {
		t.Errorf("Len = %d after purge, want 1", cache.Len())
	}
}

func TestMemoryCacheIsolation(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	report := sampleReport()
	_ = cache.Put(ctx, "k", report, 0)

	report.Issues[0].Message = "mutated"
	got, _, _ := cache.Get(ctx, "k")
	if got.Issues[0].Message != "print call" {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestSqliteCache(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	cache, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()
	cache.now = clk.now
	cacheContract(t, cache, clk)
}

func TestSqliteCacheHitsAndOverwrite(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenSqlite(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	defer cache.Close()

	_ = cache.Put(ctx, "k", sampleReport(), time.Hour)
	for i := 0; i < 3; i++ {
		if _, ok, err := cache.Get(ctx, "k"); !ok || err != nil {
			t.Fatalf("Get = %v, %v", ok, err)
		}
	}
	if hits, _ := cache.Hits(ctx, "k"); hits != 3 {
		t.Errorf("hits = %d, want 3", hits)
	}

	updated := sampleReport()
	updated.Score = 42
	_ = cache.Put(ctx, "k", updated, time.Hour)
	got, _, _ := cache.Get(ctx, "k")
	if got.Score != 42 {
		t.Errorf("score = %d after overwrite, want 42", got.Score)
	}
	if hits, _ := cache.Hits(ctx, "k"); hits != 1 {
		t.Errorf("hits = %d after overwrite, want 1", hits)
	}
}
