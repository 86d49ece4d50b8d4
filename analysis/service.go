// Package analysis scores a workspace: static rules, an optional LLM
// reviewer and a cache keyed by intent and workspace fingerprint.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/mentorspace/internal/logging"
	"github.com/richinex/mentorspace/model"
	"github.com/richinex/mentorspace/storage"
	"github.com/richinex/mentorspace/workspace"
)

// DefaultCacheTTL is how long a report stays fresh.
const DefaultCacheTTL = time.Hour

// Service implements the analysis collaborator.
type Service struct {
	reviewer Reviewer
	cache    storage.AnalysisCache
	ttl      time.Duration
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithReviewer adds an LLM (or other) reviewer. Without one, reports carry
// static findings only.
func WithReviewer(r Reviewer) Option {
	return func(s *Service) { s.reviewer = r }
}

// WithCache enables caching with the given ttl.
func WithCache(cache storage.AnalysisCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates an analysis service.
func NewService(opts ...Option) *Service {
	s := &Service{ttl: DefaultCacheTTL, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Analyze runs a review of files.
func (s *Service) Analyze(ctx context.Context, files model.FileMap) (model.AnalysisReport, error) {
	return s.AnalyzeIntent(ctx, files, IntentReview)
}

// AnalyzeIntent runs the analysis for intent. Reviewer failures are
// reported as an unavailable collaborator and are not cached.
func (s *Service) AnalyzeIntent(ctx context.Context, files model.FileMap, intent Intent) (model.AnalysisReport, error) {
	key := storage.CacheKey(string(intent), workspace.Fingerprint(files))
	if s.cache != nil {
		report, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("analysis.cache_get_failed", "error", err)
		} else if ok {
			s.logger.Debug("analysis.cache_hit", "intent", intent, "key", key)
			return report, nil
		}
	}

	start := time.Now()
	static := Inspect(files)
	if intent == IntentSecurity {
		static = static.onlyKind(KindSecret)
	}

	var review Review
	if s.reviewer != nil {
		var err error
		review, err = s.reviewer.Review(ctx, intent, ReviewContext{Files: files, StaticData: static})
		if err != nil {
			s.logger.Warn("analysis.review_failed", "intent", intent, "error", err)
			return model.AnalysisReport{}, model.Unavailable("analysis", err)
		}
	}

	report := model.AnalysisReport{
		Score:    Score(static, review.Feedback),
		Insights: review.Insights,
		Issues:   append(static.Issues(), review.Feedback...),
	}
	if report.Insights == "" {
		report.Insights = summarize(static)
	}
	if report.Issues == nil {
		report.Issues = []model.Issue{}
	}

	s.logger.Info("analysis.completed",
		"intent", intent,
		"files", len(files),
		"issues", len(report.Issues),
		"score", report.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, report, s.ttl); err != nil {
			s.logger.Warn("analysis.cache_put_failed", "error", err)
		}
	}
	return report, nil
}

func summarize(static StaticResults) string {
	n := static.WarningCount()
	switch {
	case len(static) == 0:
		return "No files to analyze."
	case n == 0:
		return fmt.Sprintf("No static findings across %d file(s).", len(static))
	default:
		return fmt.Sprintf("%d static finding(s) across %d file(s); average complexity %.1f.",
			n, len(static), static.AverageComplexity())
	}
}
