// Package storage caches analysis reports.
//
// Reports are keyed by analysis intent plus a workspace fingerprint, so an
// unchanged workspace is not re-analyzed until its entry expires.
package storage

import (
	"context"
	"time"

	"github.com/richinex/mentorspace/model"
)

// AnalysisCache stores reports with a time-to-live.
type AnalysisCache interface {
	// Get returns the report under key. Expired entries are misses.
	Get(ctx context.Context, key string) (model.AnalysisReport, bool, error)

	// Put stores report under key for ttl. A non-positive ttl never expires.
	Put(ctx context.Context, key string, report model.AnalysisReport, ttl time.Duration) error

	// Purge removes expired entries and reports how many were removed.
	Purge(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// CacheKey joins an intent and a workspace fingerprint.
func CacheKey(intent, fingerprint string) string {
	return intent + ":" + fingerprint
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}

func cloneReport(r model.AnalysisReport) model.AnalysisReport {
	if r.Issues != nil {
		issues := make([]model.Issue, len(r.Issues))
		copy(issues, r.Issues)
		r.Issues = issues
	}
	return r
}
