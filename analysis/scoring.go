package analysis

import (
	"strings"

	"github.com/richinex/mentorspace/model"
)

// Score starts at 100 and deducts for complexity, static warnings and
// reviewer findings. The result is clamped to 0..100.
//
//	average complexity > 10: -20, > 5: -10
//	each static warning:     -2
//	each reviewer finding:   -8 high, -3 medium, -1 otherwise
func Score(static StaticResults, feedback []model.Issue) int {
	score := 100

	switch avg := static.AverageComplexity(); {
	case avg > 10:
		score -= 20
	case avg > 5:
		score -= 10
	}

	score -= 2 * static.WarningCount()

	for _, issue := range feedback {
		severity := strings.ToLower(issue.Severity)
		if severity == "" {
			severity = model.SeverityMedium
		}
		switch severity {
		case model.SeverityHigh:
			score -= 8
		case model.SeverityMedium:
			score -= 3
		default:
			score -= 1
		}
	}

	return max(0, min(100, score))
}
