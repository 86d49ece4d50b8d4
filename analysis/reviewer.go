package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	jsonutil "github.com/richinex/mentorspace/internal/json"
	"github.com/richinex/mentorspace/llm"
	"github.com/richinex/mentorspace/model"
)

// Intent selects what an analysis looks for.
type Intent string

const (
	IntentReview   Intent = "review"
	IntentSecurity Intent = "security"
)

// ParseIntent validates s. Empty means review.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case "", IntentReview:
		return IntentReview, nil
	case IntentSecurity:
		return IntentSecurity, nil
	default:
		return "", fmt.Errorf("unknown analysis intent %q", s)
	}
}

// ReviewContext is what a reviewer sees.
type ReviewContext struct {
	Files      model.FileMap `json:"files"`
	StaticData StaticResults `json:"static_data"`
}

// Review is a reviewer's verdict.
type Review struct {
	Feedback []model.Issue `json:"feedback"`
	Insights string        `json:"insights"`
}

// Reviewer explains static findings and adds its own.
type Reviewer interface {
	Review(ctx context.Context, intent Intent, rc ReviewContext) (Review, error)
}

const reviewPrompt = `You are an AI Code Mentor reviewing a student's code.
You will receive the raw files and static analysis results (linter warnings and complexity metrics).
Explain the static findings conceptually to a student and identify architectural flaws.
Return ONLY valid JSON matching this schema:
{
  "feedback": [
    {"file": "index.py", "line": 4, "severity": "high|medium|low", "message": "Why this is an issue and how to fix it."}
  ],
  "insights": "General summary of improvement."
}`

const securityPrompt = `You are a Security Sentinel scanning a student's code.
Focus ONLY on vulnerabilities: injection, hardcoded credentials, unsafe deserialization, path traversal.
Return ONLY valid JSON matching this schema:
{
  "feedback": [
    {"file": "main.py", "line": 42, "severity": "high|medium|low", "message": "Vulnerability explained"}
  ],
  "insights": "Overall security posture."
}`

// LLMReviewer asks an LLM provider for a review.
type LLMReviewer struct {
	provider llm.Provider
}

// NewLLMReviewer creates a reviewer backed by provider.
func NewLLMReviewer(provider llm.Provider) *LLMReviewer {
	return &LLMReviewer{provider: provider}
}

// Review sends the files and static data and decodes the verdict.
func (r *LLMReviewer) Review(ctx context.Context, intent Intent, rc ReviewContext) (Review, error) {
	system := reviewPrompt
	if intent == IntentSecurity {
		system = securityPrompt
	}
	payload, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return Review{}, fmt.Errorf("encode review context: %w", err)
	}

	resp, err := r.provider.ChatWithFormat(ctx, []llm.ChatMessage{
		llm.SystemMessage(system),
		llm.UserMessage(string(payload)),
	}, llm.NewJSONObjectFormat())
	if err != nil {
		return Review{}, fmt.Errorf("%s review: %w", r.provider.Name(), err)
	}

	review, err := jsonutil.ExtractJSONFromResponse[Review](resp.Content)
	if err != nil {
		return Review{}, fmt.Errorf("decode review: %w", err)
	}
	return review, nil
}
