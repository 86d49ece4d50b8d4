// Package model provides domain types shared across packages.
package model

import (
	"errors"
	"fmt"
	"sort"
)

// FileMap maps a workspace path to its full content.
// This is the shape every collaborator receives.
type FileMap map[string]string

// Paths returns the keys in sorted order.
func (m FileMap) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns an independent copy.
func (m FileMap) Clone() FileMap {
	out := make(FileMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Severity levels used by analysis findings.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Issue is a single analysis finding.
type Issue struct {
	File     string `json:"file"`
	Line     *int   `json:"line,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Kind     string `json:"kind,omitempty"`
}

// AnalysisReport is what the analysis collaborator returns.
// Error is set instead of returning a Go error when the request failed
// and the controller substituted a placeholder.
type AnalysisReport struct {
	Score    int     `json:"score"`
	Insights string  `json:"insights"`
	Issues   []Issue `json:"issues"`
	Error    string  `json:"error,omitempty"`
}

// RunRequest asks the sandbox to run Command against Files.
type RunRequest struct {
	Files   FileMap `json:"files"`
	Command string  `json:"test_command"`
}

// RunResult is the sandbox output. Error is true when the command failed
// or the sandbox could not be reached.
type RunResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Error  bool   `json:"error"`
}

// ChatRequest is the context sent to the chat collaborator with a message.
// FullProjectTree maps every open path to its content.
type ChatRequest struct {
	UserMessage        string   `json:"user_message"`
	CurrentFileContent string   `json:"current_file_content"`
	CurrentFilePath    string   `json:"current_file_path"`
	FullProjectTree    FileMap  `json:"full_project_tree"`
	SelectedCode       string   `json:"selected_code,omitempty"`
}

// ChatResponse is the chat collaborator's reply. Action is empty or "none"
// when the reply proposes no change.
type ChatResponse struct {
	Action      string `json:"action"`
	TargetFile  string `json:"target_file"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}

// HasAction reports whether the reply carries a proposed change.
func (r ChatResponse) HasAction() bool {
	return r.Action != "" && r.Action != "none"
}

// ErrCollaboratorUnavailable is wrapped by every failure from the chat,
// analysis or sandbox collaborators.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// CollaboratorError names the collaborator that failed.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Collaborator, ErrCollaboratorUnavailable)
	}
	return fmt.Sprintf("%s: %v: %v", e.Collaborator, ErrCollaboratorUnavailable, e.Err)
}

// Is makes errors.Is(err, ErrCollaboratorUnavailable) match.
func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaboratorUnavailable
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Unavailable wraps err as a failure of the named collaborator.
func Unavailable(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}
