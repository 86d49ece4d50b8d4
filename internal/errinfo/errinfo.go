// Package errinfo maps domain errors to structured wire errors.
package errinfo

import (
	"errors"
	"net/http"

	"github.com/richinex/mentorspace/actionlog"
	"github.com/richinex/mentorspace/model"
	"github.com/richinex/mentorspace/session"
	"github.com/richinex/mentorspace/workspace"
)

// ErrorInfo is the error payload returned to clients.
type ErrorInfo struct {
	ErrorCode string `json:"error_code"`
	Retryable bool   `json:"retryable"`
	Detail    string `json:"detail,omitempty"`
}

const (
	CodeNotFound                = "NOT_FOUND"
	CodeAlreadyApplied          = "ALREADY_APPLIED"
	CodeNotApplied              = "NOT_APPLIED"
	CodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeInternal                = "INTERNAL"
)

func ValidationFailed(detail string) *ErrorInfo {
	return &ErrorInfo{ErrorCode: CodeValidationFailed, Detail: detail}
}

// FromError classifies err and returns the payload and HTTP status.
func FromError(err error) (*ErrorInfo, int) {
	if err == nil {
		return nil, http.StatusOK
	}
	info := &ErrorInfo{Detail: err.Error()}
	switch {
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, actionlog.ErrRecordNotFound):
		info.ErrorCode = CodeNotFound
		return info, http.StatusNotFound
	case errors.Is(err, actionlog.ErrAlreadyApplied):
		info.ErrorCode = CodeAlreadyApplied
		return info, http.StatusConflict
	case errors.Is(err, actionlog.ErrNotApplied):
		info.ErrorCode = CodeNotApplied
		return info, http.StatusConflict
	case errors.Is(err, model.ErrCollaboratorUnavailable):
		info.ErrorCode = CodeCollaboratorUnavailable
		info.Retryable = true
		return info, http.StatusBadGateway
	case errors.Is(err, actionlog.ErrInvalidAction), errors.Is(err, session.ErrEmptyMessage):
		info.ErrorCode = CodeValidationFailed
		return info, http.StatusBadRequest
	default:
		info.ErrorCode = CodeInternal
		return info, http.StatusInternalServerError
	}
}
