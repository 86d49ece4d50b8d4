package errinfo

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/richinex/mentorspace/actionlog"
	"github.com/richinex/mentorspace/model"
	"github.com/richinex/mentorspace/session"
	"github.com/richinex/mentorspace/workspace"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"workspace not found", fmt.Errorf("update: %w", workspace.ErrNotFound), CodeNotFound, http.StatusNotFound},
		{"record not found", actionlog.ErrRecordNotFound, CodeNotFound, http.StatusNotFound},
		{"already applied", fmt.Errorf("apply x: %w", actionlog.ErrAlreadyApplied), CodeAlreadyApplied, http.StatusConflict},
		{"not applied", actionlog.ErrNotApplied, CodeNotApplied, http.StatusConflict},
		{"collaborator", model.Unavailable("sandbox", errors.New("refused")), CodeCollaboratorUnavailable, http.StatusBadGateway},
		{"invalid action", actionlog.ErrInvalidAction, CodeValidationFailed, http.StatusBadRequest},
		{"empty message", session.ErrEmptyMessage, CodeValidationFailed, http.StatusBadRequest},
		{"other", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, status := FromError(tt.err)
			if info.ErrorCode != tt.code || status != tt.status {
				t.Fatalf("FromError = %s/%d, want %s/%d", info.ErrorCode, status, tt.code, tt.status)
			}
		})
	}
}

func TestCollaboratorRetryable(t *testing.T) {
	info, _ := FromError(model.Unavailable("chat", nil))
	if !info.Retryable {
		t.Fatalf("expected retryable")
	}
	if v := ValidationFailed("bad"); v.ErrorCode != CodeValidationFailed || v.Retryable {
		t.Fatalf("unexpected validation info: %+v", v)
	}
}
