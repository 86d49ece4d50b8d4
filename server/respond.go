package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/richinex/mentorspace/internal/errinfo"
)

type errorBody struct {
	Error *errinfo.ErrorInfo `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// writeErr renders err with the status its classification maps to.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	info, status := errinfo.FromError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("server.error", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: info})
}

func writeValidation(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errinfo.ValidationFailed(detail)})
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
