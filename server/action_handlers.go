package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/richinex/mentorspace/actionlog"
	"github.com/richinex/mentorspace/workspace"
)

// actionResponse pairs a record with the workspace its transition produced.
type actionResponse struct {
	Record    actionlog.RecordView `json:"record"`
	Workspace workspace.Snapshot   `json:"workspace"`
}

func (s *Server) listActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actions": s.ctrl.Log().Records()})
}

func (s *Server) getAction(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ctrl.Log().Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) previewAction(w http.ResponseWriter, r *http.Request) {
	p, err := s.ctrl.Log().Preview(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) applyAction(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.ctrl.ApplyWithSnapshot)
}

func (s *Server) undoAction(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.ctrl.UndoWithSnapshot)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, op func(string) (actionlog.RecordView, workspace.Snapshot, error)) {
	rec, snap, err := op(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Record: rec, Workspace: snap})
}
