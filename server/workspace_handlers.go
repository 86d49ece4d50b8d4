package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/richinex/mentorspace/workspace"
)

const defaultSearchLimit = 200

type addFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type updateFileRequest struct {
	Content string `json:"content"`
}

type setActiveRequest struct {
	Path string `json:"path"`
}

type runRequest struct {
	Command string `json:"command"`
}

func (s *Server) getWorkspace(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Workspace().Snapshot())
}

func (s *Server) listTree(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	entries := s.ctrl.Workspace().List(dir)
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"dir": dir, "entries": entries})
}

func (s *Server) searchWorkspace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeValidation(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	matches, err := s.ctrl.Workspace().Search(q.Get("q"), limit)
	if errors.Is(err, workspace.ErrBadQuery) {
		writeValidation(w, err.Error())
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if matches == nil {
		matches = []workspace.Match{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) addFile(w http.ResponseWriter, r *http.Request) {
	var req addFileRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		writeValidation(w, "path is required")
		return
	}
	ws := s.ctrl.Workspace()
	ws.Add(path, req.Content)
	writeJSON(w, http.StatusCreated, ws.Snapshot())
}

func (s *Server) updateFile(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	var req updateFileRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	ws := s.ctrl.Workspace()
	if err := ws.Update(path, req.Content); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) removeFile(w http.ResponseWriter, r *http.Request) {
	ws := s.ctrl.Workspace()
	if err := ws.Remove(chi.URLParam(r, "*")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) setActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	ws := s.ctrl.Workspace()
	if err := ws.SetActive(req.Path); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

// analyzeWorkspace always answers 200; a collaborator failure is carried in
// the report's error field.
func (s *Server) analyzeWorkspace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Analyze(r.Context()))
}

func (s *Server) runWorkspace(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Run(r.Context(), req.Command))
}
