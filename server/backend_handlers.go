package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/richinex/mentorspace/analysis"
	"github.com/richinex/mentorspace/model"
	"github.com/richinex/mentorspace/sandbox"
)

type analyzeRequest struct {
	Files model.FileMap `json:"files"`
}

func (s *Server) backendAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}

	var (
		report model.AnalysisReport
		err    error
	)
	if raw := r.URL.Query().Get("intent"); raw != "" {
		intent, perr := analysis.ParseIntent(raw)
		if perr != nil {
			writeValidation(w, perr.Error())
			return
		}
		ia, ok := s.analyzer.(IntentAnalyzer)
		if !ok {
			writeValidation(w, "analyzer does not support intents")
			return
		}
		report, err = ia.AnalyzeIntent(r.Context(), req.Files, intent)
	} else {
		report, err = s.analyzer.Analyze(r.Context(), req.Files)
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) backendRun(w http.ResponseWriter, r *http.Request) {
	var req model.RunRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeValidation(w, "test_command is required")
		return
	}
	result, err := s.runner.Run(r.Context(), req)
	if errors.Is(err, sandbox.ErrUnsafePath) {
		writeValidation(w, err.Error())
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) backendChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		writeValidation(w, "user_message is required")
		return
	}
	resp, err := s.chat.Chat(r.Context(), req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
