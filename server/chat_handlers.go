package server

import (
	"net/http"

	"github.com/richinex/mentorspace/actionlog"
	"github.com/richinex/mentorspace/session"
)

type chatRequest struct {
	Message      string `json:"message"`
	SelectedCode string `json:"selected_code,omitempty"`
}

type chatResponse struct {
	Entry  session.Entry         `json:"entry"`
	Record *actionlog.RecordView `json:"record,omitempty"`
}

func (s *Server) getTranscript(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"transcript": s.ctrl.Transcript()})
}

// postChat answers 200 even when the chat collaborator failed; the entry's
// role is then "error".
func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	entry, err := s.ctrl.Submit(r.Context(), req.Message, req.SelectedCode)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	resp := chatResponse{Entry: entry}
	if entry.RecordID != "" {
		if rec, err := s.ctrl.Log().Get(entry.RecordID); err == nil {
			resp.Record = &rec
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
