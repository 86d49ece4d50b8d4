package agent

import (
	"encoding/json"

	"github.com/richinex/mentorspace/model"
)

// reply is the JSON object the model answers with.
type reply struct {
	Action      string `json:"action"`
	TargetFile  string `json:"target_file"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}

// UnmarshalJSON accepts "file" as an alias of "target_file" and "content" as
// an alias of "code", which models tend to drift to.
func (r *reply) UnmarshalJSON(data []byte) error {
	type replyAlias reply
	aux := &struct {
		File    string `json:"file"`
		Content string `json:"content"`
		*replyAlias
	}{
		replyAlias: (*replyAlias)(r),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if r.TargetFile == "" {
		r.TargetFile = aux.File
	}
	if r.Code == "" {
		r.Code = aux.Content
	}
	return nil
}

func (r reply) response() model.ChatResponse {
	return model.ChatResponse{
		Action:      r.Action,
		TargetFile:  r.TargetFile,
		Code:        r.Code,
		Explanation: r.Explanation,
	}
}

// prompt is the user message payload.
type prompt struct {
	Message      string   `json:"message"`
	ProjectFiles model.FileMap `json:"project_files"`
	ActiveFile   string        `json:"active_file,omitempty"`
	FileContent  string        `json:"file_content,omitempty"`
	SelectedCode string        `json:"selected_code,omitempty"`
	Truncated    bool          `json:"truncated,omitempty"`
}
