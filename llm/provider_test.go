package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"openai", BackendOpenAI, false},
		{"Claude", BackendAnthropic, false},
		{"deepseek", BackendDeepSeek, false},
		{" google ", BackendGemini, false},
		{"llama", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackend(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseBackend(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOpenDefaults(t *testing.T) {
	for _, b := range Backends {
		p, err := b.Open("test-key", Options{})
		if err != nil {
			t.Fatalf("%s: %v", b, err)
		}
		if p.Name() != b.String() {
			t.Errorf("Name = %q, want %q", p.Name(), b.String())
		}
		if p.Model() != b.DefaultModel() {
			t.Errorf("%s: Model = %q, want %q", b, p.Model(), b.DefaultModel())
		}
		if b.EnvVar() == "" {
			t.Errorf("%s: no key variable", b)
		}
	}
	if _, err := Backend(42).Open("k", Options{}); err == nil {
		t.Error("unknown backend opened")
	}
}

func TestOpenAICompatibleChatWithFormat(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []ChatMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "deepseek-chat",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"action\":\"none\"}"}}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10}
		}`)
	}))
	defer srv.Close()

	p, err := BackendDeepSeek.Open("test-key", Options{BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.ChatWithFormat(context.Background(),
		[]ChatMessage{SystemMessage("be brief"), UserMessage("hi")},
		NewJSONObjectFormat())
	if err != nil {
		t.Fatalf("ChatWithFormat: %v", err)
	}
	if resp.Content != `{"action":"none"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 10 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if got.Model != ModelDeepSeekChat || got.ResponseFormat.Type != "json_object" || len(got.Messages) != 2 {
		t.Errorf("request = %+v", got)
	}
}

func TestOpenAIErrorNoAPIKeyLeak(t *testing.T) {
	testKey := "sk-test-invalid-key-12345xyz"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(testKey, srv.URL+"/v1", ModelOpenAIGPT4oMini, 100, 0)
	_, err := p.Chat(context.Background(), []ChatMessage{UserMessage("test")})
	if err == nil {
		t.Fatal("expected error from 401 response")
	}
	if strings.Contains(err.Error(), testKey) || strings.Contains(err.Error(), "Authorization:") {
		t.Errorf("error leaked credentials: %v", err)
	}
}

func TestAnthropicMessagesSplitSystem(t *testing.T) {
	msgs, system := convertToAnthropicMessages([]ChatMessage{
		SystemMessage("one"),
		UserMessage("hi"),
		SystemMessage("two"),
		AssistantMessage("hello"),
	})
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if system != "one\n\ntwo" {
		t.Errorf("system = %q", system)
	}
}

func TestGeminiInitErrorPreserved(t *testing.T) {
	p := &GeminiProvider{model: "gemini-2.0-flash", initErr: io.ErrUnexpectedEOF}
	if _, err := p.Chat(context.Background(), []ChatMessage{UserMessage("x")}); err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want stored init error", err)
	}
}
