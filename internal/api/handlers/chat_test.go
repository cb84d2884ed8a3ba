package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timelessnp/sitechat/internal/domain/chat"
	"github.com/timelessnp/sitechat/internal/domain/index"
	"github.com/timelessnp/sitechat/internal/domain/tool"
	"github.com/timelessnp/sitechat/internal/infra/llm"
)

// stubProvider plays back a canned chat response for handler tests.
type stubProvider struct {
	chatResp *llm.ChatResponse
	chatErr  error
}

func (s *stubProvider) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if s.chatErr != nil {
		return nil, s.chatErr
	}
	return s.chatResp, nil
}

func (s *stubProvider) Embed(ctx context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	return &llm.EmbedResponse{Embeddings: [][]float32{{1, 0}}}, nil
}

func (s *stubProvider) ModelInfo() llm.ModelMeta {
	return llm.ModelMeta{Provider: "stub", ChatModel: "c", EmbedModel: "e"}
}

func newChatHandler(t *testing.T, stub *stubProvider) *ChatHandler {
	t.Helper()
	idx, err := index.New("e", []index.Record{
		{ID: "1", Title: "Fund", Text: "Kickstart Fund supports student projects.", Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("fixture index: %v", err)
	}
	svc := chat.NewService(chat.Options{
		Provider:     stub,
		Index:        idx,
		TopK:         4,
		AllowedPages: []string{"/index.html"},
	})
	registry := tool.NewRegistry(
		tool.NewNavigateHandler([]string{"/index.html"}, ""),
		tool.NewScrollHandler(map[string][]string{"/index.html": {"#contact"}}),
	)
	return NewChatHandler(svc, registry, nil)
}

func postChat(t *testing.T, h *ChatHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Handle(w, req)
	return w
}

func TestChatHandler_Answer(t *testing.T) {
	h := newChatHandler(t, &stubProvider{chatResp: &llm.ChatResponse{Content: "It supports student projects."}})

	w := postChat(t, h, ChatRequest{
		Message:   "What is Kickstart Fund?",
		Page:      "/index.html",
		SessionID: "dev-1",
		History: []HistoryTurn{
			{ID: "1", Role: "user", Text: "hi"},
			{ID: "2", Role: "assistant", Text: "hello"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200 (%s)", w.Code, w.Body.String())
	}

	var resp AnswerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Type != "answer" {
		t.Errorf("type = %q; want answer", resp.Type)
	}
	if resp.Text != "It supports student projects." {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Title != "Fund" {
		t.Errorf("unexpected sources %+v", resp.Sources)
	}
}

func TestChatHandler_ToolCallValidated(t *testing.T) {
	h := newChatHandler(t, &stubProvider{chatResp: &llm.ChatResponse{
		ToolCalls: []llm.ToolCall{{Name: "navigate", Arguments: `{"path":"/index.html#contact"}`}},
	}})

	w := postChat(t, h, ChatRequest{Message: "bring me to contact us page", Page: "/index.html"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}

	var resp ToolResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Type != "tool" || len(resp.ToolCalls) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	call := resp.ToolCalls[0]
	if call.Name != "navigate" {
		t.Errorf("name = %q; want navigate", call.Name)
	}
	if call.Outcome.State != "executed" {
		t.Errorf("state = %q; want executed (%s)", call.Outcome.State, call.Outcome.Reply)
	}
	if call.Outcome.Directive == nil || call.Outcome.Directive.Path != "/index.html#contact" {
		t.Errorf("unexpected directive %+v", call.Outcome.Directive)
	}
}

func TestChatHandler_ToolCallRejected(t *testing.T) {
	h := newChatHandler(t, &stubProvider{chatResp: &llm.ChatResponse{
		ToolCalls: []llm.ToolCall{{Name: "navigate", Arguments: `{"path":"https://evil.example/x"}`}},
	}})

	w := postChat(t, h, ChatRequest{Message: "open evil", Page: "/index.html"})
	var resp ToolResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	call := resp.ToolCalls[0]
	if call.Outcome.State != "rejected" {
		t.Errorf("state = %q; want rejected", call.Outcome.State)
	}
	if call.Outcome.Directive != nil {
		t.Error("rejected calls must not carry a directive")
	}
	if call.Outcome.Reply != "I can't navigate to that page." {
		t.Errorf("unexpected refusal %q", call.Outcome.Reply)
	}
}

func TestChatHandler_ValidationError(t *testing.T) {
	h := newChatHandler(t, &stubProvider{chatResp: &llm.ChatResponse{}})

	w := postChat(t, h, ChatRequest{Message: "   ", Page: "/"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected an error message")
	}
}

func TestChatHandler_MalformedBody(t *testing.T) {
	h := newChatHandler(t, &stubProvider{chatResp: &llm.ChatResponse{}})

	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.Handle(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", w.Code)
	}
}

func TestChatHandler_UpstreamError(t *testing.T) {
	h := newChatHandler(t, &stubProvider{chatErr: errors.New("connection refused")})

	w := postChat(t, h, ChatRequest{Message: "hi", Page: "/"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d; want 502", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "couldn't reach the assistant, try again" {
		t.Errorf("unexpected error text %q", resp.Error)
	}
}
