package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timelessnp/sitechat/internal/domain/chat"
	"github.com/timelessnp/sitechat/internal/domain/index"
	"github.com/timelessnp/sitechat/internal/domain/tool"
	"github.com/timelessnp/sitechat/internal/infra/config"
	"github.com/timelessnp/sitechat/internal/infra/llm"
)

type stubProvider struct{}

func (stubProvider) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "hello"}, nil
}

func (stubProvider) Embed(ctx context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	return &llm.EmbedResponse{Embeddings: [][]float32{{1, 0}}}, nil
}

func (stubProvider) ModelInfo() llm.ModelMeta {
	return llm.ModelMeta{Provider: "stub", ChatModel: "c", EmbedModel: "e"}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	idx, err := index.New("e", []index.Record{
		{ID: "1", Title: "Fund", Text: "t", Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("fixture index: %v", err)
	}
	cfg := &config.Config{}
	return NewRouter(Deps{
		Chat: chat.NewService(chat.Options{
			Provider:     stubProvider{},
			Index:        idx,
			TopK:         4,
			AllowedPages: []string{"/index.html"},
		}),
		Tools: tool.NewRegistry(
			tool.NewNavigateHandler([]string{"/index.html"}, ""),
			tool.NewScrollHandler(nil),
		),
		Config: cfg,
	})
}

func TestRouter_Health(t *testing.T) {
	srv := httptest.NewServer(testRouter(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d; want 200", resp.StatusCode)
	}
}

func TestRouter_Chat(t *testing.T) {
	srv := httptest.NewServer(testRouter(t))
	defer srv.Close()

	body := `{"message":"What is Kickstart Fund?","page":"/index.html","sessionId":"dev"}`
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post chat: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	var out struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != "answer" || out.Text != "hello" {
		t.Errorf("unexpected response %+v", out)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	srv := httptest.NewServer(testRouter(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d; want 404", resp.StatusCode)
	}
}
