// OpenAI adapter. Calls the OpenAI REST API (or any compatible endpoint via
// Options.BaseURL) using stdlib net/http.
// Endpoints used:
//   - POST /chat/completions: non-streaming completion with function tools
//   - POST /embeddings: batch text embeddings
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAITimeout = 30 * time.Second

	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
)

// OpenAIProvider implements Provider against the OpenAI API.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
}

// NewOpenAIProvider creates an OpenAIProvider. A zero timeout falls back to
// 30s so no outbound call is ever unbounded.
func NewOpenAIProvider(opts Options) *OpenAIProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	return &OpenAIProvider{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		chatModel:  opts.ChatModel,
		embedModel: opts.EmbedModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ===== internal OpenAI JSON types =====

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openAITool struct {
	Type     string            `json:"type"`
	Function openAIFunctionDef `json:"function"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float32             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Tools       []openAITool        `json:"tools,omitempty"`
	ToolChoice  string              `json:"tool_choice,omitempty"`
	Stream      bool                `json:"stream"`
}

type openAIToolCall struct {
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// ===== Provider implementation =====

// ChatCompletion performs a non-streaming chat via POST /chat/completions.
// Declared tools are rendered as "function" tools with tool_choice "auto".
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.chatModel
	}

	msgs := make([]openAIChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openAIChatMessage(m)
	}

	wire := openAIChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
	if len(req.Tools) > 0 {
		wire.Tools = renderOpenAITools(req.Tools)
		wire.ToolChoice = "auto"
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	respBody, postErr := p.doPost(ctx, "/chat/completions", body)
	if postErr != nil {
		return nil, postErr
	}
	defer respBody.Close()

	var out openAIChatResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&out); decodeErr != nil {
		return nil, errs.Upstreamf("decode chat response: %v", decodeErr)
	}
	if len(out.Choices) == 0 {
		return nil, errs.Upstreamf("chat response has no choices")
	}

	choice := out.Choices[0]
	resp := &ChatResponse{
		Content:    strings.TrimSpace(choice.Message.Content),
		StopReason: choice.FinishReason,
	}
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp, nil
}

// Embed computes embeddings for all texts in a single POST /embeddings call.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}

	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	body, err := json.Marshal(openAIEmbedRequest{
		Model:          model,
		Input:          req.Texts,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, err
	}
	respBody, postErr := p.doPost(ctx, "/embeddings", body)
	if postErr != nil {
		return nil, postErr
	}
	defer respBody.Close()

	var out openAIEmbedResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&out); decodeErr != nil {
		return nil, errs.Upstreamf("decode embed response: %v", decodeErr)
	}
	if len(out.Data) != len(req.Texts) {
		return nil, errs.Upstreamf("embed response count mismatch: want %d, got %d", len(req.Texts), len(out.Data))
	}

	embeddings := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		embeddings[i] = d.Embedding
	}
	return &EmbedResponse{Embeddings: embeddings}, nil
}

// ModelInfo returns static metadata for this provider.
func (p *OpenAIProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		Provider:   "openai",
		ChatModel:  p.chatModel,
		EmbedModel: p.embedModel,
	}
}

// ===== helpers =====

// renderOpenAITools converts neutral Tool declarations into the OpenAI
// "function" tool wire format with a JSON Schema parameters object.
func renderOpenAITools(tools []Tool) []openAITool {
	out := make([]openAITool, 0, len(tools))
	for _, t := range tools {
		props := map[string]any{}
		for name, prop := range t.Parameters.Properties {
			props[name] = map[string]any{
				"type":        prop.Type,
				"description": prop.Description,
			}
		}
		required := t.Parameters.Required
		if required == nil {
			required = []string{}
		}
		schema, _ := json.Marshal(map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		})
		out = append(out, openAITool{
			Type: "function",
			Function: openAIFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}
	return out
}

// doPost sends an authenticated POST to baseURL+path and returns the response
// body. Caller is responsible for closing the returned ReadCloser. Transport
// failures and non-2xx statuses surface as upstream errors.
func (p *OpenAIProvider) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	url := p.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai post %s: build request: %w", path, err)
	}
	req.Header.Set(headerContentType, mimeJSON)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errs.Upstreamf("openai post %s: %v", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close() //nolint:errcheck
		return nil, errs.Upstreamf("openai post %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp.Body, nil
}

func init() {
	Register("openai", func(opts Options) (Provider, error) {
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, errs.Configurationf("openai provider requires an api key")
		}
		return NewOpenAIProvider(opts), nil
	})
}
