// Gemini adapter built on google.golang.org/genai. Tool declarations are
// rendered as FunctionDeclarations; the SDK surfaces model tool requests via
// FunctionCalls(), whose decoded args we re-encode so callers see the same
// raw-JSON argument contract as the OpenAI adapter.
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

// GeminiProvider implements Provider against the Gemini API.
type GeminiProvider struct {
	apiKey     string
	chatModel  string
	embedModel string
	httpClient *http.Client
}

// NewGeminiProvider creates a GeminiProvider with a bounded HTTP client.
func NewGeminiProvider(opts Options) *GeminiProvider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	return &GeminiProvider{
		apiKey:     strings.TrimSpace(opts.APIKey),
		chatModel:  opts.ChatModel,
		embedModel: opts.EmbedModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *GeminiProvider) client(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     p.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	})
	if err != nil {
		return nil, errs.Upstreamf("gemini client: %v", err)
	}
	return client, nil
}

// ChatCompletion performs a non-streaming generation. The system message, if
// present, becomes the SystemInstruction; remaining turns map onto
// user/model contents.
func (p *GeminiProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.chatModel
	}

	cfg := &genai.GenerateContentConfig{}
	if req.Temperature != 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens != 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: renderGeminiTools(req.Tools)}}
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, errs.Upstreamf("gemini generate: %v", err)
	}

	out := &ChatResponse{
		Content:    strings.TrimSpace(resp.Text()),
		StopReason: "stop",
	}
	for _, fc := range resp.FunctionCalls() {
		args, marshalErr := json.Marshal(fc.Args)
		if marshalErr != nil {
			args = []byte("{}")
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: fc.Name, Arguments: string(args)})
	}
	if len(out.ToolCalls) > 0 {
		out.StopReason = "tool_calls"
	}
	return out, nil
}

// Embed computes embeddings for all texts in one EmbedContent call.
func (p *GeminiProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}

	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	contents := make([]*genai.Content, len(req.Texts))
	for i, text := range req.Texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	resp, err := client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, errs.Upstreamf("gemini embed: %v", err)
	}
	if len(resp.Embeddings) != len(req.Texts) {
		return nil, errs.Upstreamf("embed response count mismatch: want %d, got %d", len(req.Texts), len(resp.Embeddings))
	}

	embeddings := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		embeddings[i] = e.Values
	}
	return &EmbedResponse{Embeddings: embeddings}, nil
}

// ModelInfo returns static metadata for this provider.
func (p *GeminiProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		Provider:   "gemini",
		ChatModel:  p.chatModel,
		EmbedModel: p.embedModel,
	}
}

func renderGeminiTools(tools []Tool) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Parameters.Properties))
		for name, prop := range t.Parameters.Properties {
			props[name] = &genai.Schema{
				Type:        genaiType(prop.Type),
				Description: prop.Description,
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   t.Parameters.Required,
			},
		})
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func init() {
	Register("gemini", func(opts Options) (Provider, error) {
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, errs.Configurationf("gemini provider requires an api key")
		}
		return NewGeminiProvider(opts), nil
	})
}
