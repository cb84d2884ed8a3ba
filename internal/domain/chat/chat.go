// Package chat orchestrates one conversational turn: retrieve grounding
// passages, call the model with the safe-action tools declared, and shape
// the outcome as either an answer or a set of proposed tool calls.
package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/timelessnp/sitechat/internal/domain/index"
	"github.com/timelessnp/sitechat/internal/domain/session"
	"github.com/timelessnp/sitechat/internal/domain/tool"
	"github.com/timelessnp/sitechat/internal/infra/llm"
	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

const (
	chatTemperature = 0.2
	chatMaxTokens   = 512
	// referenced-message snippets are cut to this many runes in the prompt
	snippetMaxRunes = 90
)

const instructions = "You are an assistant embedded inside the Timeless NP website. " +
	"You can answer questions using the provided SOURCES and you can perform safe website actions using tools.\n\n" +
	"Rules:\n" +
	"- If the user asks for navigation (e.g., 'bring me to contact us'), call navigate.\n" +
	"- If the user asks to go to a section on the current page, call scroll_to.\n" +
	"- If SOURCES do not contain the answer, say you don't have it yet.\n" +
	"- Never claim you can control the user's laptop. You only control this website tab.\n"

// Result types returned to the API layer.
const (
	TypeAnswer = "answer"
	TypeTool   = "tool"
)

// Source identifies one retrieval hit the answer was grounded on.
type Source struct {
	Title string  `json:"title"`
	Score float32 `json:"score"`
}

// ToolCall is a model-proposed action with decoded arguments. Arguments the
// model sent in an undecodable form collapse to an empty map.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the outcome of one turn: Type is TypeAnswer or TypeTool.
type Result struct {
	Type      string
	Text      string
	Sources   []Source
	ToolCalls []ToolCall
}

// Options wires a Service.
type Options struct {
	Provider     llm.Provider
	Index        *index.Index
	TopK         int
	AllowedPages []string
	Logger       *zap.Logger
}

// Service runs chat turns against a read-only index. Safe to share across
// requests; it holds no per-conversation state.
type Service struct {
	provider llm.Provider
	idx      *index.Index
	topK     int
	tools    []llm.Tool
	logger   *zap.Logger
}

// NewService builds the orchestrator.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: opts.Provider,
		idx:      opts.Index,
		topK:     opts.TopK,
		tools:    declareTools(opts.AllowedPages),
		logger:   logger,
	}
}

// Handle runs one turn. The session supplies the conversation window and
// the optional referenced message; it is not mutated here, the caller owns
// appending the turn once the result is delivered.
func (s *Service) Handle(ctx context.Context, message, page string, sess *session.Session) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errs.Validationf("message must be a non-empty string")
	}

	meta := s.provider.ModelInfo()
	embResp, err := s.provider.Embed(ctx, llm.EmbedRequest{Model: meta.EmbedModel, Texts: []string{message}})
	if err != nil {
		return nil, asUpstream("embed query", err)
	}
	if len(embResp.Embeddings) == 0 {
		return nil, errs.Upstreamf("embed query: no vector returned")
	}

	hits := s.idx.Rank(embResp.Embeddings[0], s.topK)

	resp, err := s.provider.ChatCompletion(ctx, llm.ChatRequest{
		Model:       meta.ChatModel,
		Messages:    s.buildMessages(message, page, sess, hits),
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
		Tools:       s.tools,
	})
	if err != nil {
		return nil, asUpstream("chat completion", err)
	}

	if len(resp.ToolCalls) > 0 {
		calls := make([]ToolCall, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			calls[i] = ToolCall{Name: tc.Name, Arguments: decodeArguments(tc.Arguments)}
		}
		s.logger.Debug("turn produced tool calls",
			zap.String("session", sess.ID()),
			zap.Int("calls", len(calls)))
		return &Result{Type: TypeTool, ToolCalls: calls}, nil
	}

	sources := make([]Source, len(hits))
	for i, h := range hits {
		sources[i] = Source{Title: h.Record.Title, Score: h.Score}
	}
	return &Result{Type: TypeAnswer, Text: resp.Content, Sources: sources}, nil
}

// buildMessages renders the turn: instructions, the conversation window
// oldest to newest, then the grounded user message.
func (s *Service) buildMessages(message, page string, sess *session.Session, hits []index.Match) []llm.Message {
	msgs := []llm.Message{{Role: "system", Content: instructions}}
	for _, t := range sess.History() {
		msgs = append(msgs, llm.Message{Role: string(t.Role), Content: t.Text})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: buildUserPrompt(message, page, sess, hits)})
	return msgs
}

func buildUserPrompt(message, page string, sess *session.Session, hits []index.Match) string {
	if strings.TrimSpace(page) == "" {
		page = "unknown"
	}
	b := strings.Builder{}
	b.WriteString("PAGE: ")
	b.WriteString(page)
	if selected, ok := sess.SelectedMessage(); ok {
		b.WriteString("\n\nREFERENCED MESSAGE: ")
		b.WriteString(truncateSnippet(selected.Text))
	}
	b.WriteString("\n\nUSER: ")
	b.WriteString(message)
	b.WriteString("\n\nSOURCES:\n")
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString("SOURCE ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(": ")
		b.WriteString(h.Record.Title)
		b.WriteString("\n")
		b.WriteString(h.Record.Text)
	}
	return b.String()
}

// truncateSnippet cuts long referenced messages for the prompt.
func truncateSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetMaxRunes {
		return text
	}
	return string(runes[:snippetMaxRunes]) + "…"
}

// decodeArguments parses the raw argument payload from the model. Anything
// undecodable yields empty arguments instead of an error: a bad payload is
// the model's fault, and the safety layer rejects empty arguments anyway.
func decodeArguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

// asUpstream keeps provider errors in the upstream class without
// double-wrapping the ones already classified.
func asUpstream(op string, err error) error {
	if errs.IsUpstream(err) || errs.IsConfiguration(err) {
		return err
	}
	return errs.Upstreamf("%s: %v", op, err)
}

// declareTools builds the two safe-action declarations sent to the model.
// The navigate description enumerates the allowlist so the model proposes
// paths that can actually pass validation.
func declareTools(allowedPages []string) []llm.Tool {
	return []llm.Tool{
		{
			Name:        tool.NameNavigate,
			Description: "Navigate to a different page on this website.",
			Parameters: llm.ToolParams{
				Properties: map[string]llm.ToolProp{
					"path": {
						Type: "string",
						Description: "Allowed pages (optional #anchor): " +
							strings.Join(allowedPages, ", ") +
							". Example: " + exampleNavigatePath(allowedPages),
					},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        tool.NameScrollTo,
			Description: "Scroll to a section on the current page using a CSS selector.",
			Parameters: llm.ToolParams{
				Properties: map[string]llm.ToolProp{
					"selector": {
						Type:        "string",
						Description: "Example: #about or #contact",
					},
				},
				Required: []string{"selector"},
			},
		},
	}
}

func exampleNavigatePath(allowedPages []string) string {
	if len(allowedPages) == 0 {
		return "/index.html#contact"
	}
	return allowedPages[0] + "#contact"
}
