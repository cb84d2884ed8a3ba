package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/timelessnp/sitechat/internal/domain/chat"
	"github.com/timelessnp/sitechat/internal/domain/session"
	"github.com/timelessnp/sitechat/internal/domain/tool"
)

// ChatRequest is the POST /api/chat body. History arrives oldest to newest
// exactly as the client stores it; the server re-applies the window bound.
type ChatRequest struct {
	Message           string        `json:"message"`
	Page              string        `json:"page"`
	SessionID         string        `json:"sessionId"`
	History           []HistoryTurn `json:"history"`
	SelectedMessageID string        `json:"selectedMessageId"`
}

// HistoryTurn is one client-held conversation entry.
type HistoryTurn struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
}

// AnswerResponse is returned when the model answered in free text.
type AnswerResponse struct {
	Type    string        `json:"type"`
	Text    string        `json:"text"`
	Sources []chat.Source `json:"sources"`
}

// ToolResponse is returned when the model proposed tool calls. Each call
// carries the safety outcome so the client can apply validated directives
// and render refusals without re-validating anything itself.
type ToolResponse struct {
	Type      string         `json:"type"`
	ToolCalls []ToolCallView `json:"toolCalls"`
}

// ToolCallView is one proposed call with its validation outcome.
type ToolCallView struct {
	Name      string          `json:"name"`
	Arguments map[string]any  `json:"arguments"`
	Outcome   ToolOutcomeView `json:"outcome"`
}

// ToolOutcomeView mirrors tool.Outcome on the wire.
type ToolOutcomeView struct {
	State     string          `json:"state"`
	Reply     string          `json:"reply"`
	Directive *tool.Directive `json:"directive,omitempty"`
}

// ChatHandler serves the chat endpoint.
type ChatHandler struct {
	svc    *chat.Service
	tools  *tool.Registry
	logger *zap.Logger
}

// NewChatHandler wires the orchestrator and the tool safety registry.
func NewChatHandler(svc *chat.Service, tools *tool.Registry, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{svc: svc, tools: tools, logger: logger}
}

// Handle implements POST /api/chat.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	turns := make([]session.Turn, len(req.History))
	for i, t := range req.History {
		turns[i] = session.Turn{ID: t.ID, Role: session.Role(t.Role), Text: t.Text}
	}
	sess := session.Rebuild(req.SessionID, turns, req.SelectedMessageID)

	result, err := h.svc.Handle(r.Context(), req.Message, req.Page, sess)
	if err != nil {
		h.logger.Warn("chat turn failed",
			zap.String("session", sess.ID()),
			zap.Error(err))
		writeError(w, err)
		return
	}

	if result.Type == chat.TypeTool {
		writeJSON(w, http.StatusOK, h.toolResponse(req.Page, result))
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{
		Type:    chat.TypeAnswer,
		Text:    result.Text,
		Sources: result.Sources,
	})
}

// toolResponse pushes every proposed call through the safety registry and
// renders call plus outcome.
func (h *ChatHandler) toolResponse(page string, result *chat.Result) ToolResponse {
	views := make([]ToolCallView, len(result.ToolCalls))
	for i, tc := range result.ToolCalls {
		outcome := h.tools.Execute(page, tool.Call{Name: tc.Name, Args: tc.Arguments})
		if outcome.State == tool.StateRejected {
			h.logger.Info("tool call rejected",
				zap.String("tool", tc.Name),
				zap.String("page", page))
		}
		views[i] = ToolCallView{
			Name:      tc.Name,
			Arguments: tc.Arguments,
			Outcome: ToolOutcomeView{
				State:     string(outcome.State),
				Reply:     outcome.Reply,
				Directive: outcome.Directive,
			},
		}
	}
	return ToolResponse{Type: chat.TypeTool, ToolCalls: views}
}
