// Package llm defines the model-agnostic provider abstraction.
// All types here are shared between the provider interface and adapters.
package llm

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Tool declares a function the model may call. Parameters are described in a
// provider-neutral shape; each adapter renders them into its own wire schema.
type Tool struct {
	Name        string
	Description string
	Parameters  ToolParams
}

// ToolParams is a flat object schema: named string properties plus the
// required set. Nothing in the assistant's tool surface needs nesting.
type ToolParams struct {
	Properties map[string]ToolProp
	Required   []string
}

// ToolProp describes one tool parameter.
type ToolProp struct {
	Type        string // "string"
	Description string
}

// ToolCall is a function invocation requested by the model. Arguments carry
// the provider's raw encoded payload (usually a JSON object as text); callers
// decode it and must tolerate malformed content.
type ToolCall struct {
	Name      string
	Arguments string
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	// Tools, when non-empty, are declared to the model with model-chosen
	// invocation ("auto").
	Tools []Tool
}

// ChatResponse is the output from a non-streaming chat completion.
// A response carries free text, tool calls, or both; callers treat any
// non-empty ToolCalls as a tool response.
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string // "stop" | "length" | "tool_calls" | provider-specific
}

// EmbedRequest is the input for a batch embedding call.
type EmbedRequest struct {
	// Model overrides the provider default when non-empty.
	Model string
	Texts []string
}

// EmbedResponse is the output from a batch embedding call.
// Embeddings[i] corresponds to Texts[i] in the request.
type EmbedResponse struct {
	Embeddings [][]float32
}

// ModelMeta describes the provider identity and its configured models.
// The embed model name is persisted into the vector index so serving can
// refuse an index built by a different embedding space.
type ModelMeta struct {
	Provider   string // "openai" | "gemini"
	ChatModel  string
	EmbedModel string
}
