// Provider interface plus the name->factory registry adapters register into.
// The application is never coupled to a specific model vendor.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

// Provider is the model-agnostic interface for model operations.
type Provider interface {
	// ChatCompletion performs a non-streaming chat completion. Declared
	// tools may come back as ToolCalls in the response.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed computes dense vector representations for a batch of texts.
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)

	// ModelInfo returns static metadata about the provider/models.
	ModelInfo() ModelMeta
}

// Options carries everything a factory needs to build a Provider.
type Options struct {
	APIKey     string
	BaseURL    string // openai-compatible endpoints only
	ChatModel  string
	EmbedModel string
	Timeout    time.Duration // applied to every outbound call
}

// Factory builds a Provider from Options.
type Factory func(opts Options) (Provider, error)

var registry = map[string]Factory{}

// Register adds a provider factory under name. Called from adapter init().
func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

// New builds the named provider.
func New(name string, opts Options) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	factory := registry[key]
	if factory == nil {
		return nil, errs.Configurationf("unsupported llm provider: %s", name)
	}
	return factory(opts)
}
