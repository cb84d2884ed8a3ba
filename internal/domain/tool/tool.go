// Package tool is the safety boundary between model-suggested actions and
// anything the browser is told to do. Every argument that arrives here is
// untrusted input.
package tool

import (
	"fmt"
	"strings"
)

// Tool names declared to the model.
const (
	NameNavigate = "navigate"
	NameScrollTo = "scroll_to"
)

// State tracks a proposed call through validation.
type State string

const (
	StateProposed  State = "proposed"
	StateValidated State = "validated"
	StateRejected  State = "rejected"
	StateExecuted  State = "executed"
)

// Call is one model-proposed tool invocation with decoded arguments.
// Arguments may legitimately be empty when the model sent undecodable ones.
type Call struct {
	Name string
	Args map[string]any
}

// StringArg reads a string argument from the call, tolerating a missing key
// or a non-string value.
func (c Call) StringArg(key string) string {
	v, ok := c.Args[key].(string)
	if !ok {
		return ""
	}
	return v
}

// Directive is the safe action handed to the browser. Repeating a directive
// is harmless: navigating to the same path again or re-scrolling changes
// nothing the first application did not already do.
type Directive struct {
	Action   string `json:"action"`
	Path     string `json:"path,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// Outcome is the result of pushing a Call through the state machine.
// Directive is set only when State is StateExecuted.
type Outcome struct {
	Name      string
	State     State
	Reply     string
	Directive *Directive
}

// Handler validates and executes one tool.
type Handler interface {
	Name() string
	Handle(page string, call Call) Outcome
}

// Registry dispatches proposed calls to handlers by name. Unknown names are
// rejected, never executed.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a registry over the given handlers.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Name()] = h
	}
	return r
}

// Execute runs the call against its handler. page is the site path the user
// is currently on, used by handlers that validate against page context.
func (r *Registry) Execute(page string, call Call) Outcome {
	h, ok := r.handlers[strings.TrimSpace(call.Name)]
	if !ok {
		return Outcome{
			Name:  call.Name,
			State: StateRejected,
			Reply: fmt.Sprintf("Unknown tool: %s", call.Name),
		}
	}
	return h.Handle(page, call)
}

// ExecuteAll processes calls in order, one outcome per call.
func (r *Registry) ExecuteAll(page string, calls []Call) []Outcome {
	outcomes := make([]Outcome, len(calls))
	for i, c := range calls {
		outcomes[i] = r.Execute(page, c)
	}
	return outcomes
}
