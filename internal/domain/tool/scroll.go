package tool

import (
	"fmt"
	"strings"
)

// ScrollHandler validates scroll targets against the per-page section
// registry from config. The browser performs the actual scroll; the server
// only vouches that the selector names a known section of the current page.
type ScrollHandler struct {
	sections map[string][]string
}

// NewScrollHandler builds the handler from a page path -> selectors mapping.
func NewScrollHandler(sections map[string][]string) *ScrollHandler {
	return &ScrollHandler{sections: sections}
}

func (h *ScrollHandler) Name() string { return NameScrollTo }

func (h *ScrollHandler) Handle(page string, call Call) Outcome {
	selector := strings.TrimSpace(call.StringArg("selector"))
	if selector == "" || !h.selectorOnPage(page, selector) {
		return Outcome{
			Name:  NameScrollTo,
			State: StateRejected,
			Reply: "I can't find that section on this page.",
		}
	}
	return Outcome{
		Name:      NameScrollTo,
		State:     StateExecuted,
		Reply:     fmt.Sprintf("Scrolling to %s", selector),
		Directive: &Directive{Action: NameScrollTo, Selector: selector},
	}
}

func (h *ScrollHandler) selectorOnPage(page, selector string) bool {
	for _, s := range h.sections[strings.TrimSpace(page)] {
		if s == selector {
			return true
		}
	}
	return false
}
