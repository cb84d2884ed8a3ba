package tool

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// any scheme:// or protocol-relative //host form is an external redirect
	absoluteURLRe = regexp.MustCompile(`(?i)^([a-z][a-z0-9+.-]*:)?//`)
	// schemes that would execute in the page instead of navigating
	scriptSchemeRe = regexp.MustCompile(`(?i)^(javascript|data|vbscript):`)
)

// NavigateHandler validates navigation targets against a closed allowlist of
// site-relative paths.
type NavigateHandler struct {
	allowed  map[string]struct{}
	basePath string
}

// NewNavigateHandler builds the handler. basePath is the deployment prefix
// for sub-path hosting; it is applied to the final path only after a target
// has passed the allowlist, never as part of matching.
func NewNavigateHandler(allowedPages []string, basePath string) *NavigateHandler {
	allowed := make(map[string]struct{}, len(allowedPages))
	for _, p := range allowedPages {
		allowed[p] = struct{}{}
	}
	if basePath == "/" {
		basePath = ""
	}
	return &NavigateHandler{allowed: allowed, basePath: strings.TrimSuffix(basePath, "/")}
}

func (h *NavigateHandler) Name() string { return NameNavigate }

// Handle moves the call Proposed -> Validated -> Executed, or Rejected at
// the first failed rule.
func (h *NavigateHandler) Handle(_ string, call Call) Outcome {
	requested := call.StringArg("path")
	final, ok := h.resolve(requested)
	if !ok {
		return Outcome{
			Name:  NameNavigate,
			State: StateRejected,
			Reply: "I can't navigate to that page.",
		}
	}
	return Outcome{
		Name:      NameNavigate,
		State:     StateExecuted,
		Reply:     fmt.Sprintf("Okay — taking you to %s", requested),
		Directive: &Directive{Action: NameNavigate, Path: final},
	}
}

// resolve applies every validation rule and, on success, returns the final
// browser path with the fragment restored and the deploy prefix applied.
func (h *NavigateHandler) resolve(raw string) (string, bool) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "", false
	}
	if absoluteURLRe.MatchString(path) {
		return "", false
	}
	if scriptSchemeRe.MatchString(path) {
		return "", false
	}

	base, fragment := splitFragment(path)
	if _, ok := h.allowed[base]; !ok {
		return "", false
	}

	final := base
	if h.basePath != "" && !strings.HasPrefix(base, h.basePath+"/") {
		final = h.basePath + base
	}
	return final + fragment, true
}

// splitFragment separates "#fragment" from the path; the fragment keeps its
// leading "#" so it can be re-attached verbatim.
func splitFragment(path string) (base, fragment string) {
	if i := strings.Index(path, "#"); i >= 0 {
		return path[:i], path[i:]
	}
	return path, ""
}
