// Package session keeps the bounded per-conversation state: a FIFO window of
// turns and an optional reference to one assistant message.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

// MaxTurns is the history window capacity. Appending beyond it evicts the
// oldest turns first.
const MaxTurns = 12

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Turns are never mutated after
// creation; they only age out of the window.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the conversation state for one browser/device.
type Session struct {
	id         string
	turns      []Turn
	selectedID string
}

// New creates a session. An empty id gets a generated one; the id is opaque
// and lives for the whole device lifetime.
func New(id string) *Session {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	return &Session{id: id}
}

// Rebuild reconstructs a session from a client-supplied history, applying the
// window bound. Blank turns are dropped rather than rejected since the client
// owns that data.
func Rebuild(id string, turns []Turn, selectedID string) *Session {
	s := New(id)
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		if t.Role != RoleUser && t.Role != RoleAssistant {
			continue
		}
		s.push(Turn{ID: t.ID, Role: t.Role, Text: text, CreatedAt: t.CreatedAt})
	}
	s.Select(selectedID)
	return s
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// Append records a new turn at the newest end of the window. The text must
// be non-empty after trimming.
func (s *Session) Append(role Role, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, errs.Validationf("turn text is empty")
	}
	if role != RoleUser && role != RoleAssistant {
		return Turn{}, errs.Validationf("unknown turn role %q", role)
	}
	t := Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
	s.push(t)
	return t, nil
}

// push appends and evicts oldest-first down to capacity.
func (s *Session) push(t Turn) {
	s.turns = append(s.turns, t)
	if excess := len(s.turns) - MaxTurns; excess > 0 {
		s.turns = append(s.turns[:0:0], s.turns[excess:]...)
	}
}

// History returns the window oldest to newest. The slice is a copy.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Select points the selection at an assistant turn by id. Selecting the same
// id again changes nothing; an id that never resolves simply yields no
// selected message.
func (s *Session) Select(id string) {
	s.selectedID = strings.TrimSpace(id)
}

// ClearSelection drops the selection.
func (s *Session) ClearSelection() {
	s.selectedID = ""
}

// SelectedMessage resolves the selection. It returns the referenced turn
// only while that turn is an assistant message still inside the window; a
// stale or dangling reference reads as no selection.
func (s *Session) SelectedMessage() (Turn, bool) {
	if s.selectedID == "" {
		return Turn{}, false
	}
	for _, t := range s.turns {
		if t.ID == s.selectedID && t.Role == RoleAssistant {
			return t, true
		}
	}
	return Turn{}, false
}
