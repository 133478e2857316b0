// Package transcript holds the ordered conversation history exchanged with
// the completion service. It performs no alternation validation; the agent
// loop is responsible for keeping the user/assistant cadence.
package transcript

import (
	"fmt"
	"strings"

	"github.com/arcline/envclone/kernel/model"
)

// Turn is one role-tagged text entry.
type Turn struct {
	Role model.Role `json:"role"`
	Text string     `json:"text"`
}

// Transcript is an append-only ordered sequence of turns. Zero value is
// ready to use. Not safe for concurrent use; runs are single-threaded.
type Transcript struct {
	turns []Turn
}

func New() *Transcript {
	return &Transcript{}
}

// Append adds one turn at the end.
func (t *Transcript) Append(role model.Role, text string) {
	t.turns = append(t.turns, Turn{Role: role, Text: text})
}

// All returns the turns in order. The returned slice is a copy.
func (t *Transcript) All() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Reset discards all turns.
func (t *Transcript) Reset() {
	t.turns = nil
}

// Messages renders the transcript as model context messages.
func (t *Transcript) Messages() []model.Message {
	out := make([]model.Message, 0, len(t.turns))
	for _, turn := range t.turns {
		out = append(out, model.Message{Role: turn.Role, Text: turn.Text})
	}
	return out
}

// Render produces a role-prefixed plain text rendition, used to hand a whole
// conversation to a downstream agent as its input prompt.
func (t *Transcript) Render() string {
	var b strings.Builder
	for _, turn := range t.turns {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", strings.ToUpper(string(turn.Role)), turn.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
