// Package conversation holds the ordered message history of one session.
package conversation

import "github.com/alessiogrespi/llmtoolkit/internal/core"

// State is an append-only message history. It is not safe for concurrent
// use; a single turn owns it at a time.
type State struct {
	msgs []core.Message
}

// New starts a state seeded with history.
func New(history ...core.Message) *State {
	return &State{msgs: append([]core.Message(nil), history...)}
}

func (s *State) Append(msgs ...core.Message) {
	s.msgs = append(s.msgs, msgs...)
}

// Messages returns a copy of the history.
func (s *State) Messages() []core.Message {
	return append([]core.Message(nil), s.msgs...)
}

func (s *State) Len() int { return len(s.msgs) }

// Since returns the messages appended after the first n.
func (s *State) Since(n int) []core.Message {
	if n < 0 {
		n = 0
	}
	if n >= len(s.msgs) {
		return nil
	}
	return append([]core.Message(nil), s.msgs[n:]...)
}
