package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alessiogrespi/llmtoolkit/internal/core"
)

func TestStateAppendOnly(t *testing.T) {
	history := []core.Message{core.UserMessage("hi")}
	s := New(history...)
	history[0] = core.UserMessage("mutated")
	assert.Equal(t, "hi", s.Messages()[0].Text(), "New copies its input")

	mark := s.Len()
	s.Append(core.AssistantMessage("hello", nil), core.UserMessage("again"))
	assert.Equal(t, 3, s.Len())

	snapshot := s.Messages()
	snapshot[0] = core.UserMessage("changed")
	assert.Equal(t, "hi", s.Messages()[0].Text(), "Messages returns a copy")

	delta := s.Since(mark)
	if assert.Len(t, delta, 2) {
		assert.Equal(t, core.RoleAssistant, delta[0].Role)
		assert.Equal(t, "again", delta[1].Text())
	}
	assert.Nil(t, s.Since(3))
	assert.Len(t, s.Since(-1), 3)
}

func TestEmptyState(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Messages())
}
