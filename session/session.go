// Package session holds the prompt state of a single chat request: the
// system instructions, the client-supplied history, the new human turn and
// the scratchpad of tool calls made while answering it. Nothing is persisted;
// a Session is discarded once its request completes.
package session

import (
	"github.com/google/uuid"
)

type Session struct {
	ID         string
	system     string
	history    Conversation
	input      string
	scratchpad []Message
}

// New creates the prompt state for one request.
func New(systemPrompt string, history Conversation, input string) *Session {
	return &Session{
		ID:      uuid.NewString(),
		system:  systemPrompt,
		history: history,
		input:   input,
	}
}

// Input returns the human turn being answered.
func (s *Session) Input() string {
	return s.input
}

// Messages returns the full prompt in order: system, history, the new
// human turn, then the scratchpad. The slice is freshly allocated.
func (s *Session) Messages() []Message {
	msgs := make([]Message, 0, len(s.history)+len(s.scratchpad)+2)
	if s.system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: s.system})
	}
	msgs = append(msgs, s.history.Messages()...)
	msgs = append(msgs, Message{Role: RoleUser, Content: s.input})
	msgs = append(msgs, s.scratchpad...)
	return msgs
}

// AddMessage appends a message to the scratchpad.
func (s *Session) AddMessage(msg Message) {
	s.scratchpad = append(s.scratchpad, msg)
}

// AddToolExchange records one tool call and its rendered result as two
// scratchpad messages. text is whatever the model said alongside the call.
func (s *Session) AddToolExchange(text string, call ToolCall, result string) {
	s.AddMessage(Message{Role: RoleAssistant, Content: text, ToolCalls: []ToolCall{call}})
	s.AddMessage(Message{Role: RoleTool, Content: result, ToolCalls: []ToolCall{call}})
}

// Scratchpad returns a copy of the intermediate messages.
func (s *Session) Scratchpad() []Message {
	out := make([]Message, len(s.scratchpad))
	copy(out, s.scratchpad)
	return out
}
