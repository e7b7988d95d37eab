package session

import (
	"github.com/havenai/haven/errors"
)

// Speaker attributes a Turn.
type Speaker string

const (
	Human Speaker = "human"
	Agent Speaker = "agent"
)

// Turn is one utterance of the visible dialogue.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Conversation is the visible dialogue in order. It lives for one request.
type Conversation []Turn

// FromPairs expands client history, each entry a (human, agent) pair, into
// turns: human first, pair order preserved.
func FromPairs(pairs [][]string) (Conversation, error) {
	conv := make(Conversation, 0, len(pairs)*2)
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, errors.New("chat_history entry %d has %d elements, expected 2", i, len(pair))
		}
		conv = append(conv,
			Turn{Speaker: Human, Text: pair[0]},
			Turn{Speaker: Agent, Text: pair[1]},
		)
	}
	return conv, nil
}

// Messages converts the turns to model messages.
func (c Conversation) Messages() []Message {
	msgs := make([]Message, 0, len(c))
	for _, t := range c {
		role := RoleUser
		if t.Speaker == Agent {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: t.Text})
	}
	return msgs
}
