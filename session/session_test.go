package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPairsExpandsInOrder(t *testing.T) {
	for n := 0; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d pairs", n), func(t *testing.T) {
			pairs := make([][]string, n)
			for i := range pairs {
				pairs[i] = []string{fmt.Sprintf("h%d", i), fmt.Sprintf("a%d", i)}
			}

			conv, err := FromPairs(pairs)
			require.NoError(t, err)
			require.Len(t, conv, 2*n)
			for i, turn := range conv {
				if i%2 == 0 {
					assert.Equal(t, Human, turn.Speaker)
					assert.Equal(t, fmt.Sprintf("h%d", i/2), turn.Text)
				} else {
					assert.Equal(t, Agent, turn.Speaker)
					assert.Equal(t, fmt.Sprintf("a%d", i/2), turn.Text)
				}
			}
		})
	}
}

func TestFromPairsRejectsMalformed(t *testing.T) {
	_, err := FromPairs([][]string{{"only human"}})
	assert.Error(t, err)

	_, err = FromPairs([][]string{{"a", "b", "c"}})
	assert.Error(t, err)
}

func TestSessionMessagesLayout(t *testing.T) {
	history, err := FromPairs([][]string{{"hi", "hello! where are you looking?"}})
	require.NoError(t, err)

	s := New("you are Haven", history, "Aspen please")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Aspen please", s.Input())

	call := ToolCall{ToolCallID: "c1", Name: "find_properties", Args: map[string]interface{}{"location": "Aspen, CO"}}
	s.AddToolExchange("Let me look.", call, `[{"address":"12 Lakeview Dr"}]`)

	msgs := s.Messages()
	require.Len(t, msgs, 6)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, RoleAssistant, msgs[2].Role)
	assert.Equal(t, Message{Role: RoleUser, Content: "Aspen please"}, msgs[3])

	assert.Equal(t, RoleAssistant, msgs[4].Role)
	assert.True(t, msgs[4].HasToolCalls())
	assert.Equal(t, "Let me look.", msgs[4].Content)
	assert.Equal(t, RoleTool, msgs[5].Role)
	assert.Equal(t, "c1", msgs[5].ToolCalls[0].ToolCallID)

	assert.Len(t, s.Scratchpad(), 2)
}

func TestSessionWithoutSystemPrompt(t *testing.T) {
	msgs := New("", nil, "hello").Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
}
