package llm

import (
	"context"
	"testing"

	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct{}

func (stubTool) Name() string        { return "maps_service" }
func (stubTool) Description() string { return "Commute details for an address." }
func (stubTool) Schema() tools.Schema {
	return tools.Schema{"address": {Type: "string", Description: "Street address", Required: true}}
}
func (stubTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return "{}", nil
}

// exchange is a conversation that has already completed one tool round trip.
func exchange() []session.Message {
	call := session.ToolCall{ToolCallID: "call_1", Name: "maps_service", Args: map[string]interface{}{"address": "12 Lakeview Dr"}}
	return []session.Message{
		{Role: session.RoleSystem, Content: "You are Haven."},
		{Role: session.RoleUser, Content: "How is the commute?"},
		{Role: session.RoleAssistant, ToolCalls: []session.ToolCall{call}},
		{Role: session.RoleTool, Content: `{"commuteTimeMins":25}`, ToolCalls: []session.ToolCall{call}},
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), "palm", Options{})
	assert.Error(t, err)
}

func TestNewRequiresKey(t *testing.T) {
	for _, backend := range []string{"openai", "groq", "anthropic"} {
		_, err := New(context.Background(), backend, Options{Model: "m"})
		assert.Error(t, err, backend)
	}
}

func TestNewGroqUsesGroqEndpoint(t *testing.T) {
	c, err := New(context.Background(), "groq", Options{Model: "llama", APIKey: "gsk_x"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLMClient{}, c)
}

func TestMockReplaysThenEchoes(t *testing.T) {
	m := &MockLLMClient{Responses: []session.Message{{Role: session.RoleAssistant, Content: "first"}}}
	msgs := []session.Message{{Role: session.RoleUser, Content: "hi"}}

	got, err := m.Chat(context.Background(), msgs, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Content)

	got, err = m.Chat(context.Background(), msgs, nil)
	require.NoError(t, err)
	assert.Equal(t, "I am a mock LLM. You said: 'hi'.", got.Content)
	assert.Len(t, m.Calls(), 2)
}
