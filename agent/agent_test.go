package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/llm"
	"github.com/havenai/haven/property"
	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopingClient asks for the same tool forever.
type loopingClient struct {
	mu    sync.Mutex
	calls int
}

func (c *loopingClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &session.Message{
		Role: session.RoleAssistant,
		ToolCalls: []session.ToolCall{{
			ToolCallID: "call_loop",
			Name:       "maps_service",
			Args:       map[string]interface{}{"address": "12 Lakeview Dr, Aspen, CO 81611"},
		}},
	}, nil
}

func toolCall(id, name string, args map[string]interface{}) session.Message {
	return session.Message{
		Role:      session.RoleAssistant,
		ToolCalls: []session.ToolCall{{ToolCallID: id, Name: name, Args: args}},
	}
}

func final(text string) session.Message {
	return session.Message{Role: session.RoleAssistant, Content: text}
}

func newAgent(t *testing.T, client llm.LLMClient, maxIterations int) *Agent {
	t.Helper()
	registry, err := tools.NewDefaultRegistry(zerolog.Nop(), property.DemoCatalog(), nil)
	require.NoError(t, err)
	a, err := New(Config{
		SystemPrompt:  "You are Haven.",
		Registry:      registry,
		Client:        client,
		MaxIterations: maxIterations,
		Provider:      "mock",
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	return a
}

var lakeQuery = map[string]interface{}{"query": "a place with lake and mountain views"}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Client: &llm.MockLLMClient{}})
	assert.Error(t, err)

	_, err = New(Config{Registry: tools.NewToolRegistry(zerolog.Nop())})
	assert.Error(t, err)

	a, err := New(Config{Registry: tools.NewToolRegistry(zerolog.Nop()), Client: &llm.MockLLMClient{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxIterations, a.cfg.MaxIterations)
	assert.Equal(t, DefaultSystemPrompt, a.cfg.SystemPrompt)
}

func TestRunDirectAnswer(t *testing.T) {
	client := &llm.MockLLMClient{Responses: []session.Message{final("Which state is Portland in?")}}
	a := newAgent(t, client, 0)

	history, err := session.FromPairs([][]string{{"Hi", "Hello! How can I help?"}})
	require.NoError(t, err)

	reply, err := a.Run(context.Background(), "Find me a place in Portland", history)
	require.NoError(t, err)
	assert.Equal(t, "Which state is Portland in?", reply.Text)
	assert.Nil(t, reply.Card)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []session.Message{
		{Role: session.RoleSystem, Content: "You are Haven."},
		{Role: session.RoleUser, Content: "Hi"},
		{Role: session.RoleAssistant, Content: "Hello! How can I help?"},
		{Role: session.RoleUser, Content: "Find me a place in Portland"},
	}, calls[0])
}

func TestRunToolRoundTripProducesCard(t *testing.T) {
	card := `{"type":"property_card","properties":[{"address":"12 Lakeview Dr, Aspen, CO 81611","price":1250000,` +
		`"beds":2,"baths":2,"sqft":1500,"description":"Condo","imageUrl":"https://example.com/a.jpg"}]}`
	client := &llm.MockLLMClient{Responses: []session.Message{
		toolCall("call_1", "property_search", lakeQuery),
		final("Here is what I found:\n```json\n" + card + "\n```"),
	}}
	a := newAgent(t, client, 0)

	reply, err := a.Run(context.Background(), "I want lake and mountain views", nil)
	require.NoError(t, err)
	require.NotNil(t, reply.Card)
	assert.Equal(t, ReplyPropertyCard, reply.Card.Type)
	assert.Equal(t, "Condo", reply.Card.Properties[0].Description)
	assert.JSONEq(t, card, reply.Text)

	calls := client.Calls()
	require.Len(t, calls, 2)
	second := calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, session.RoleAssistant, second[2].Role)
	assert.Equal(t, "property_search", second[2].ToolCalls[0].Name)
	assert.Equal(t, session.RoleTool, second[3].Role)

	var records []property.Property
	require.NoError(t, json.Unmarshal([]byte(second[3].Content), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "12 Lakeview Dr, Aspen, CO 81611", records[0].Address)
}

func TestRunRepairsInvalidCardFromToolRecords(t *testing.T) {
	client := &llm.MockLLMClient{Responses: []session.Message{
		toolCall("call_1", "property_search", lakeQuery),
		final(`{"type": "property_scorecard", "address": "12 Lakeview Dr"}`),
	}}
	a := newAgent(t, client, 0)

	reply, err := a.Run(context.Background(), "lake and mountain", nil)
	require.NoError(t, err)
	require.NotNil(t, reply.Card)
	assert.Equal(t, ReplyPropertyCard, reply.Card.Type)
	require.Len(t, reply.Card.Properties, 1)
	assert.Equal(t, 1250000, reply.Card.Properties[0].Price)

	var decoded PropertyReply
	require.NoError(t, json.Unmarshal([]byte(reply.Text), &decoded))
	assert.Equal(t, *reply.Card, decoded)
}

func TestRunDoesNotRepairFromEarlierToolRounds(t *testing.T) {
	client := &llm.MockLLMClient{Responses: []session.Message{
		toolCall("call_1", "find_properties", map[string]interface{}{"location": "Aspen, CO"}),
		toolCall("call_2", "maps_service", map[string]interface{}{"address": "1 Congress Ave, Austin, TX"}),
		final(`{"type":"property_card"}`),
	}}
	a := newAgent(t, client, 0)

	reply, err := a.Run(context.Background(), "Aspen first, then Austin", nil)
	require.NoError(t, err)
	assert.Nil(t, reply.Card)
	assert.Equal(t, `{"type":"property_card"}`, reply.Text)
}

func TestRunKeepsTextSentWithToolCalls(t *testing.T) {
	first := toolCall("call_1", "find_properties", map[string]interface{}{"location": "Aspen, CO"})
	first.Content = "Let me check Aspen listings."
	client := &llm.MockLLMClient{Responses: []session.Message{first, final("Found one.")}}
	a := newAgent(t, client, 0)

	_, err := a.Run(context.Background(), "Aspen?", nil)
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Let me check Aspen listings.", calls[1][2].Content)
	assert.True(t, calls[1][2].HasToolCalls())
}

func TestRunPassesThroughInvalidJSONWithoutRecords(t *testing.T) {
	text := `I could not find anything {"type": "nothing"}`
	client := &llm.MockLLMClient{Responses: []session.Message{final(text)}}
	a := newAgent(t, client, 0)

	reply, err := a.Run(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, text, reply.Text)
	assert.Nil(t, reply.Card)
}

func TestRunStopsAtIterationCap(t *testing.T) {
	client := &loopingClient{}
	a := newAgent(t, client, 3)

	_, err := a.Run(context.Background(), "commute?", nil)
	var loop *LoopExceededError
	require.True(t, errors.As(err, &loop))
	assert.Equal(t, 3, loop.Iterations)
	assert.Equal(t, 3, client.calls)
}

func TestRunFailsOnToolDispatchErrors(t *testing.T) {
	t.Run("unknown tool", func(t *testing.T) {
		client := &llm.MockLLMClient{Responses: []session.Message{
			toolCall("call_1", "mortgage_calculator", map[string]interface{}{}),
		}}
		_, err := newAgent(t, client, 0).Run(context.Background(), "rates?", nil)
		var unknown *tools.UnknownToolError
		require.True(t, errors.As(err, &unknown))
		assert.Len(t, client.Calls(), 1)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		client := &llm.MockLLMClient{Responses: []session.Message{
			toolCall("call_1", "maps_service", map[string]interface{}{"address": 12}),
		}}
		_, err := newAgent(t, client, 0).Run(context.Background(), "commute?", nil)
		var verr *tools.SchemaValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{"address"}, verr.Fields)
	})
}

func TestRunModelUnavailable(t *testing.T) {
	cause := errors.Plain("connection refused")
	a := newAgent(t, &llm.MockLLMClient{Err: cause}, 0)

	_, err := a.Run(context.Background(), "hi", nil)
	var model *ModelUnavailableError
	require.True(t, errors.As(err, &model))
	assert.True(t, errors.Is(err, cause))
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &llm.MockLLMClient{}
	_, err := newAgent(t, client, 0).Run(ctx, "hi", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.Calls())
}

func TestProcessUserInputCallbacks(t *testing.T) {
	address := map[string]interface{}{"address": "12 Lakeview Dr, Aspen, CO 81611"}
	client := &llm.MockLLMClient{Responses: []session.Message{
		toolCall("call_1", "maps_service", address),
		toolCall("call_2", "yelp_service", address),
		final("Great neighbourhood."),
	}}
	a := newAgent(t, client, 0)

	var called, results []string
	var last string
	reply, err := a.ProcessUserInput(context.Background(), "How is the area?", nil, ProcessCallbacks{
		OnToolCall:         func(tc session.ToolCall) { called = append(called, tc.Name) },
		OnToolResult:       func(tc session.ToolCall, result string) { results = append(results, result) },
		OnAssistantMessage: func(message string) { last = message },
		ShouldExecuteTool:  func(tc session.ToolCall) bool { return tc.Name != "yelp_service" },
	})
	require.NoError(t, err)
	assert.Equal(t, "Great neighbourhood.", reply.Text)
	assert.Equal(t, "Great neighbourhood.", last)
	assert.Equal(t, []string{"maps_service", "yelp_service"}, called)
	require.Len(t, results, 2)
	assert.JSONEq(t, `{"commute_time_mins":25,"nearby_parks":3}`, results[0])
	assert.Equal(t, declinedResult, results[1])
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "loop_exceeded", outcome(&LoopExceededError{Iterations: 1}))
	assert.Equal(t, "model_unavailable", outcome(&ModelUnavailableError{Err: errors.Plain("x")}))
	assert.Equal(t, "unknown_tool", outcome(&tools.UnknownToolError{Name: "x"}))
	assert.Equal(t, "canceled", outcome(context.Canceled))
}
