package llm

import (
	"encoding/json"
	"testing"

	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessagesToAnthropicFormat(t *testing.T) {
	msgs, system := convertMessagesToAnthropicFormat(exchange())

	assert.Equal(t, "You are Haven.", system)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0]["role"])
	assert.Equal(t, "assistant", msgs[1]["role"])
	assert.Equal(t, "user", msgs[2]["role"])

	toolUse := msgs[1]["content"].([]map[string]interface{})
	require.Len(t, toolUse, 1)
	assert.Equal(t, "tool_use", toolUse[0]["type"])
	assert.Equal(t, "call_1", toolUse[0]["id"])

	result := msgs[2]["content"].([]map[string]interface{})
	assert.Equal(t, "tool_result", result[0]["type"])
	assert.Equal(t, "call_1", result[0]["tool_use_id"])
	assert.Equal(t, `{"commuteTimeMins":25}`, result[0]["content"])
}

func TestConvertMessagesSkipsEmptyAssistant(t *testing.T) {
	msgs, _ := convertMessagesToAnthropicFormat([]session.Message{{Role: session.RoleAssistant}})
	assert.Empty(t, msgs)
}

func TestCreateAnthropicRequest(t *testing.T) {
	msgs, system := convertMessagesToAnthropicFormat(exchange())
	body, err := createAnthropicRequest(msgs, system, []tools.Tool{stubTool{}}, 1024, 0.2)
	require.NoError(t, err)

	var req struct {
		Version     string  `json:"anthropic_version"`
		MaxTokens   int     `json:"max_tokens"`
		System      string  `json:"system"`
		Temperature float64 `json:"temperature"`
		Tools       []struct {
			Name        string          `json:"name"`
			InputSchema json.RawMessage `json:"input_schema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "bedrock-2023-05-31", req.Version)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.Equal(t, "You are Haven.", req.System)
	assert.Equal(t, 0.2, req.Temperature)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "maps_service", req.Tools[0].Name)
	assert.JSONEq(t, `{"type":"object","properties":{"address":{"type":"string","description":"Street address"}},"required":["address"]}`,
		string(req.Tools[0].InputSchema))
}

func TestProcessBedrockResponse(t *testing.T) {
	body := []byte(`{"content":[
		{"type":"text","text":"Checking. "},
		{"type":"tool_use","id":"tu_1","name":"maps_service","input":{"address":"12 Lakeview Dr"}},
		{"type":"tool_use","name":"yelp_service","input":{"address":"12 Lakeview Dr"}}
	]}`)

	msg, err := processBedrockResponse(body)
	require.NoError(t, err)
	assert.Equal(t, session.RoleAssistant, msg.Role)
	assert.Equal(t, "Checking. ", msg.Content)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "tu_1", msg.ToolCalls[0].ToolCallID)
	assert.Equal(t, "12 Lakeview Dr", msg.ToolCalls[0].Args["address"])
	assert.Equal(t, "call_1_yelp_service", msg.ToolCalls[1].ToolCallID)
}

func TestProcessBedrockResponseErrors(t *testing.T) {
	_, err := processBedrockResponse([]byte(`{"error":"throttled"}`))
	assert.Error(t, err)

	_, err = processBedrockResponse([]byte(`not json`))
	assert.Error(t, err)
}
