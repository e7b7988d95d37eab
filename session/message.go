package session

// Roles understood by every model adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model's request to run a tool.
type ToolCall struct {
	ToolCallID string                 `json:"tool_call_id"`
	Name       string                 `json:"name"`
	Args       map[string]interface{} `json:"args"`
}

type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant", "tool"
	Content string `json:"content"`
	// Assistant messages carry the calls the model asked for; tool messages
	// carry exactly one entry naming the call they answer.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// HasToolCalls reports whether the model asked for tools instead of answering.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
