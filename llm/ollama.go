package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
	ollama "github.com/ollama/ollama/api"
)

const defaultOllamaHost = "http://localhost:11434"

// OllamaLLMClient talks to a local or remote Ollama server.
type OllamaLLMClient struct {
	client      *ollama.Client
	model       string
	temperature float64
}

// NewOllamaLLMClient connects to Options.BaseURL, falling back to OLLAMA_HOST
// and then the local default.
func NewOllamaLLMClient(opts Options) (*OllamaLLMClient, error) {
	host := opts.BaseURL
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = defaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid Ollama host %q", host)
	}

	c := ollama.NewClient(u, &http.Client{Timeout: 120 * time.Second})
	return &OllamaLLMClient{client: c, model: opts.Model, temperature: opts.Temperature}, nil
}

// ollamaMessage mirrors the chat message wire shape.
type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	} `json:"function"`
}

// Chat sends a non-streaming chat request. The request is assembled as JSON
// and decoded into the api types so tool schemas pass through unchanged.
func (o *OllamaLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	req, err := buildOllamaRequest(o.model, o.temperature, messages, availableTools)
	if err != nil {
		return nil, err
	}

	var final ollama.ChatResponse
	if err := o.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		final = resp
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Ollama")
	}

	return processOllamaResponse(final.Message)
}

func buildOllamaRequest(model string, temperature float64, messages []session.Message, availableTools []tools.Tool) (*ollama.ChatRequest, error) {
	wire := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		m := ollamaMessage{Role: msg.Role, Content: msg.Content}
		switch msg.Role {
		case session.RoleAssistant:
			for _, tc := range msg.ToolCalls {
				var call ollamaToolCall
				call.Function.Name = tc.Name
				call.Function.Arguments = tc.Args
				m.ToolCalls = append(m.ToolCalls, call)
			}
		case session.RoleTool:
			if len(msg.ToolCalls) > 0 {
				m.ToolName = msg.ToolCalls[0].Name
			}
		}
		wire = append(wire, m)
	}

	var ts []map[string]interface{}
	for _, t := range availableTools {
		ts = append(ts, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  t.Schema().JSONSchema(),
			},
		})
	}

	body := map[string]interface{}{
		"model":    model,
		"messages": wire,
		"stream":   false,
	}
	if len(ts) > 0 {
		body["tools"] = ts
	}
	if temperature > 0 {
		body["options"] = map[string]interface{}{"temperature": temperature}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode Ollama request")
	}
	var req ollama.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.Wrapf(err, "failed to build Ollama request")
	}
	return &req, nil
}

// processOllamaResponse reads tool calls back through JSON. Ollama does not
// assign call IDs, so one is derived from the position and name.
func processOllamaResponse(msg ollama.Message) (*session.Message, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read Ollama response")
	}
	var wire ollamaMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, errors.Wrapf(err, "failed to read Ollama response")
	}

	out := &session.Message{Role: session.RoleAssistant, Content: wire.Content}
	for i, tc := range wire.ToolCalls {
		args := tc.Function.Arguments
		if args == nil {
			args = map[string]interface{}{}
		}
		out.ToolCalls = append(out.ToolCalls, session.ToolCall{
			ToolCallID: fmt.Sprintf("call_%d_%s", i, tc.Function.Name),
			Name:       tc.Function.Name,
			Args:       args,
		})
	}
	return out, nil
}
