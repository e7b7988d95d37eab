// Package llm adapts chat-completion backends to a single tool-calling interface.
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
)

// LLMClient is the interface for interacting with a Large Language Model.
// Implementations must be safe for concurrent use: one client serves every
// request the gateway handles.
type LLMClient interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// Options configures a backend. Zero values select the backend's defaults.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
}

const (
	defaultMaxTokens = 4096
	GroqBaseURL      = "https://api.groq.com/openai/v1"
)

func (o Options) maxTokens() int64 {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return defaultMaxTokens
}

// New builds the client for the named backend: openai, groq, anthropic,
// gemini, bedrock, ollama or mock.
func New(ctx context.Context, backend string, opts Options) (LLMClient, error) {
	switch backend {
	case "openai":
		return NewOpenAILLMClient(opts)
	case "groq":
		if opts.BaseURL == "" {
			opts.BaseURL = GroqBaseURL
		}
		return NewOpenAILLMClient(opts)
	case "anthropic":
		return NewAnthropicLLMClient(opts)
	case "gemini":
		return NewGeminiLLMClient(ctx, opts)
	case "bedrock":
		return NewBedrockLLMClient(ctx, opts)
	case "ollama":
		return NewOllamaLLMClient(opts)
	case "mock":
		return &MockLLMClient{}, nil
	}
	return nil, errors.New("unknown llm backend '%s'", backend)
}

// MockLLMClient replays Responses in order. Once they run out it echoes the
// last user message, which keeps the binary usable without credentials.
type MockLLMClient struct {
	Responses []session.Message
	Err       error

	mu    sync.Mutex
	calls [][]session.Message
}

func (m *MockLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, append([]session.Message(nil), messages...))
	if m.Err != nil {
		return nil, m.Err
	}
	if idx < len(m.Responses) {
		resp := m.Responses[idx]
		return &resp, nil
	}

	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == session.RoleUser {
			last = messages[i].Content
			break
		}
	}
	return &session.Message{
		Role:    session.RoleAssistant,
		Content: fmt.Sprintf("I am a mock LLM. You said: '%s'.", last),
	}, nil
}

// Calls returns the message lists received so far.
func (m *MockLLMClient) Calls() [][]session.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]session.Message(nil), m.calls...)
}
