package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
)

// AnthropicLLMClient is a client for the Anthropic API.
type AnthropicLLMClient struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewAnthropicLLMClient(opts Options) (*AnthropicLLMClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	options := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		options = append(options, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(options...)

	return &AnthropicLLMClient{
		client:      &client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.maxTokens(),
	}, nil
}

// Chat sends a chat request to the Anthropic API.
func (a *AnthropicLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	anthropicMessages, systemPrompt, err := convertMessagesToAnthropicMessages(messages)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if a.temperature > 0 {
		params.Temperature = anthropic.Float(a.temperature)
	}
	for _, toolParam := range convertToolsToAnthropicTools(availableTools) {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Anthropic")
	}
	return processAnthropicResponse(resp)
}

// convertMessagesToAnthropicMessages splits out the system prompt, which
// Anthropic takes as a request field rather than a message.
func convertMessagesToAnthropicMessages(messages []session.Message) ([]anthropic.MessageParam, string, error) {
	var anthropicMessages []anthropic.MessageParam
	var system []string

	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			system = append(system, msg.Content)
		case session.RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case session.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				argsBytes, err := json.Marshal(tc.Args)
				if err != nil {
					return nil, "", errors.Wrapf(err, "could not marshal tool call arguments for %s", tc.Name)
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ToolCallID,
						Name:  tc.Name,
						Input: json.RawMessage(argsBytes),
					},
				})
			}
			if len(blocks) == 0 {
				continue
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		case session.RoleTool:
			if len(msg.ToolCalls) != 1 {
				return nil, "", errors.New("tool message must carry exactly one tool call, found %d", len(msg.ToolCalls))
			}
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCalls[0].ToolCallID, msg.Content, false),
			))
		}
	}

	return anthropicMessages, strings.Join(system, "\n\n"), nil
}

func convertToolsToAnthropicTools(ts []tools.Tool) []anthropic.ToolParam {
	var anthropicTools []anthropic.ToolParam
	for _, t := range ts {
		schema := t.Schema()
		anthropicTools = append(anthropicTools, anthropic.ToolParam{
			Name:        t.Name(),
			Description: anthropic.String(t.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema.Properties(),
				Required:   schema.Required(),
			},
		})
	}
	return anthropicTools
}

func processAnthropicResponse(resp *anthropic.Message) (*session.Message, error) {
	out := &session.Message{Role: session.RoleAssistant}
	for _, content := range resp.Content {
		switch c := content.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += c.Text
		case anthropic.ToolUseBlock:
			args := map[string]interface{}{}
			if len(c.Input) > 0 {
				if err := json.Unmarshal(c.Input, &args); err != nil {
					return nil, errors.Wrapf(err, "failed to unmarshal tool call input")
				}
			}
			out.ToolCalls = append(out.ToolCalls, session.ToolCall{
				ToolCallID: c.ID,
				Name:       c.Name,
				Args:       args,
			})
		}
	}
	return out, nil
}
