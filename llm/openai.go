package llm

import (
	"context"
	"encoding/json"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAILLMClient is a client for the OpenAI Chat Completion API. Groq and
// other compatible endpoints are reached through Options.BaseURL.
type OpenAILLMClient struct {
	client      *openai.Client
	model       string
	temperature float64
}

func NewOpenAILLMClient(opts Options) (*OpenAILLMClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("an API key is required for the OpenAI-compatible backend")
	}

	options := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if opts.BaseURL != "" {
		options = append(options, option.WithBaseURL(opts.BaseURL))
	}

	// The &c is required, do not replace and just use c
	c := openai.NewClient(options...)
	return &OpenAILLMClient{client: &c, model: opts.Model, temperature: opts.Temperature}, nil
}

// Chat sends a chat request to OpenAI and converts the response into our internal session.Message format.
func (o *OpenAILLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	chatMessages, err := convertMessagesToOpenaiContent(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: chatMessages,
		Tools:    convertToolsToOpenAITools(availableTools),
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to OpenAI")
	}

	return processOpenaiResponse(resp)
}

func processOpenaiResponse(resp *openai.ChatCompletion) (*session.Message, error) {
	if len(resp.Choices) == 0 {
		return &session.Message{Role: session.RoleAssistant}, nil
	}

	choice := resp.Choices[0].Message
	out := &session.Message{Role: session.RoleAssistant, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal function call arguments from OpenAI")
			}
		}
		out.ToolCalls = append(out.ToolCalls, session.ToolCall{
			ToolCallID: tc.ID,
			Name:       tc.Function.Name,
			Args:       args,
		})
	}
	return out, nil
}

func convertMessagesToOpenaiContent(messages []session.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			chatMessages = append(chatMessages, openai.SystemMessage(msg.Content))
		case session.RoleAssistant:
			assistantMessage := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				argsBytes, err := json.Marshal(tc.Args)
				if err != nil {
					return nil, errors.Wrapf(err, "could not marshal tool call arguments for %s", tc.Name)
				}
				assistantMessage.ToolCalls = append(assistantMessage.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ToolCallID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsBytes),
					},
				})
			}
			chatMessages = append(chatMessages, assistantMessage.ToParam())
		case session.RoleTool:
			// The tool call identifies which request this result answers.
			if len(msg.ToolCalls) != 1 {
				return nil, errors.New("tool message must carry exactly one tool call, found %d", len(msg.ToolCalls))
			}
			chatMessages = append(chatMessages, openai.ToolMessage(msg.Content, msg.ToolCalls[0].ToolCallID))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}
	return chatMessages, nil
}

func convertToolsToOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var openAITools []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		openAITools = append(openAITools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  openai.FunctionParameters(t.Schema().JSONSchema()),
		}))
	}
	return openAITools
}
