package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
)

// BedrockLLMClient is a client for the Anthropic models on AWS Bedrock.
type BedrockLLMClient struct {
	client      *bedrockruntime.Client
	modelID     string
	temperature float64
	maxTokens   int64
}

// NewBedrockLLMClient uses the default AWS credential chain. BaseURL, or
// BEDROCK_ENDPOINT_URL, points the client at a custom endpoint.
func NewBedrockLLMClient(ctx context.Context, opts Options) (*BedrockLLMClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	endpoint := opts.BaseURL
	if endpoint == "" {
		endpoint = os.Getenv("BEDROCK_ENDPOINT_URL")
	}
	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &BedrockLLMClient{
		client:      client,
		modelID:     opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.maxTokens(),
	}, nil
}

// Chat sends a chat request to the Anthropic model via AWS Bedrock.
func (b *BedrockLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	anthropicMessages, systemPrompt := convertMessagesToAnthropicFormat(messages)

	requestBody, err := createAnthropicRequest(anthropicMessages, systemPrompt, availableTools, b.maxTokens, b.temperature)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Anthropic request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}

	return processBedrockResponse(resp.Body)
}

func textContent(text string) []map[string]interface{} {
	return []map[string]interface{}{{"type": "text", "text": text}}
}

// convertMessagesToAnthropicFormat builds the raw Messages API payload that
// Bedrock expects for Anthropic models.
func convertMessagesToAnthropicFormat(messages []session.Message) ([]map[string]interface{}, string) {
	var anthropicMessages []map[string]interface{}
	var system []string

	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			system = append(system, msg.Content)
		case session.RoleUser:
			anthropicMessages = append(anthropicMessages, map[string]interface{}{
				"role":    "user",
				"content": textContent(msg.Content),
			})
		case session.RoleAssistant:
			var content []map[string]interface{}
			if msg.Content != "" {
				content = append(content, textContent(msg.Content)...)
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ToolCallID,
					"name":  tc.Name,
					"input": tc.Args,
				})
			}
			if len(content) == 0 {
				continue
			}
			anthropicMessages = append(anthropicMessages, map[string]interface{}{
				"role":    "assistant",
				"content": content,
			})
		case session.RoleTool:
			if len(msg.ToolCalls) == 0 {
				continue
			}
			anthropicMessages = append(anthropicMessages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type":        "tool_result",
						"tool_use_id": msg.ToolCalls[0].ToolCallID,
						"content":     msg.Content,
					},
				},
			})
		}
	}

	return anthropicMessages, strings.Join(system, "\n\n")
}

func createAnthropicRequest(messages []map[string]interface{}, systemPrompt string, availableTools []tools.Tool, maxTokens int64, temperature float64) ([]byte, error) {
	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          messages,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	if temperature > 0 {
		request["temperature"] = temperature
	}

	if len(availableTools) > 0 {
		var ts []map[string]interface{}
		for _, tool := range availableTools {
			ts = append(ts, map[string]interface{}{
				"name":         tool.Name(),
				"description":  tool.Description(),
				"input_schema": tool.Schema().JSONSchema(),
			})
		}
		request["tools"] = ts
	}

	return json.Marshal(request)
}

type bedrockResponse struct {
	Error   interface{} `json:"error"`
	Content []struct {
		Type  string                 `json:"type"`
		Text  string                 `json:"text"`
		ID    string                 `json:"id"`
		Name  string                 `json:"name"`
		Input map[string]interface{} `json:"input"`
	} `json:"content"`
}

func processBedrockResponse(body []byte) (*session.Message, error) {
	var response bedrockResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal Bedrock response")
	}
	if response.Error != nil {
		return nil, errors.New("Bedrock API error: %v", response.Error)
	}

	out := &session.Message{Role: session.RoleAssistant}
	for _, item := range response.Content {
		switch item.Type {
		case "text":
			out.Content += item.Text
		case "tool_use":
			if item.Name == "" {
				continue
			}
			id := item.ID
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", len(out.ToolCalls), item.Name)
			}
			args := item.Input
			if args == nil {
				args = map[string]interface{}{}
			}
			out.ToolCalls = append(out.ToolCalls, session.ToolCall{
				ToolCallID: id,
				Name:       item.Name,
				Args:       args,
			})
		}
	}
	return out, nil
}
