package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
	"google.golang.org/api/option"
)

// GeminiLLMClient is a client for the Google Gemini API.
type GeminiLLMClient struct {
	client      *genai.Client
	modelName   string
	temperature float64
}

func NewGeminiLLMClient(ctx context.Context, opts Options) (*GeminiLLMClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	return &GeminiLLMClient{client: client, modelName: opts.Model, temperature: opts.Temperature}, nil
}

// Chat sends a chat request to the Gemini API. A fresh GenerativeModel is
// built per call since the model carries tools and system instructions.
func (g *GeminiLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	system, history := convertMessagesToGeminiContent(messages)
	if len(history) == 0 {
		return nil, errors.New("no messages to send to Gemini")
	}

	model := g.client.GenerativeModel(g.modelName)
	model.Tools = convertToolsToGeminiTools(availableTools)
	if system != nil {
		model.SystemInstruction = system
	}
	if g.temperature > 0 {
		model.SetTemperature(float32(g.temperature))
	}

	// The last message is the new prompt.
	lastMessage := history[len(history)-1]
	chatSession := model.StartChat()
	chatSession.History = history[:len(history)-1]
	resp, err := chatSession.SendMessage(ctx, lastMessage.Parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Gemini")
	}

	return processGeminiResponse(resp)
}

// convertMessagesToGeminiContent returns the system instruction separately.
// Tool results travel as FunctionResponse parts in a user turn.
func convertMessagesToGeminiContent(messages []session.Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			system = &genai.Content{Parts: []genai.Part{genai.Text(msg.Content)}}
		case session.RoleAssistant:
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Args})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case session.RoleTool:
			name := ""
			if len(msg.ToolCalls) > 0 {
				name = msg.ToolCalls[0].Name
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     name,
					Response: map[string]any{"result": msg.Content},
				}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	return system, contents
}

func convertToolsToGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var funcDecls []*genai.FunctionDeclaration
	for _, tool := range ts {
		schema := tool.Schema()
		params := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(schema)),
			Required:   schema.Required(),
		}
		for name, f := range schema {
			params.Properties[name] = geminiSchema(f)
		}
		funcDecls = append(funcDecls, &genai.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  params,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}
}

func geminiSchema(f tools.Field) *genai.Schema {
	s := &genai.Schema{Description: f.Description}
	switch f.Type {
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
		s.Items = &genai.Schema{Type: genai.TypeString}
	default:
		s.Type = genai.TypeObject
	}
	return s
}

// processGeminiResponse maps function calls to tool calls. Gemini does not
// assign call IDs, so one is derived from the position and name.
func processGeminiResponse(resp *genai.GenerateContentResponse) (*session.Message, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("received an empty response from Gemini")
	}

	out := &session.Message{Role: session.RoleAssistant}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			out.Content += string(v)
		case genai.FunctionCall:
			args := v.Args
			if args == nil {
				args = map[string]interface{}{}
			}
			out.ToolCalls = append(out.ToolCalls, session.ToolCall{
				ToolCallID: fmt.Sprintf("call_%d_%s", len(out.ToolCalls), v.Name),
				Name:       v.Name,
				Args:       args,
			})
		default:
			return nil, errors.New("unsupported part type in Gemini response: %T", v)
		}
	}
	return out, nil
}
