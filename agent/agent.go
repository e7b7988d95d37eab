package agent

import (
	"context"
	"time"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/llm"
	"github.com/havenai/haven/observability"
	"github.com/havenai/haven/property"
	"github.com/havenai/haven/session"
	"github.com/havenai/haven/tools"
	"github.com/rs/zerolog"
)

const DefaultMaxIterations = 15

type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// Config is fixed at startup and shared by every run.
type Config struct {
	SystemPrompt  string
	Registry      *tools.ToolRegistry
	Client        llm.LLMClient
	MaxIterations int
	// Provider labels metrics, e.g. "openai".
	Provider string
	Logger   zerolog.Logger
}

type Agent struct {
	cfg       Config
	tools     []tools.Tool
	validator *replyValidator
}

func New(cfg Config) (*Agent, error) {
	if cfg.Registry == nil {
		return nil, errors.New("agent requires a tool registry")
	}
	if cfg.Client == nil {
		return nil, errors.New("agent requires an LLM client")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Provider == "" {
		cfg.Provider = "unknown"
	}

	validator, err := newReplyValidator()
	if err != nil {
		return nil, err
	}
	return &Agent{cfg: cfg, tools: cfg.Registry.Tools(), validator: validator}, nil
}

// Tools returns the declarations offered to the model.
func (a *Agent) Tools() []tools.Tool {
	return a.tools
}

// ProcessCallbacks lets a front end observe a run. Every field is optional.
type ProcessCallbacks struct {
	OnAssistantMessage func(message string)
	OnToolCall         func(toolCall session.ToolCall)
	OnToolResult       func(toolCall session.ToolCall, result string)
	// ShouldExecuteTool gates each call. A declined call is reported back to
	// the model instead of being dispatched.
	ShouldExecuteTool func(toolCall session.ToolCall) bool
}

const declinedResult = "The user declined to run this tool."

// Run answers message in the context of history.
func (a *Agent) Run(ctx context.Context, message string, history session.Conversation) (Reply, error) {
	return a.ProcessUserInput(ctx, message, history, ProcessCallbacks{})
}

// ProcessUserInput drives the model/tool loop for one human turn. Tool calls
// run one at a time in the order the model asked for them. The loop ends on
// the first reply without tool calls, or fails once MaxIterations model
// calls have all requested tools.
func (a *Agent) ProcessUserInput(ctx context.Context, message string, history session.Conversation, callbacks ProcessCallbacks) (reply Reply, err error) {
	sess := session.New(a.cfg.SystemPrompt, history, message)
	logger := a.cfg.Logger.With().Str("session", sess.ID).Logger()
	start := time.Now()
	iterations := 0
	defer func() {
		observability.RecordAgentRun(a.cfg.Provider, time.Since(start), iterations, outcome(err))
	}()

	var records []property.Property
	for iterations < a.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return Reply{}, err
		}
		iterations++

		resp, err := a.cfg.Client.Chat(ctx, sess.Messages(), a.tools)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Reply{}, ctxErr
			}
			return Reply{}, &ModelUnavailableError{Err: err}
		}

		if !resp.HasToolCalls() {
			reply, kind := a.validator.finalize(resp.Content, records)
			observability.RecordReply(kind)
			logger.Debug().Int("iterations", iterations).Str("kind", kind).Msg("Run finished")
			if callbacks.OnAssistantMessage != nil {
				callbacks.OnAssistantMessage(reply.Text)
			}
			return reply, nil
		}

		// Only the latest tool round's records can fill a repaired card.
		records = nil
		for i, call := range resp.ToolCalls {
			if callbacks.OnToolCall != nil {
				callbacks.OnToolCall(call)
			}

			var text string
			if callbacks.ShouldExecuteTool != nil && !callbacks.ShouldExecuteTool(call) {
				text = declinedResult
			} else {
				result, err := a.cfg.Registry.Invoke(ctx, call.Name, call.Args)
				if err != nil {
					logger.Debug().Err(err).Str("tool", call.Name).Msg("Tool dispatch failed")
					return Reply{}, err
				}
				if props, ok := result.([]property.Property); ok {
					records = mergeRecords(records, props)
				}
				text = tools.FormatResult(result)
			}

			// The model's text goes with the first call only.
			note := ""
			if i == 0 {
				note = resp.Content
			}
			sess.AddToolExchange(note, call, text)
			if callbacks.OnToolResult != nil {
				callbacks.OnToolResult(call, text)
			}
		}
	}

	return Reply{}, &LoopExceededError{Iterations: a.cfg.MaxIterations}
}

// mergeRecords appends props to records, skipping addresses already present.
func mergeRecords(records, props []property.Property) []property.Property {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.Address] = true
	}
	for _, p := range props {
		if !seen[p.Address] {
			seen[p.Address] = true
			records = append(records, p)
		}
	}
	return records
}

// outcome names how a run ended for metrics.
func outcome(err error) string {
	var (
		loop    *LoopExceededError
		model   *ModelUnavailableError
		unknown *tools.UnknownToolError
		schema  *tools.SchemaValidationError
		exec    *tools.ToolExecutionError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &loop):
		return "loop_exceeded"
	case errors.As(err, &model):
		return "model_unavailable"
	case errors.As(err, &unknown):
		return "unknown_tool"
	case errors.As(err, &schema):
		return "invalid_arguments"
	case errors.As(err, &exec):
		return "tool_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
