package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/observability"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	// Execute runs with arguments already validated against Schema. The
	// result is handed back to the model, see FormatResult.
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// ToolRegistry holds the tools an agent may call. Register everything at
// startup; after that the registry is only read and may be shared freely.
type ToolRegistry struct {
	tools   map[string]Tool
	schemas map[string]*gojsonschema.Schema
	order   []string
	logger  zerolog.Logger
}

func NewToolRegistry(logger zerolog.Logger) *ToolRegistry {
	return &ToolRegistry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger,
	}
}

// Register adds a tool. Names are unique.
func (r *ToolRegistry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return errors.New("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	schema, err := t.Schema().compile()
	if err != nil {
		return errors.Wrapf(err, "invalid schema for tool '%s'", name)
	}

	r.tools[name] = t
	r.schemas[name] = schema
	r.order = append(r.order, name)
	r.logger.Debug().Str("tool", name).Msg("Tool registered")
	return nil
}

// Resolve returns the named tool.
func (r *ToolRegistry) Resolve(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return t, nil
}

// Tools returns the registered tools in registration order.
func (r *ToolRegistry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Invoke validates args against the tool's schema and runs it. Nothing is
// executed for an unknown name or invalid arguments. Errors and panics
// raised by the tool come back as *ToolExecutionError.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, args map[string]interface{}) (result interface{}, err error) {
	t, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := validateArgs(name, r.schemas[name], args); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = &ToolExecutionError{Tool: name, Message: fmt.Sprint(p)}
		}
		observability.RecordToolExecution(name, time.Since(start), err == nil)
		r.logger.Debug().
			Str("tool", name).
			Dur("duration", time.Since(start)).
			Bool("success", err == nil).
			Msg("Tool invoked")
	}()

	out, execErr := t.Execute(ctx, args)
	if execErr != nil {
		return nil, &ToolExecutionError{Tool: name, Message: execErr.Error(), Err: execErr}
	}
	return out, nil
}

// Select returns a registry holding only the tools whose names match one of
// the glob patterns, in registration order. A pattern matching nothing is
// an error, so typos in a toolset surface at startup.
func (r *ToolRegistry) Select(patterns []string) (*ToolRegistry, error) {
	sub := NewToolRegistry(r.logger)
	picked := map[string]bool{}
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.New("invalid tool pattern '%s'", pattern)
		}
		matched := false
		for _, name := range r.order {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid tool pattern '%s'", pattern)
			}
			if !ok {
				continue
			}
			matched = true
			picked[name] = true
		}
		if !matched {
			return nil, errors.New("tool pattern '%s' matches no registered tool", pattern)
		}
	}
	for _, name := range r.order {
		if picked[name] {
			sub.tools[name] = r.tools[name]
			sub.schemas[name] = r.schemas[name]
			sub.order = append(sub.order, name)
		}
	}
	return sub, nil
}

// FormatResult renders a tool result for the model: strings pass through,
// anything else is JSON.
func FormatResult(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads an integer argument that may arrive as a JSON number or a
// Go integer.
func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}
