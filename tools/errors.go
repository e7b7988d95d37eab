package tools

import (
	"fmt"
	"strings"
)

// DuplicateToolError is returned by Register when the name is taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool '%s' is already registered", e.Name)
}

// UnknownToolError is returned when a name does not resolve.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool '%s' is not registered", e.Name)
}

// SchemaValidationError lists the arguments that do not satisfy a tool's
// input schema. The tool was not called.
type SchemaValidationError struct {
	Tool     string
	Fields   []string // missing or mistyped field names
	Problems []string // validator messages, one per failure
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool '%s': %s", e.Tool, strings.Join(e.Problems, "; "))
}

// ToolExecutionError wraps a failure raised inside a tool.
type ToolExecutionError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool '%s' failed: %s", e.Tool, e.Message)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
