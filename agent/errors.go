package agent

import "fmt"

// LoopExceededError reports a run that hit the iteration cap without the
// model producing a final answer.
type LoopExceededError struct {
	Iterations int
}

func (e *LoopExceededError) Error() string {
	return fmt.Sprintf("no final answer after %d iterations", e.Iterations)
}

// ModelUnavailableError wraps a failed completion request.
type ModelUnavailableError struct {
	Err error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %v", e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }
