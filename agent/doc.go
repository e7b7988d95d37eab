// Package agent runs the Haven assistant's reasoning loop.
//
// An Agent is built once from a Config (system prompt, tool registry, LLM
// client and iteration cap) and shared by every request. Each call to Run
// builds a fresh session.Session from the client-supplied history and the
// new message, then alternates between the model and the tools:
//
//	model -> tool call(s) -> model -> ... -> final text
//
// Tool calls are validated and executed synchronously through the registry.
// Any dispatch failure ends the run with the registry's typed error. A run
// that asks for tools MaxIterations times in a row ends with
// *LoopExceededError, and a failed completion request with
// *ModelUnavailableError.
//
// The final text is checked against the PropertyReply schema. A valid card
// is re-encoded canonically, an invalid one is rebuilt from the records the
// property tools returned, and plain prose is passed through.
//
// # Callbacks
//
// ProcessUserInput accepts ProcessCallbacks so a front end can show tool
// activity as it happens. The terminal subpackage uses them to implement its
// verbosity levels and to ask before running each tool.
package agent
