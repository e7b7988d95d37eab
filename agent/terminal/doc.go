// Package terminal implements the command-line chat mode for Haven.
//
// The terminal reads one message per line, sends it to the agent together
// with the turns exchanged so far, and prints the reply. History lives only
// in the Terminal, mirroring how the HTTP gateway expects clients to resend
// it on every request.
//
// Commands:
//
//	/reset   forget the history
//	/quit    leave (also /exit, or EOF)
//
// Tool activity is printed according to the verbosity level:
//
//   - ToolVerbosityNone: nothing
//   - ToolVerbosityInfo: the name of each tool called
//   - ToolVerbosityAll: names, arguments and results
//
// WithConfirmation asks for a y/n answer before each tool runs.
package terminal
