package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/havenai/haven/agent"
	"github.com/havenai/haven/session"
)

const apology = "Sorry, I encountered an error. Please try again."

// Terminal handles the terminal/CLI interaction mode for the agent. It keeps
// the conversation history itself, the same way a browser client does.
type Terminal struct {
	agent     *agent.Agent
	in        *bufio.Scanner
	out       io.Writer
	verbosity agent.ToolVerbosity
	confirm   bool
	history   session.Conversation
}

type Option func(*Terminal)

func WithVerbosity(v agent.ToolVerbosity) Option {
	return func(t *Terminal) { t.verbosity = v }
}

// WithConfirmation asks before every tool call.
func WithConfirmation() Option {
	return func(t *Terminal) { t.confirm = true }
}

func New(a *agent.Agent, in io.Reader, out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		agent:     a,
		in:        bufio.NewScanner(in),
		out:       out,
		verbosity: agent.ToolVerbosityNone,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// History returns the turns exchanged so far.
func (t *Terminal) History() session.Conversation {
	return append(session.Conversation(nil), t.history...)
}

// Run starts the interactive terminal session
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		t.processTurn(ctx, initialPrompt)
	}

	for {
		fmt.Fprint(t.out, "You: ")
		if !t.in.Scan() {
			// EOF or read error ends the session
			break
		}

		userInput := strings.TrimSpace(t.in.Text())
		if userInput == "" {
			continue
		}
		switch userInput {
		case "/quit", "/exit":
			return nil
		case "/reset":
			t.history = nil
			fmt.Fprintln(t.out, "History cleared.")
			continue
		}

		t.processTurn(ctx, userInput)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return t.in.Err()
}

// processTurn answers one input. Failures print the same apology the HTTP
// gateway returns and leave the history untouched.
func (t *Terminal) processTurn(ctx context.Context, userInput string) {
	callbacks := agent.ProcessCallbacks{
		OnToolCall: func(toolCall session.ToolCall) {
			switch t.verbosity {
			case agent.ToolVerbosityAll:
				fmt.Fprintf(t.out, "Haven wants to call tool `%s` with args: %v\n", toolCall.Name, toolCall.Args)
			case agent.ToolVerbosityInfo:
				fmt.Fprintf(t.out, "Haven wants to call tool `%s`\n", toolCall.Name)
			}
		},
		OnToolResult: func(toolCall session.ToolCall, result string) {
			if t.verbosity == agent.ToolVerbosityAll {
				fmt.Fprintf(t.out, "Tool `%s` output: %s\n", toolCall.Name, result)
			}
		},
	}
	if t.confirm {
		callbacks.ShouldExecuteTool = func(toolCall session.ToolCall) bool {
			fmt.Fprintf(t.out, "Allow `%s`? (y/n): ", toolCall.Name)
			if !t.in.Scan() {
				return false
			}
			return strings.EqualFold(strings.TrimSpace(t.in.Text()), "y")
		}
	}

	reply, err := t.agent.ProcessUserInput(ctx, userInput, t.History(), callbacks)
	if err != nil {
		fmt.Fprintf(t.out, "Haven: %s\n", apology)
		if t.verbosity != agent.ToolVerbosityNone {
			fmt.Fprintf(t.out, "Error: %v\n", err)
		}
		return
	}

	fmt.Fprintf(t.out, "Haven: %s\n", reply.Text)
	t.history = append(t.history,
		session.Turn{Speaker: session.Human, Text: userInput},
		session.Turn{Speaker: session.Agent, Text: reply.Text},
	)
}
