package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/havenai/haven/agent"
	"github.com/havenai/haven/agent/terminal"
	"github.com/havenai/haven/config"
	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/gateway"
	"github.com/havenai/haven/logger"
)

const usage = `Usage: haven [serve|chat] [flags] [prompt]

  serve   run the HTTP gateway (default)
  chat    talk to the assistant in the terminal

Flags:
`

func main() {
	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("haven", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	toolsetFlag := fs.String("t", "", "Toolset to use (defaults to 'default')")
	listenFlag := fs.String("listen", "", "Address to serve on (overrides config)")
	toolVerbosityFlag := fs.String("tool-verbosity", "none", "Tool verbosity level: 'none', 'info', or 'all'")
	confirmFlag := fs.Bool("confirm", false, "Ask before each tool call (chat only)")
	fs.Parse(args)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if *listenFlag != "" {
		cfg.Listen = *listenFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		err = serve(ctx, cfg, *toolsetFlag)
	case "chat":
		err = chat(ctx, cfg, *toolsetFlag, *toolVerbosityFlag, *confirmFlag, strings.Join(fs.Args(), " "))
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "haven %s: %+v\n", command, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, toolset string) error {
	log := logger.New(cfg.Logging)

	a, err := buildApp(ctx, cfg, toolset, nil, log)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := gateway.NewServer(gateway.ServerOptions{Addr: cfg.Listen}, a.agent, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func chat(ctx context.Context, cfg *config.Config, toolset, verbosityFlag string, confirm bool, initialPrompt string) error {
	var verbosity agent.ToolVerbosity
	switch verbosityFlag {
	case "none":
		verbosity = agent.ToolVerbosityNone
	case "info":
		verbosity = agent.ToolVerbosityInfo
	case "all":
		verbosity = agent.ToolVerbosityAll
	default:
		return errors.New("invalid tool verbosity '%s'. Must be 'none', 'info', or 'all'", verbosityFlag)
	}

	// Keep the log off the conversation unless something goes wrong.
	logCfg := cfg.Logging
	if logCfg.Level == "" || logCfg.Level == "info" || logCfg.Level == "debug" {
		logCfg.Level = "warn"
	}
	log := logger.New(logCfg)

	a, err := buildApp(ctx, cfg, toolset, nil, log)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []terminal.Option{terminal.WithVerbosity(verbosity)}
	if confirm {
		opts = append(opts, terminal.WithConfirmation())
	}
	fmt.Println("Haven is ready. Type your message, /reset to start over, /quit to leave.")
	return terminal.New(a.agent, os.Stdin, os.Stdout, opts...).Run(ctx, initialPrompt)
}
