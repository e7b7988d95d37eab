package main

import (
	"context"
	"net/http"
	"time"

	"github.com/havenai/haven/agent"
	"github.com/havenai/haven/config"
	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/llm"
	"github.com/havenai/haven/property"
	"github.com/havenai/haven/realestate"
	"github.com/havenai/haven/tools"
	"github.com/havenai/haven/tools/mcp"
	"github.com/rs/zerolog"
)

// app holds everything built from the configuration.
type app struct {
	agent      *agent.Agent
	mcpClients []*mcp.MCPClient
}

func (a *app) Close() {
	for _, c := range a.mcpClients {
		_ = c.Stop()
	}
}

// buildApp wires the catalog, provider, tool registry, model client and
// agent. A nil client is built from cfg.
func buildApp(ctx context.Context, cfg *config.Config, toolset string, client llm.LLMClient, logger zerolog.Logger) (*app, error) {
	var provider tools.SnapshotSearcher
	if key := cfg.ProviderAPIKey(); key != "" {
		opts := []realestate.Option{realestate.WithLogger(logger)}
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, realestate.WithBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.TimeoutSeconds > 0 {
			opts = append(opts, realestate.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
			}))
		}
		provider = realestate.NewClient(key, opts...)
	} else {
		logger.Info().Msg("ATTOM_API_KEY not set; criteria search disabled")
	}

	registry, err := tools.NewDefaultRegistry(logger, property.DemoCatalog(), provider)
	if err != nil {
		return nil, err
	}

	a := &app{}
	for _, srv := range cfg.AdditionalMCPServers {
		c, err := mcp.NewMCPClient(ctx, srv.Name, srv.Command, srv.Args, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.mcpClients = append(a.mcpClients, c)
		for _, t := range c.Tools() {
			if err := registry.Register(t); err != nil {
				a.Close()
				return nil, errors.Wrapf(err, "failed to register tool from MCP server '%s'", srv.Name)
			}
		}
	}

	ts, err := cfg.GetToolset(toolset)
	if err != nil {
		a.Close()
		return nil, err
	}
	active, err := registry.Select(ts.Tools)
	if err != nil {
		a.Close()
		return nil, errors.Wrapf(err, "toolset '%s'", ts.Name)
	}

	if client == nil {
		client, err = llm.New(ctx, cfg.LLMClient, llm.Options{
			Model:       cfg.Model,
			APIKey:      cfg.APIKey(),
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			a.Close()
			return nil, errors.Wrapf(err, "failed to initialize %s client", cfg.LLMClient)
		}
	}

	a.agent, err = agent.New(agent.Config{
		SystemPrompt:  cfg.SystemPrompt,
		Registry:      active,
		Client:        client,
		MaxIterations: cfg.MaxIterations,
		Provider:      cfg.LLMClient,
		Logger:        logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
