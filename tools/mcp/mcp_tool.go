// Package mcp exposes tools served by external MCP servers through the
// tools.Tool interface, so they register and validate like built-in tools.
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/tools"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// MCPClient manages the connection to a single MCP server subprocess.
type MCPClient struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools []*MCPTool
}

// NewMCPClient starts the MCP server subprocess and discovers its tools.
func NewMCPClient(ctx context.Context, name, command string, args []string, logger zerolog.Logger) (*MCPClient, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "haven", Version: "v1.0.0"}, nil)
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}
	client := &MCPClient{Name: name, cmd: cmd, conn: conn}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			client.Stop()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range list.Tools {
			schema, err := convertInputSchema(t.InputSchema)
			if err != nil {
				logger.Warn().Err(err).Str("server", name).Str("tool", t.Name).Msg("Skipping MCP tool with unreadable schema")
				continue
			}
			client.tools = append(client.tools, &MCPTool{
				toolName:    t.Name,
				description: t.Description,
				schema:      schema,
				client:      client,
			})
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	logger.Info().Str("server", name).Int("tools", len(client.tools)).Msg("MCP client initialized")
	return client, nil
}

// Tools returns the tools the server advertised.
func (c *MCPClient) Tools() []*MCPTool {
	return c.tools
}

// Stop terminates the MCP server subprocess.
func (c *MCPClient) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// MCPTool is a tool hosted by an MCP server.
type MCPTool struct {
	toolName    string
	description string
	schema      tools.Schema
	client      *MCPClient
}

func (t *MCPTool) Name() string         { return t.toolName }
func (t *MCPTool) Description() string  { return t.description }
func (t *MCPTool) Schema() tools.Schema { return t.schema }

// Execute forwards the call and concatenates the text content of the result.
func (t *MCPTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call tool '%s'", t.toolName)
	}
	var out strings.Builder
	for _, c := range result.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			out.WriteString(text.Text)
		}
	}
	if result.IsError {
		return nil, errors.New("%s", out.String())
	}
	return out.String(), nil
}

type rawSchema struct {
	Properties map[string]struct {
		Type        json.RawMessage `json:"type"`
		Description string          `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// convertInputSchema flattens an MCP JSON Schema into tools.Schema. Only
// top-level properties are kept; nested constraints are left to the server.
func convertInputSchema(in any) (tools.Schema, error) {
	if in == nil {
		return tools.Schema{}, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var raw rawSchema
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	required := map[string]bool{}
	for _, r := range raw.Required {
		required[r] = true
	}
	out := tools.Schema{}
	for name, p := range raw.Properties {
		desc := p.Description
		if desc == "" {
			desc = name
		}
		out[name] = tools.Field{Type: schemaType(p.Type), Description: desc, Required: required[name]}
	}
	return out, nil
}

// schemaType picks a single JSON Schema type. Union types take the first
// non-null member; an absent type is treated as an object.
func schemaType(raw json.RawMessage) string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, t := range many {
			if t != "null" {
				return t
			}
		}
	}
	return "object"
}
