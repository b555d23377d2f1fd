// Package mcp exposes the execute, bash_output and kill_bash tools over the
// Model Context Protocol.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Lin-Jiong-HDU/tadash/internal/core"
)

// Instructions is published to the model on initialize.
const Instructions = `tadash runs shell commands on this machine.

Use execute for shell commands. Commands that keep running after a couple of
seconds may be moved to the background; the result then carries a task ID.
Poll background tasks with bash_output and stop them with kill_bash.
Risky commands (network fetchers, nested shells, rm, sudo, command
substitution) are refused unless an operator approves them.`

// handler holds shared dependencies for all tool handlers.
type handler struct {
	engine *core.Engine
}

// NewServer creates an MCP server with the tadash tools registered.
func NewServer(engine *core.Engine, version string) *mcp.Server {
	h := &handler{engine: engine}

	s := mcp.NewServer(&mcp.Implementation{Name: "tadash", Version: version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name: "execute",
		Description: `Run a shell command and return its output.

The result reports command, directory, stdout, stderr, error, exit code,
signal and background PIDs. Set run_in_background to detach commands that
keep running past the background threshold.`,
	}, h.executeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "bash_output",
		Description: "Report the status and accumulated output of a background task.",
	}, h.bashOutputHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "kill_bash",
		Description: "Terminate a running background task and its process group.",
	}, h.killBashHandler)

	return s
}

// Serve runs the server over stdio until ctx is done or the client leaves.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// toolResult converts an engine result to an MCP result.
func toolResult(res *core.ToolResult) (*mcp.CallToolResult, any, error) {
	if res.IsError {
		return errorResult(res.LLMContent)
	}
	return textResult(res.LLMContent)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
