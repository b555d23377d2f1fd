package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Lin-Jiong-HDU/tadash/internal/core"
)

type executeParams struct {
	Command         string `json:"command" jsonschema:"the shell command to run"`
	Timeout         int    `json:"timeout,omitempty" jsonschema:"timeout in milliseconds. Defaults to the configured default and is capped at the configured maximum."`
	RunInBackground bool   `json:"run_in_background,omitempty" jsonschema:"move the command to a background task once it has run past the background threshold"`
	Directory       string `json:"directory,omitempty" jsonschema:"working directory. Defaults to the server's working directory."`
}

type taskParams struct {
	TaskID string `json:"task_id" jsonschema:"the background task ID returned by execute"`
}

func (h *handler) executeHandler(ctx context.Context, req *mcp.CallToolRequest, params executeParams) (*mcp.CallToolResult, any, error) {
	return toolResult(h.engine.Execute(ctx, core.ExecuteParams{
		Command:         params.Command,
		Timeout:         params.Timeout,
		RunInBackground: params.RunInBackground,
		Directory:       params.Directory,
	}))
}

func (h *handler) bashOutputHandler(ctx context.Context, req *mcp.CallToolRequest, params taskParams) (*mcp.CallToolResult, any, error) {
	if params.TaskID == "" {
		return errorResult("task_id is required")
	}
	return toolResult(h.engine.BashOutput(params.TaskID))
}

func (h *handler) killBashHandler(ctx context.Context, req *mcp.CallToolRequest, params taskParams) (*mcp.CallToolResult, any, error) {
	if params.TaskID == "" {
		return errorResult("task_id is required")
	}
	return toolResult(h.engine.KillBash(params.TaskID))
}
