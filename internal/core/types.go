package core

import "github.com/Lin-Jiong-HDU/tadash/internal/core/shell"

// ExecuteParams are the arguments of the execute tool.
type ExecuteParams struct {
	Command string `json:"command"`
	// Timeout is in milliseconds; zero means the engine default.
	Timeout         int    `json:"timeout,omitempty"`
	RunInBackground bool   `json:"run_in_background,omitempty"`
	Directory       string `json:"directory,omitempty"`
}

func (p ExecuteParams) asMap() map[string]any {
	return map[string]any{
		"command":           p.Command,
		"timeout":           p.Timeout,
		"run_in_background": p.RunInBackground,
		"directory":         p.Directory,
	}
}

// ToolResult is what every tool call returns to the model.
type ToolResult struct {
	LLMContent       string `json:"llm_content"`
	IsError          bool   `json:"is_error,omitempty"`
	BackgroundTaskID string `json:"background_task_id,omitempty"`
	// Result is the raw execution result of a foreground execute call.
	Result *shell.Result `json:"-"`
}

func errorResult(format string, args ...any) *ToolResult {
	return &ToolResult{LLMContent: sprintf(format, args...), IsError: true}
}
