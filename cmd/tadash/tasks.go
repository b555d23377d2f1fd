package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/proc"
	"github.com/Lin-Jiong-HDU/tadash/internal/storage"
)

var (
	tasksSession string
	tasksRunning bool
)

// statusStale marks a snapshot still "running" whose processes are gone.
const statusStale = "stale"

// getTasksCommand returns the tasks command
func getTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List background tasks recorded by earlier sessions",
		Long: `List the background task snapshots persisted under ~/.tadash/sessions.

Tasks a snapshot still records as running are checked against the live
process table and shown as stale when their process group is gone. Use the
/tasks viewer inside "tadash shell" to manage tasks of the current session.`,
		Args: cobra.NoArgs,
		RunE: runTasks,
	}

	cmd.Flags().StringVarP(&tasksSession, "session", "s", "", "only show this session")
	cmd.Flags().BoolVarP(&tasksRunning, "running", "r", false, "only show tasks still running")

	return cmd
}

func runTasks(cmd *cobra.Command, args []string) error {
	sessionsDir, err := storage.SessionsDir()
	if err != nil {
		return err
	}

	sessions, err := background.LoadSessions(sessionsDir)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	rows := taskRows(sessions, tasksSession, tasksRunning, liveStatus)
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No background tasks recorded.")
		return nil
	}

	fmt.Fprintln(out, renderTaskTable(rows))
	return nil
}

// liveStatus reports the status to display for a persisted task.
func liveStatus(task *background.Task) string {
	if task.Status.Terminal() {
		return string(task.Status)
	}
	if proc.Alive(-task.PGID) || proc.Alive(task.PID) {
		return string(task.Status)
	}
	return statusStale
}

func taskRows(sessions map[string][]*background.Task, session string, runningOnly bool, status func(*background.Task) string) [][]string {
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		if session == "" || id == session {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var rows [][]string
	for _, id := range ids {
		for _, task := range sessions[id] {
			st := status(task)
			if runningOnly && st != string(background.TaskStatusRunning) {
				continue
			}
			rows = append(rows, []string{
				id,
				task.ID,
				st,
				fmt.Sprint(task.PID),
				task.CreatedAt.Format("2006-01-02 15:04:05"),
				task.Command,
			})
		}
	}
	return rows
}

func renderTaskTable(rows [][]string) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("SESSION", "TASK", "STATUS", "PID", "STARTED", "COMMAND").
		Rows(rows...)

	return t.String()
}
