package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/security"
)

var checkJSON bool

func getCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <command>",
		Short: "Classify a command without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}

	cmd.Flags().BoolVar(&checkJSON, "json", false, "print the verdict as JSON")

	return cmd
}

type checkReport struct {
	Command      string                `json:"command"`
	Root         string                `json:"root"`
	Segments     []string              `json:"segments"`
	Substitution bool                  `json:"substitution"`
	Assessment   security.Assessment   `json:"assessment"`
	Check        *security.CheckResult `json:"check"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	command := strings.Join(args, " ")
	sc := security.NewSecurityController(&appConfig.Security)

	report := checkReport{
		Command:      command,
		Root:         security.GetCommandRoot(command),
		Segments:     security.SplitPipelineSegments(command),
		Substitution: security.HasCommandSubstitution(command),
		Assessment:   sc.Assess(command),
		Check:        sc.CheckCommand(command),
	}

	out := cmd.OutOrStdout()
	if checkJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "Command:       %s\n", report.Command)
	fmt.Fprintf(out, "Root:          %s\n", orDash(report.Root))
	for i, seg := range report.Segments {
		fmt.Fprintf(out, "Segment %d:     %s\n", i+1, seg)
	}
	fmt.Fprintf(out, "Substitution:  %v\n", report.Substitution)
	fmt.Fprintf(out, "High risk:     %v\n", report.Assessment.HighRisk)
	if report.Assessment.Reason != "" {
		fmt.Fprintf(out, "Risk reason:   %s\n", report.Assessment.Reason)
	}
	fmt.Fprintf(out, "Allowed:       %v\n", report.Check.Allowed)
	fmt.Fprintf(out, "Needs approval: %v\n", report.Check.RequiresAuth)
	if report.Check.Warning != "" {
		fmt.Fprintf(out, "Warning:       %s\n", report.Check.Warning)
	}
	if report.Check.Reason != "" {
		fmt.Fprintf(out, "Reason:        %s\n", report.Check.Reason)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
