package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Short:   "Alert rule commands",
		Aliases: []string{"rule"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate every enabled alert rule now",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().EvaluateRules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to evaluate rules: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Evaluated %d rules: %d triggered, %d failed\n", result.Evaluated, result.Triggered, result.Failed)
			for _, id := range result.AlertIDs {
				fmt.Fprintf(out, "  alert %s\n", id)
			}
			for _, f := range result.Failures {
				fmt.Fprintf(out, "  rule %s: %s\n", f.RuleID, f.Error)
			}
			if result.Error != "" {
				return fmt.Errorf("evaluation aborted: %s", result.Error)
			}
			return nil
		},
	})
	return cmd
}
