package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/alertrouter/internal/models"
	"github.com/spf13/cobra"
)

func NewAlertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Short:   "Alert lifecycle commands",
		Aliases: []string{"alerts", "a"},
	}

	cmd.AddCommand(newAlertAcknowledgeCommand())
	cmd.AddCommand(newAlertResolveCommand())
	cmd.AddCommand(newAlertSuppressCommand())
	cmd.AddCommand(newAlertStatsCommand())
	return cmd
}

func newAlertAcknowledgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "acknowledge [alert_id]",
		Short:   "Acknowledge an alert",
		Aliases: []string{"ack"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := newClient().AcknowledgeAlert(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to acknowledge alert: %w", err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Alert %s was already acknowledged or resolved\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert %s acknowledged\n", args[0])
			return nil
		},
	}
}

func newAlertResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [alert_id]",
		Short: "Resolve an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := newClient().ResolveAlert(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve alert: %w", err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Alert %s was already resolved\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert %s resolved\n", args[0])
			return nil
		},
	}
}

func newAlertSuppressCommand() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "suppress [alert_id]",
		Short: "Suppress an alert for a while",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := newClient().SuppressAlert(cmd.Context(), args[0], duration)
			if err != nil {
				return fmt.Errorf("failed to suppress alert: %w", err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Alert %s was already resolved\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert %s suppressed for %s\n", args[0], duration)
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "for", time.Hour, "Suppression window")
	return cmd
}

func newAlertStatsCommand() *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a team's alert statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := teamID()
			if err != nil {
				return err
			}

			stats, err := newClient().AlertStatistics(cmd.Context(), team, hours)
			if err != nil {
				return fmt.Errorf("failed to get alert statistics: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "Window:\t%dh\n", stats.Hours)
			fmt.Fprintf(w, "Total:\t%d\n", stats.Total)
			fmt.Fprintf(w, "Active:\t%d\n", stats.Active)
			fmt.Fprintf(w, "Acknowledged:\t%d\n", stats.Acknowledged)
			fmt.Fprintf(w, "Resolved:\t%d\n", stats.Resolved)
			fmt.Fprintf(w, "Suppressed:\t%d\n", stats.Suppressed)
			fmt.Fprintf(w, "Avg acknowledge:\t%.1fm\n", stats.AvgAcknowledgeMinutes)
			fmt.Fprintf(w, "Avg resolution:\t%.1fm\n", stats.AvgResolutionMinutes)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "SEVERITY\tCOUNT")
			for _, sev := range models.Severities {
				fmt.Fprintf(w, "%s\t%d\n", sev, stats.BySeverity[sev])
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "Window in hours")
	return cmd
}
