package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/alertrouter/internal/channel"
	"github.com/alertrouter/internal/models"
	"github.com/spf13/cobra"
)

func NewChannelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "channel",
		Short:   "Notification channel commands",
		Aliases: []string{"channels", "ch"},
	}

	cmd.AddCommand(newChannelListCommand())
	cmd.AddCommand(newChannelValidateCommand())
	cmd.AddCommand(newChannelTestCommand())
	cmd.AddCommand(newChannelToggleCommand())
	cmd.AddCommand(newChannelDuplicateCommand())
	cmd.AddCommand(newChannelStatsCommand())
	return cmd
}

func newChannelListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List a team's channels",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := teamID()
			if err != nil {
				return err
			}

			channels, err := newClient().ListChannels(cmd.Context(), team)
			if err != nil {
				return fmt.Errorf("failed to list channels: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tENABLED\tPER HOUR\tPER DAY")
			for _, ch := range channels {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%d\n",
					ch.ID,
					ch.Name,
					ch.ChannelType,
					ch.Enabled,
					ch.MaxNotificationsPerHour,
					ch.MaxNotificationsPerDay,
				)
			}
			return w.Flush()
		},
	}
}

func newChannelValidateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate [channel_type]",
		Short: "Validate a channel configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %w", err)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("%s is not valid JSON", file)
			}

			result, err := newClient().ValidateChannel(cmd.Context(), models.ChannelType(args[0]), raw)
			if err != nil {
				return fmt.Errorf("failed to validate channel: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, e := range result.Errors {
				fmt.Fprintf(out, "error:   %s\n", e)
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if !result.IsValid {
				return errors.New("configuration is invalid")
			}
			fmt.Fprintln(out, "configuration is valid")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON configuration file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newChannelTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test [channel_id]",
		Short: "Send a test notification over a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().TestChannel(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to test channel: %w", err)
			}

			status := "FAILED"
			if result.Success {
				status = "OK"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%dms)\n", status, result.Message, result.ResponseTimeMs)
			return nil
		},
	}
}

func newChannelToggleCommand() *cobra.Command {
	var disable bool

	cmd := &cobra.Command{
		Use:   "toggle [channel_id]",
		Short: "Enable or disable a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := newClient().ToggleChannel(cmd.Context(), args[0], !disable)
			if err != nil {
				return fmt.Errorf("failed to toggle channel: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Channel %s enabled=%t\n", ch.ID, ch.Enabled)
			return nil
		},
	}

	cmd.Flags().BoolVar(&disable, "disable", false, "Disable instead of enable")
	return cmd
}

func newChannelDuplicateCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "duplicate [channel_id]",
		Short: "Copy a channel; the copy starts disabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := newClient().DuplicateChannel(cmd.Context(), args[0], name)
			if err != nil {
				return fmt.Errorf("failed to duplicate channel: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", ch.Name, ch.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name for the copy")
	return cmd
}

func newChannelStatsCommand() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats [channel_id]",
		Short: "Show channel delivery statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := newClient().ChannelStats(cmd.Context(), args[0], days)
			if err != nil {
				return fmt.Errorf("failed to get channel stats: %w", err)
			}
			return printChannelStats(cmd, stats)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to cover")
	return cmd
}

func printChannelStats(cmd *cobra.Command, stats *channel.UsageStats) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Total:\t%d\n", stats.TotalNotifications)
	fmt.Fprintf(w, "Successful:\t%d\n", stats.Successful)
	fmt.Fprintf(w, "Failed:\t%d\n", stats.Failed)
	fmt.Fprintf(w, "Success rate:\t%.1f%%\n", stats.SuccessRate)
	fmt.Fprintf(w, "Avg delivery:\t%.0fms\n", stats.AvgDeliveryTimeMs)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "DATE\tTOTAL\tSUCCESSFUL\tFAILED")
	days := make([]string, 0, len(stats.Daily))
	for day := range stats.Daily {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		d := stats.Daily[day]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", day, d.Total, d.Successful, d.Failed)
	}
	return w.Flush()
}
