package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alertrouter/internal/api/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand builds alertctl. Settings come from flags, ALERTCTL_* variables and
// ~/.alertctl.yaml, in that order of precedence.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "alertctl",
		Short:         "alertctl manages alert routing and notification channels",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.alertctl.yaml)")
	cmd.PersistentFlags().String("api-url", client.DefaultBaseURL, "alertrouter API base URL")
	cmd.PersistentFlags().String("team", "", "team ID")
	_ = viper.BindPFlag("api_url", cmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("team", cmd.PersistentFlags().Lookup("team"))

	cmd.AddCommand(newLoginCommand())
	cmd.AddCommand(NewChannelCommand())
	cmd.AddCommand(NewAlertCommand())
	cmd.AddCommand(NewRulesCommand())
	return cmd
}

func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		viper.SetConfigFile(filepath.Join(home, ".alertctl.yaml"))
	}

	viper.SetEnvPrefix("ALERTCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func newClient() *client.Client {
	return client.NewClient(viper.GetString("api_url"), viper.GetString("token"))
}

func teamID() (string, error) {
	team := viper.GetString("team")
	if team == "" {
		return "", fmt.Errorf("team is required (--team or ALERTCTL_TEAM)")
	}
	return team, nil
}

func newLoginCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := newClient().Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("failed to log in: %w", err)
			}

			viper.Set("token", token)
			if err := viper.WriteConfigAs(viper.ConfigFileUsed()); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
