package cmd

import (
	"fmt"
	"sentinel-cli/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure Sentinel CLI settings",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var setTokenCmd = &cobra.Command{
	Use:   "set-token [token]",
	Short: "Set the authorization token sent with every lookup",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.SetToken(args[0]); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error setting token: %v\n", err)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Token set successfully.")
	},
}

var getTokenCmd = &cobra.Command{
	Use:   "get-token",
	Short: "Get the current authorization token",
	Run: func(cmd *cobra.Command, args []string) {
		token := config.GetToken()
		if token == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Token is not set.")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Current token: %s\n", token)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(setTokenCmd)
	configCmd.AddCommand(getTokenCmd)
}
