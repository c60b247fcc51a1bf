// Package cli implements the calbot command tree.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/calbot-ai/calbot/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"   ___      _ _           _\n" +
		"  / __\\__ _| | |__   ___ | |_\n" +
		" / /  / _` | | '_ \\ / _ \\| __|\n" +
		"/ /__| (_| | | |_) | (_) | |_\n" +
		"\\____/\\__,_|_|_.__/ \\___/ \\__|\n"
)

var rootCmd = &cobra.Command{
	Use:   "calbot",
	Short: "Calbot - conversational calendar assistant",
	Long:  color.CyanString(logo) + "\nTalk to your Google Calendar in plain language.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(calendarsCmd)
}
