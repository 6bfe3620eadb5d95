package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var debugLogs bool

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Declarative GitHub organization permissions controller",
	Long: `Warden reconciles a declarative YAML configuration against a GitHub
organization's teams, repositories, collaborators, custom properties, and
rulesets, and enforces that configuration in response to platform webhooks.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "enable development-mode logging")
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
}
