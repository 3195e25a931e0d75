package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "riskctl",
	Short: "Borrower credit-risk assessment workflows from the terminal",
	Long: "riskctl runs credit cases through the assessment workflow locally,\n" +
		"submits cases and review decisions to a running deployment, and\n" +
		"serves the underwriting tools over MCP.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(toolsServeCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
