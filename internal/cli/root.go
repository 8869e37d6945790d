package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var addr string

var rootCmd = &cobra.Command{
	Use:   "hearthctl",
	Short: "hearthctl — operate a local hearthrund runtime",
	Long: `hearthctl is the operator CLI for hearthrund, the local
hardware-aware inference runtime. Every subcommand talks to hearthrund's
HTTP surface; it never touches a model file or GPU directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "hearthrund API base URL")
}

func client() *Client {
	return NewClient(addr)
}

// Execute runs the root command. Called from cmd/hearthctl/main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
