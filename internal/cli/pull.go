package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pullCmd)
	pullCmd.Flags().String("auth-token", "", "auth token for a gated/private source")
}

var pullCmd = &cobra.Command{
	Use:   "pull SOURCE",
	Short: "Download and load a model from a repo id, URL, or local path",
	Args:  cobra.ExactArgs(1),
	RunE:  runPull,
}

func runPull(cmd *cobra.Command, args []string) error {
	authToken, _ := cmd.Flags().GetString("auth-token")

	var result struct {
		ModelID string `json:"model_id"`
		Engine  string `json:"engine"`
		Plan    struct {
			Label string `json:"Label"`
		} `json:"plan"`
	}
	err := client().post("/api/v1/pull", map[string]string{
		"source":     args[0],
		"auth_token": authToken,
	}, &result)
	if err != nil {
		return err
	}
	fmt.Printf("loaded %s via %s (%s)\n", result.ModelID, result.Engine, result.Plan.Label)
	return nil
}
