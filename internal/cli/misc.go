package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(selectCmd)
	haltCmd.Flags().String("model", "", "model id to halt; defaults to the active model")
}

var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Stop an in-flight generation",
	RunE:  runHalt,
}

func runHalt(cmd *cobra.Command, args []string) error {
	model, _ := cmd.Flags().GetString("model")
	var result struct {
		WasGenerating   bool `json:"was_generating"`
		TokensGenerated int  `json:"tokens_generated"`
	}
	if err := client().post("/api/v1/halt", map[string]string{"model_id": model}, &result); err != nil {
		return err
	}
	if result.WasGenerating {
		fmt.Printf("halted after %d tokens\n", result.TokensGenerated)
	} else {
		fmt.Println("nothing was generating")
	}
	return nil
}

var selectCmd = &cobra.Command{
	Use:   "select MODEL_ID",
	Short: "Mark a loaded model as the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelect,
}

func runSelect(cmd *cobra.Command, args []string) error {
	if err := client().post("/api/v1/models/select", map[string]string{"model_id": args[0]}, nil); err != nil {
		return err
	}
	fmt.Printf("active model set to %s\n", args[0])
	return nil
}
