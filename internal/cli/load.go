package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(unloadCmd)
	rootCmd.AddCommand(deleteCmd)
	loadCmd.Flags().String("engine", "", "force a specific engine instead of auto-selection")
	loadCmd.Flags().String("accelerator", "", "force a specific accelerator")
	loadCmd.Flags().Int("context-size", 0, "override context window size")
}

var loadCmd = &cobra.Command{
	Use:   "load SOURCE",
	Short: "Load an already-downloaded model by id or source",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

var unloadCmd = &cobra.Command{
	Use:   "unload MODEL_ID",
	Short: "Unload a model, freeing its reservation",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnload,
}

var deleteCmd = &cobra.Command{
	Use:   "rm MODEL_ID",
	Short: "Unload a model (alias: this runtime does not manage on-disk artifact storage)",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnload,
}

func runLoad(cmd *cobra.Command, args []string) error {
	engineName, _ := cmd.Flags().GetString("engine")
	accelerator, _ := cmd.Flags().GetString("accelerator")
	contextSize, _ := cmd.Flags().GetInt("context-size")

	body := map[string]any{"source": args[0]}
	if engineName != "" {
		body["engine"] = engineName
	}
	if accelerator != "" {
		body["accelerator"] = accelerator
	}
	if contextSize > 0 {
		body["context_size"] = contextSize
	}

	var result struct {
		ModelID string `json:"model_id"`
		Engine  string `json:"engine"`
	}
	if err := client().post("/api/v1/load", body, &result); err != nil {
		return err
	}
	fmt.Printf("loaded %s via %s\n", result.ModelID, result.Engine)
	return nil
}

func runUnload(cmd *cobra.Command, args []string) error {
	if err := client().post("/api/v1/unload", map[string]string{"model_id": args[0]}, nil); err != nil {
		return err
	}
	fmt.Printf("unloaded %s\n", args[0])
	return nil
}
