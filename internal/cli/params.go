package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsGetCmd)
	paramsCmd.AddCommand(paramsSetCmd)
	paramsSetCmd.Flags().Float64("temperature", 0, "sampling temperature (0 leaves unset)")
	paramsSetCmd.Flags().Float64("top-p", 0, "nucleus sampling threshold (0 leaves unset)")
	paramsSetCmd.Flags().Int("max-new-tokens", 0, "max tokens to generate (0 leaves unset)")
}

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Inspect or change default generation parameters",
}

var paramsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show current default generation parameters",
	RunE:  runParamsGet,
}

type settingsWire struct {
	Temperature       float64  `json:"Temperature"`
	TopP              float64  `json:"TopP"`
	TopK              int      `json:"TopK"`
	MaxNewTokens      int      `json:"MaxNewTokens"`
	RepetitionPenalty float64  `json:"RepetitionPenalty"`
	DoSample          bool     `json:"DoSample"`
	StopSequences     []string `json:"StopSequences,omitempty"`
}

func runParamsGet(cmd *cobra.Command, args []string) error {
	var s settingsWire
	if err := client().get("/api/v1/params", &s); err != nil {
		return err
	}
	fmt.Printf("temperature=%.2f top_p=%.2f top_k=%d max_new_tokens=%d repetition_penalty=%.2f do_sample=%v\n",
		s.Temperature, s.TopP, s.TopK, s.MaxNewTokens, s.RepetitionPenalty, s.DoSample)
	return nil
}

var paramsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Patch default generation parameters",
	RunE:  runParamsSet,
}

func runParamsSet(cmd *cobra.Command, args []string) error {
	var current settingsWire
	if err := client().get("/api/v1/params", &current); err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetFloat64("temperature"); v != 0 {
		current.Temperature = v
	}
	if v, _ := cmd.Flags().GetFloat64("top-p"); v != 0 {
		current.TopP = v
	}
	if v, _ := cmd.Flags().GetInt("max-new-tokens"); v != 0 {
		current.MaxNewTokens = v
	}

	var updated settingsWire
	if err := client().post("/api/v1/params", current, &updated); err != nil {
		return err
	}
	fmt.Println("params updated")
	return nil
}
