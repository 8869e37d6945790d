package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(estimateCmd)
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Show current RAM/VRAM budget and per-model reservations",
	RunE:  runResources,
}

func runResources(cmd *cobra.Command, args []string) error {
	var status struct {
		TotalRAMBytes  uint64 `json:"total_ram_bytes"`
		FreeRAMBytes   uint64 `json:"free_ram_bytes"`
		TotalVRAMBytes uint64 `json:"total_vram_bytes"`
		FreeVRAMBytes  uint64 `json:"free_vram_bytes"`
	}
	if err := client().get("/api/v1/resources", &status); err != nil {
		return err
	}
	fmt.Printf("RAM:  %s free / %s total\n", humanize.Bytes(status.FreeRAMBytes), humanize.Bytes(status.TotalRAMBytes))
	fmt.Printf("VRAM: %s free / %s total\n", humanize.Bytes(status.FreeVRAMBytes), humanize.Bytes(status.TotalVRAMBytes))
	return nil
}

var estimateCmd = &cobra.Command{
	Use:   "estimate SOURCE",
	Short: "Estimate offload plans for a model without loading it",
	Args:  cobra.ExactArgs(1),
	RunE:  runEstimate,
}

func runEstimate(cmd *cobra.Command, args []string) error {
	var result struct {
		Plans []struct {
			Label     string `json:"Label"`
			SpeedTier string `json:"SpeedTier"`
			VRAMBytes uint64 `json:"VRAMBytes"`
			RAMBytes  uint64 `json:"RAMBytes"`
		} `json:"plans"`
	}
	if err := client().post("/api/v1/resources/estimate", map[string]string{"source": args[0]}, &result); err != nil {
		return err
	}
	for _, p := range result.Plans {
		fmt.Printf("%-8s %-24s vram=%s ram=%s\n", p.SpeedTier, p.Label, humanize.Bytes(p.VRAMBytes), humanize.Bytes(p.RAMBytes))
	}
	return nil
}
