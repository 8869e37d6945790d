package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(psCmd)
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List models currently loaded in memory",
	RunE:  runPs,
}

type loadedModelRow struct {
	ID     string `json:"id"`
	Engine string `json:"engine"`
	Task   string `json:"task"`
	State  string `json:"state"`
	Active bool   `json:"active"`
}

func runPs(cmd *cobra.Command, args []string) error {
	var result struct {
		Models []loadedModelRow `json:"models"`
	}
	if err := client().get("/api/v1/models/loaded", &result); err != nil {
		return err
	}
	if len(result.Models) == 0 {
		fmt.Println("No models currently loaded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL_ID\tENGINE\tTASK\tSTATE\tACTIVE")
	for _, m := range result.Models {
		active := ""
		if m.Active {
			active = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Engine, m.Task, m.State, active)
	}
	return w.Flush()
}
