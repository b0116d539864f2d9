package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/parkctl/core/summary"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Run summary commands",
}

var summaryLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored run summaries",
	RunE:  runSummaryLs,
}

func init() {
	summaryCmd.AddCommand(summaryLsCmd)
	rootCmd.AddCommand(summaryCmd)
}

func runSummaryLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := summary.NewStore(cfg.Summary)
	if err != nil {
		return err
	}
	defer store.Close()
	runs, err := store.List(context.Background())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSCENARIO\tVEHICLES\tFINAL TICK\tREDIRECTS\tNEVER PARKED")
	for _, s := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			s.RunID, s.StartedAt.Format("2006-01-02 15:04:05"), s.Scenario,
			s.Vehicles, s.FinalTick, s.TotalRedirects(), s.NeverParked)
	}
	return w.Flush()
}
