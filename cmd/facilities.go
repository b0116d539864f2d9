package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/parkctl/app"
	"github.com/kilianp07/parkctl/scenario"
)

var facilitiesCmd = &cobra.Command{
	Use:   "facilities",
	Short: "Facility registry commands",
}

var facilitiesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Print every facility and its capacity",
	RunE:  runFacilitiesLs,
}

func init() {
	facilitiesCmd.AddCommand(facilitiesLsCmd)
	rootCmd.AddCommand(facilitiesCmd)
}

func runFacilitiesLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	var desc *scenario.Descriptor
	if cfg.Engine.Scenario != "" {
		if desc, err = scenario.Load(cfg.Engine.Scenario); err != nil {
			return err
		}
	} else if desc, err = scenario.Generate(cfg.Generate); err != nil {
		return err
	}
	reg, err := app.NewRegistry(cfg.Parking, desc)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FACILITY\tTIER\tROW\tDIR\tCAPACITY")
	for _, f := range reg.Facilities() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%+d\t%d\n", f.ID, f.ID.Tier, f.ID.Row, int(f.ID.Dir), f.Capacity)
	}
	return w.Flush()
}
