package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/parkctl/app"
	"github.com/kilianp07/parkctl/scenario"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Scenario descriptor commands",
}

var scenarioGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a seeded scenario descriptor",
	RunE:  runScenarioGenerate,
}

var scenarioValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a scenario descriptor against the facility registry",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScenarioValidate,
}

var genOpts struct {
	out  string
	seed int64
	good int
	bad  int
}

func init() {
	f := scenarioGenerateCmd.Flags()
	f.StringVarP(&genOpts.out, "out", "o", "", "output file, stdout when empty")
	f.Int64Var(&genOpts.seed, "seed", 0, "generator seed")
	f.IntVar(&genOpts.good, "good", 0, "well behaved vehicles")
	f.IntVar(&genOpts.bad, "bad", 0, "overstaying vehicles")
	scenarioCmd.AddCommand(scenarioGenerateCmd, scenarioValidateCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarioGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	gen := cfg.Generate
	flags := cmd.Flags()
	if flags.Changed("seed") {
		gen.Seed = genOpts.seed
	}
	if flags.Changed("good") {
		gen.Good = genOpts.good
	}
	if flags.Changed("bad") {
		gen.Bad = genOpts.bad
	}
	desc, err := scenario.Generate(gen)
	if err != nil {
		return err
	}
	if genOpts.out != "" {
		return desc.Save(genOpts.out)
	}
	data, err := yaml.Marshal(desc)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runScenarioValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := cfg.Engine.Scenario
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no scenario path given and engine.scenario is unset")
	}
	desc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	reg, err := app.NewRegistry(cfg.Parking, desc)
	if err != nil {
		return err
	}
	if err := desc.Validate(reg); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d vehicles, ok\n", path, len(desc.Vehicles))
	return err
}
