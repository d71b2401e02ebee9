package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/betracehq/pulsar/internal/catalog"
	"github.com/betracehq/pulsar/internal/compilerconfig"
	"github.com/betracehq/pulsar/internal/pipeline"
)

func newCompileCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "run Parser, Validator, Dependency Analyzer, and Partitioner over a rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.verbose)
			sysCfg, err := compilerconfig.LoadSystemConfig(flags.configPath, true)
			if err != nil {
				return err
			}
			opts, err := compilerconfig.LoadOptions(flags.configPath)
			if err != nil {
				return err
			}

			p := pipeline.New(catalog.New(sysCfg), opts, logger, nil)
			result, err := p.Compile(cmd.Context(), flags.rulesPath)
			if err != nil {
				return err
			}

			if report := result.Issues.Report(); report != "" {
				fmt.Fprint(cmd.OutOrStdout(), report)
			}
			if result.Issues.HasFatal() {
				return fmt.Errorf("compile failed: %d fatal issue(s)", len(result.Issues.Fatal()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compiled %d rule(s) into %d group(s)\n", len(result.Rules), len(result.Groups))
			return nil
		},
	}
	return cmd
}
