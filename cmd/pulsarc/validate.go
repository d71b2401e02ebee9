package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/betracehq/pulsar/internal/catalog"
	"github.com/betracehq/pulsar/internal/compilerconfig"
	"github.com/betracehq/pulsar/internal/pipeline"
)

func newValidateCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "run Parser and Validator only, without layering or emitting",
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
			issues, err := p.Validate(cmd.Context(), flags.rulesPath)
			if err != nil {
				return err
			}

			if report := issues.Report(); report != "" {
				fmt.Fprint(cmd.OutOrStdout(), report)
			}
			if issues.HasFatal() {
				return fmt.Errorf("validation failed: %d fatal issue(s)", len(issues.Fatal()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	return cmd
}
