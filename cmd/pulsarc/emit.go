package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/betracehq/pulsar/internal/catalog"
	"github.com/betracehq/pulsar/internal/compilerconfig"
	"github.com/betracehq/pulsar/internal/emit"
	"github.com/betracehq/pulsar/internal/pipeline"
)

func newEmitCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "compile a rule set and write evaluator source and the build manifest",
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
			ctx := cmd.Context()
			result, err := p.Compile(ctx, flags.rulesPath)
			if err != nil {
				return err
			}
			if report := result.Issues.Report(); report != "" {
				fmt.Fprint(cmd.OutOrStdout(), report)
			}
			if result.Issues.HasFatal() {
				return fmt.Errorf("compile failed: %d fatal issue(s)", len(result.Issues.Fatal()))
			}

			outputDir := flags.outputDir
			if outputDir == "" {
				outputDir = "out"
			}
			emitIssues := p.Emit(ctx, result, outputDir, &emit.RealFileSystem{}, time.Now())
			if report := emitIssues.Report(); report != "" {
				fmt.Fprint(cmd.OutOrStdout(), report)
			}
			if emitIssues.HasFatal() {
				return fmt.Errorf("emit failed: %d fatal issue(s)", len(emitIssues.Fatal()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "emitted %d group(s) to %s\n", len(result.Groups), outputDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.outputDir, "out", "o", "out", "output directory for generated evaluator source")
	return cmd
}
