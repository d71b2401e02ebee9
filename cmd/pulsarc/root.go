package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootFlags holds the flags shared by every subcommand, mirroring
// sawpanic-cryptorun/cmd/cprotocol's pattern of a single small
// long-lived cobra.Command tree with flags bound directly to it rather
// than a package-level config singleton.
type rootFlags struct {
	rulesPath  string
	configPath string
	outputDir  string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "pulsarc",
		Short: "pulsarc compiles Beacon rule documents into evaluator source",
		Long: "pulsarc is the command-line front end over Pulsar's compile/validate/emit\n" +
			"pipeline. It performs no rule evaluation itself; it only turns rule\n" +
			"documents into the static Python evaluator modules Beacon runs at\n" +
			"cycle time.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.rulesPath, "rules", "rules", "directory of rule documents (*.yaml)")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the system configuration document")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug-level logging")

	root.AddCommand(newCompileCommand(flags))
	root.AddCommand(newValidateCommand(flags))
	root.AddCommand(newEmitCommand(flags))

	return root
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
