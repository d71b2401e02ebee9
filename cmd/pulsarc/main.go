// Command pulsarc is the thin operator-facing wrapper around Pulsar's
// three pure core operations (compile, validate, emit). Per spec.md §1
// the command-line front end is explicitly NOT part of the core's
// contract; this file exists only so a human has somewhere to invoke
// internal/pipeline from, exactly the way spec.md §6's "Command surface"
// section describes an external wrapper's exit-code contract without
// specifying its argument parsing.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
