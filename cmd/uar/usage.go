package main

import (
	"flag"
	"fmt"
	"os"
)

const helpText = `uar creates, extracts and lists UAR (Universal Archive) files.

Usage: uar [-c|-x|-t] -f archive.uar [-C dir] [-v] [-m] [path ...]
`

func usage(fset *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(os.Stderr, helpText)
		fmt.Fprintln(os.Stderr, "Flags:")
		fset.PrintDefaults()
	}
}
