// Command uar creates, extracts and lists UAR (Universal Archive) files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

const version = "uar version 1"

func funcmain() error {
	fset := flag.NewFlagSet("uar", flag.ContinueOnError)
	fset.Usage = usage(fset)

	create := fset.Bool("c", false, "create a new archive")
	extract := fset.Bool("x", false, "extract an archive")

	list := fset.Bool("t", false, "list an archive's contents")
	archivePath := fset.String("f", "", "archive file path (required)")
	destDir := fset.String("C", "", "destination directory for extraction")
	verbose := fset.Bool("v", false, "enable verbose diagnostics")
	iec := fset.Bool("m", false, "use human-readable IEC sizes in list output")
	showVersion := fset.Bool("V", false, "print version and exit")

	if err := fset.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		return err
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	modes := 0
	for _, m := range []bool{*create, *extract, *list} {
		if m {
			modes++
		}
	}
	if modes != 1 {
		return errors.New("exactly one of -c, -x, -t is required")
	}
	if *archivePath == "" {
		return errors.New("-f is required")
	}
	if *list && *destDir != "" {
		return errors.New("-C is incompatible with -t")
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	switch {
	case *create:
		return runCreate(ctx, *archivePath, fset.Args(), *verbose)

	case *extract:
		resolved, err := realpath(*archivePath)
		if err != nil {
			return err
		}
		dest := *destDir
		if dest == "" {
			dest = "."
		}
		return runExtract(ctx, resolved, dest, *verbose)

	default: // *list
		resolved, err := realpath(*archivePath)
		if err != nil {
			return err
		}
		return runList(resolved, *verbose, *iec)
	}
}

// realpath resolves path the way the original uar CLI's getopt-based main()
// does for extract and list modes (create uses the string as-is).
func realpath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
