package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/xerrors"

	"github.com/distr1/uar/pkg/uar"
)

func runList(archivePath string, verbose, iec bool) error {
	r, err := uar.Open(archivePath)
	if err != nil {
		return xerrors.Errorf("open %s: %w", archivePath, err)
	}
	defer r.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	r.Iterate(func(e *uar.Entry) bool {
		name := e.Name()
		if !verbose {
			switch e.Kind() {
			case uar.KindDir:
				if name != "/" {
					name += "/"
				}
			case uar.KindLink:
				name += "@"
			}
		}
		size := fmt.Sprintf("%d", e.Size())
		if iec {
			size = formatSizeIEC(e.Size())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", modeString(e), size, e.ModTime().Format(time.RFC3339), name)
		return true
	})
	return tw.Flush()
}

// modeString renders an entry's type and permission bits the way `ls -l`
// does, e.g. "drwxr-xr-x" or "-rw-r--r--".
func modeString(e *uar.Entry) string {
	var b [10]byte
	switch e.Kind() {
	case uar.KindDir:
		b[0] = 'd'
	case uar.KindLink:
		b[0] = 'l'
	default:
		b[0] = '-'
	}
	const rwx = "rwxrwxrwx"
	perm := e.Perm()
	for i := 0; i < 9; i++ {
		if perm&(1<<uint(8-i)) != 0 {
			b[i+1] = rwx[i]
		} else {
			b[i+1] = '-'
		}
	}
	return string(b[:])
}
