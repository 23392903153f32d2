package main

import (
	"context"
	"log"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/xerrors"

	"github.com/distr1/uar/pkg/uar"
)

func runCreate(ctx context.Context, archivePath string, targets []string, verbose bool) error {
	var warnings int
	cb := func(sev uar.Severity, path string, err error) {
		if sev == uar.SeverityWarning {
			warnings++
			log.Printf("warning: %s: %v", path, err)
			return
		}
		if verbose {
			log.Printf("archiving: %s", path)
		}
	}

	s, err := uar.NewSpool(cb)
	if err != nil {
		return xerrors.Errorf("new spool: %w", err)
	}
	defer s.Close()

	for _, target := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := "/" + filepath.Base(filepath.Clean(target))
		if err := uar.Ingest(s, target, name); err != nil {
			return xerrors.Errorf("ingest %s: %w", target, err)
		}
	}

	if err := s.Write(archivePath); err != nil {
		return xerrors.Errorf("write %s: %w", archivePath, err)
	}

	if verbose {
		log.Printf("wrote %s (%s)", archivePath, humanize.Bytes(s.DataSize()))
	}
	if warnings > 0 {
		log.Printf("%d entries skipped with warnings", warnings)
	}
	return nil
}
