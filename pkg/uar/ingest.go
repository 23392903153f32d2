package uar

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Ingest walks the host filesystem tree rooted at hostPath and adds it to s
// under the canonical archive name archiveName, recursing into
// subdirectories and preserving symbolic links rather than following them.
//
// Failure to stat hostPath itself is returned to the caller; failures
// encountered while walking descendants are local (§4.5): a warning is
// emitted through the diagnostics callback and the offending child is
// skipped without aborting the rest of the tree.
func Ingest(s *Spool, hostPath, archiveName string) error {
	size, err := ingestNode(s, hostPath, archiveName, true)
	if err != nil {
		return err
	}
	// Roll the ingested tree's regular-file bytes up into the root directory
	// entry too: it is never passed to AddDirectory/SetDirSize itself, since
	// NewSpool creates it before any ingestion happens.
	root := s.byName["/"]
	s.SetDirSize(root, root.size+size)
	return nil
}

func ingestNode(s *Spool, hostPath, archiveName string, top bool) (size uint64, err error) {
	info, lerr := os.Lstat(hostPath)
	if lerr != nil {
		wrapped := newErr(SyscallError, hostPath, lerr)
		if top {
			return 0, wrapped
		}
		s.cb(SeverityWarning, archiveName, wrapped)
		return 0, nil
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		if _, err := s.AddSymlink(archiveName, hostPath, info); err != nil {
			return 0, nil
		}
		return 0, nil

	case info.IsDir():
		e, err := s.AddDirectory(archiveName, hostPath, info)
		if err != nil {
			return 0, nil
		}
		total, derr := ingestChildren(s, hostPath, archiveName)
		if derr != nil {
			s.cb(SeverityWarning, archiveName, derr)
		}
		s.SetDirSize(e, total)
		return total, nil

	case info.Mode().IsRegular():
		e, err := s.AddRegular(archiveName, hostPath, info)
		if err != nil {
			return 0, nil
		}
		return e.Size(), nil

	default:
		s.cb(SeverityWarning, archiveName, newErr(InvalidFile, hostPath, errUnsupportedType))
		return 0, nil
	}
}

func ingestChildren(s *Spool, hostDir, archiveDir string) (uint64, error) {
	f, err := os.Open(hostDir)
	if err != nil {
		return 0, newErr(SyscallError, hostDir, err)
	}
	defer f.Close()

	// File.ReadDir (the method, unlike the os.ReadDir package function)
	// returns entries in the order the host directory enumeration produced
	// them, without sorting, matching §4.5's ordering contract. "." and
	// ".." are never present among its results.
	children, err := f.ReadDir(-1)
	if err != nil {
		return 0, newErr(SyscallError, hostDir, err)
	}

	var total uint64
	for _, ch := range children {
		name := ch.Name()
		childArchiveName, jerr := join(archiveDir, name)
		if jerr != nil {
			s.cb(SeverityWarning, archiveDir+"/"+name, jerr)
			continue
		}
		childHostPath := filepath.Join(hostDir, name)
		sz, _ := ingestNode(s, childHostPath, childArchiveName, false)
		total += sz
	}
	return total, nil
}
