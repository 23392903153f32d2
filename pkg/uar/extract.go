package uar

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// extractChunkSize bounds each read from the archive's data block while
// copying a regular file's payload to its destination (§4.8 step 2).
const extractChunkSize = 1 << 10 // 1 KiB

// Extract materializes every entry of r under destDir, which must already
// exist. Entries are processed in index order; creation failures (an
// unreachable destination, a directory or file that cannot be created, a
// seek failure on the archive stream) are structural and abort extraction
// immediately. Failures applying mtime or ownership are local: they are
// reported through cb with SeverityWarning and extraction continues.
func (r *Reader) Extract(destDir string, cb ExtractCallback) error {
	cb = diagnosticOrNoop(cb)

	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		return newErr(SyscallError, destDir, err)
	}
	fi, err := os.Stat(destAbs)
	if err != nil {
		return newErr(SyscallError, destDir, err)
	}
	if !fi.IsDir() {
		return newErr(InvalidArgument, destDir, errDestNotDir)
	}

	for _, e := range r.entries {
		if err := r.extractEntry(destAbs, e, cb); err != nil {
			return err
		}
	}

	// A directory's mtime is bumped by the kernel every time a child is
	// created inside it, so applying metadata to a directory during the pass
	// above would have it clobbered by its own children moments later.
	// Restore directory metadata in a second pass, once every entry — and so
	// every directory's last child — has already been materialized.
	for _, e := range r.entries {
		if e.kind != KindDir {
			continue
		}
		dest := destPath(destAbs, e)
		if err := applyMetadata(dest, e); err != nil {
			cb(SeverityWarning, e.name, err)
		} else {
			cb(SeverityNone, e.name, nil)
		}
	}
	return nil
}

// destPath computes dest + strip_leading_dot_prefix(entry.name); entry
// names are already canonical (no ".", "..", or empty components), so this
// reduces to stripping the single leading "/".
func destPath(destAbs string, e *Entry) string {
	rel := strings.TrimPrefix(e.name, "/")
	if rel == "" {
		return destAbs
	}
	return filepath.Join(destAbs, rel)
}

func (r *Reader) extractEntry(destAbs string, e *Entry, cb ExtractCallback) error {
	dest := destPath(destAbs, e)
	if !isWithin(destAbs, dest) {
		return newErr(InvalidArchive, e.name, errPathEscape)
	}

	switch e.kind {
	case KindDir:
		if e.name != "/" {
			if err := os.Mkdir(dest, os.FileMode(e.Perm())); err != nil && !os.IsExist(err) {
				return newErr(SyscallError, dest, err)
			}
		}
		// Metadata for directories is applied in Extract's second pass, after
		// every entry has been created; see the comment there.
		return nil
	case KindFile:
		if err := r.extractFile(dest, e); err != nil {
			return err
		}
	case KindLink:
		if err := os.Symlink(e.linkTarget, dest); err != nil {
			return newErr(SyscallError, dest, err)
		}
	}

	if err := applyMetadata(dest, e); err != nil {
		cb(SeverityWarning, e.name, err)
	} else {
		cb(SeverityNone, e.name, nil)
	}
	return nil
}

func (r *Reader) extractFile(dest string, e *Entry) error {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return newErr(SyscallError, dest, err)
	}
	defer out.Close()

	if _, err := r.f.Seek(r.dataBlockOffset+int64(e.offset), io.SeekStart); err != nil {
		return newErr(SyscallError, dest, err)
	}
	if err := copyInChunks(out, r.f, e.size, extractChunkSize); err != nil {
		return newErr(SyscallError, dest, err)
	}
	if err := out.Chmod(os.FileMode(e.Perm())); err != nil {
		return newErr(SyscallError, dest, err)
	}
	return nil
}

// applyMetadata restores mtime (access time is set to now, per §4.8 step 3)
// and numeric ownership on the materialized path, using symlink-aware
// syscalls so a symlink's own metadata is touched rather than its target's.
func applyMetadata(dest string, e *Entry) error {
	atime := unix.NsecToTimespec(time.Now().UnixNano())
	mtime := unix.NsecToTimespec(e.ModTime().UnixNano())
	times := []unix.Timespec{atime, mtime}

	var first error
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, dest, times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		first = err
	}
	if err := unix.Lchown(dest, int(e.uid), int(e.gid)); err != nil && first == nil {
		first = err
	}
	if first == nil {
		return nil
	}
	return newErr(SyscallError, dest, first)
}
