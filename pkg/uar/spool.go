package uar

import (
	"io"
	"io/fs"
	"os"
	"syscall"
	"time"
)

// Spool is an in-construction archive: an in-memory entry index plus an
// anonymous temporary data stream holding payload bytes. It has no
// concurrency guard; the core is single-threaded by design (§5).
type Spool struct {
	tmp      *os.File
	dataSize uint64
	entries  []*Entry
	byName   map[string]*Entry
	cb       DiagnosticFunc
	closed   bool
}

// NewSpool creates an empty in-construction archive: an anonymous temporary
// data stream is allocated and the root "/" directory entry is inserted as
// the first record, owned by the current process uid/gid with mode
// 0755|IFDIR and mtime now.
func NewSpool(cb DiagnosticFunc) (*Spool, error) {
	f, err := os.CreateTemp("", "uar-spool-*")
	if err != nil {
		return nil, newErr(SyscallError, "", err)
	}
	// Anonymous semantics: the directory entry is removed immediately, the
	// descriptor stays valid and its backing space is reclaimed when the
	// last reference closes.
	if err := os.Remove(f.Name()); err != nil {
		f.Close()
		return nil, newErr(SyscallError, f.Name(), err)
	}

	s := &Spool{
		tmp:    f,
		cb:     diagnosticOrNoop(cb),
		byName: make(map[string]*Entry),
	}
	root := newDirEntry("/", 0755, time.Now(), uint32(os.Getuid()), uint32(os.Getgid()))
	s.entries = append(s.entries, root)
	s.byName["/"] = root
	return s, nil
}

// Entries returns the current entry index in insertion order. The slice is
// owned by the Spool and must not be mutated.
func (s *Spool) Entries() []*Entry { return s.entries }

// DataSize returns the number of payload bytes appended to the spool so far.
func (s *Spool) DataSize() uint64 { return s.dataSize }

func (s *Spool) checkParentAndFree(name string) error {
	if name == "/" {
		return newErr(InvalidOperation, name, errRootAlreadyExists)
	}
	if _, exists := s.byName[name]; exists {
		return newErr(InvalidOperation, name, errNameCollision)
	}
	parent := parentName(name)
	pe, ok := s.byName[parent]
	if !ok || pe.kind != KindDir {
		return newErr(InvalidOperation, name, errParentMissing)
	}
	return nil
}

// hostMeta extracts the permission bits, modification time and numeric
// owner from an already-lstat'd fs.FileInfo, falling back to the current
// process owner when the platform does not expose *syscall.Stat_t.
func hostMeta(info fs.FileInfo) (perm uint32, mtime time.Time, uid, gid uint32) {
	perm = uint32(info.Mode().Perm())
	mtime = info.ModTime()
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		uid, gid = st.Uid, st.Gid
		return
	}
	uid, gid = uint32(os.Getuid()), uint32(os.Getgid())
	return
}

// AddRegular copies the host file at fsName into the spool under the
// canonical archive name uarName, using info (an lstat result) for
// permissions, mtime and ownership. The entry's recorded size is the number
// of bytes actually read from fsName, never info.Size(), so growth races
// cannot corrupt the data block. A short read discards the partially
// appended bytes and leaves DataSize unchanged.
func (s *Spool) AddRegular(uarName, fsName string, info fs.FileInfo) (*Entry, error) {
	name, err := normalizeName(uarName, s.cb)
	if err != nil {
		s.cb(SeverityWarning, uarName, err)
		return nil, err
	}
	if err := s.checkParentAndFree(name); err != nil {
		s.cb(SeverityWarning, name, err)
		return nil, err
	}

	f, err := os.Open(fsName)
	if err != nil {
		werr := newErr(SyscallError, fsName, err)
		s.cb(SeverityWarning, name, werr)
		return nil, werr
	}
	defer f.Close()

	offset := s.dataSize
	n, err := io.Copy(s.tmp, f)
	if err != nil {
		// Rewind the write cursor to offset regardless of whether Truncate
		// succeeds: a failed Truncate must not leave the cursor stranded
		// past offset, or the next AddRegular would write past a gap and
		// desync the data block from the recorded offsets.
		_, _ = s.tmp.Seek(int64(offset), io.SeekStart)
		_ = s.tmp.Truncate(int64(offset))
		werr := newErr(SyscallError, fsName, err)
		s.cb(SeverityWarning, name, werr)
		return nil, werr
	}
	s.dataSize += uint64(n)

	perm, mtime, uid, gid := hostMeta(info)
	e := newFileEntry(name, perm, mtime, uid, gid, offset, uint64(n))
	s.entries = append(s.entries, e)
	s.byName[name] = e
	s.cb(SeverityNone, name, nil)
	return e, nil
}

// AddDirectory appends a directory entry. It does not recurse; recursion is
// the tree ingester's responsibility (§4.5). The entry's Size starts at zero
// and is typically updated afterward by the ingester via SetDirSize once the
// recursive sum of descendant file sizes is known.
func (s *Spool) AddDirectory(uarName, fsName string, info fs.FileInfo) (*Entry, error) {
	name, err := normalizeName(uarName, s.cb)
	if err != nil {
		s.cb(SeverityWarning, uarName, err)
		return nil, err
	}
	if err := s.checkParentAndFree(name); err != nil {
		s.cb(SeverityWarning, name, err)
		return nil, err
	}
	perm, mtime, uid, gid := hostMeta(info)
	e := newDirEntry(name, perm, mtime, uid, gid)
	s.entries = append(s.entries, e)
	s.byName[name] = e
	s.cb(SeverityNone, name, nil)
	return e, nil
}

// SetDirSize records the recursive sum of descendant regular-file sizes on
// a directory entry previously returned by AddDirectory.
func (s *Spool) SetDirSize(e *Entry, size uint64) {
	e.size = size
}

// AddSymlink reads the link target of fsName verbatim (never resolving it)
// and records it on a new symlink entry.
func (s *Spool) AddSymlink(uarName, fsName string, info fs.FileInfo) (*Entry, error) {
	name, err := normalizeName(uarName, s.cb)
	if err != nil {
		s.cb(SeverityWarning, uarName, err)
		return nil, err
	}
	if err := s.checkParentAndFree(name); err != nil {
		s.cb(SeverityWarning, name, err)
		return nil, err
	}

	target, err := os.Readlink(fsName)
	if err != nil {
		werr := newErr(SyscallError, fsName, err)
		s.cb(SeverityWarning, name, werr)
		return nil, werr
	}
	if len(target) == 0 || len(target) > PathMax {
		werr := newErr(InvalidPath, name, errPathTooLong)
		s.cb(SeverityWarning, name, werr)
		return nil, werr
	}

	perm, mtime, uid, gid := hostMeta(info)
	e := newLinkEntry(name, perm, mtime, uid, gid, target)
	s.entries = append(s.entries, e)
	s.byName[name] = e
	s.cb(SeverityNone, name, nil)
	return e, nil
}

// Close releases the temporary spool file. It is safe to call after Write,
// and safe to call more than once.
func (s *Spool) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tmp.Close()
}
