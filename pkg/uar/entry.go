package uar

import (
	"time"

	"golang.org/x/sys/unix"
)

// Kind distinguishes the three entry variants an archive can hold.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// typeBits returns the POSIX type bits a mode must carry for this kind.
func (k Kind) typeBits() uint32 {
	switch k {
	case KindDir:
		return unix.S_IFDIR
	case KindLink:
		return unix.S_IFLNK
	default:
		return unix.S_IFREG
	}
}

// Entry is the in-memory representation of one archive record, shared by
// regular files, directories and symbolic links. Name and Kind are fixed at
// construction; Mode, ModTime, UID and GID may be changed afterwards.
// Offset, Size and LinkTarget are populated by the spool writer or the
// reader and are not meant to be mutated by callers.
type Entry struct {
	kind Kind
	name string

	mode uint32
	mtim int64
	uid  uint32
	gid  uint32

	offset uint64
	size   uint64

	linkTarget string
}

func newEntry(kind Kind, name string, perm uint32, mtime time.Time, uid, gid uint32) *Entry {
	return &Entry{
		kind: kind,
		name: name,
		mode: (perm & 07777) | kind.typeBits(),
		mtim: mtime.Unix(),
		uid:  uid,
		gid:  gid,
	}
}

func newFileEntry(name string, perm uint32, mtime time.Time, uid, gid uint32, offset, size uint64) *Entry {
	e := newEntry(KindFile, name, perm, mtime, uid, gid)
	e.offset = offset
	e.size = size
	return e
}

func newDirEntry(name string, perm uint32, mtime time.Time, uid, gid uint32) *Entry {
	return newEntry(KindDir, name, perm, mtime, uid, gid)
}

func newLinkEntry(name string, perm uint32, mtime time.Time, uid, gid uint32, target string) *Entry {
	e := newEntry(KindLink, name, perm, mtime, uid, gid)
	e.linkTarget = target
	return e
}

// Name returns the entry's canonical archive path.
func (e *Entry) Name() string { return e.name }

// Kind returns whether this is a regular file, directory or symlink entry.
func (e *Entry) Kind() Kind { return e.kind }

// Mode returns the full POSIX mode, including type bits.
func (e *Entry) Mode() uint32 { return e.mode }

// Perm returns just the permission bits (mode & 07777).
func (e *Entry) Perm() uint32 { return e.mode & 07777 }

// SetMode updates the permission bits, leaving the type bits untouched.
func (e *Entry) SetMode(perm uint32) { e.mode = (perm & 07777) | e.kind.typeBits() }

// ModTime returns the entry's recorded modification time.
func (e *Entry) ModTime() time.Time { return time.Unix(e.mtim, 0) }

// SetModTime updates the entry's recorded modification time.
func (e *Entry) SetModTime(t time.Time) { e.mtim = t.Unix() }

// UID returns the entry's recorded numeric owner.
func (e *Entry) UID() uint32 { return e.uid }

// GID returns the entry's recorded numeric group.
func (e *Entry) GID() uint32 { return e.gid }

// SetOwner updates the entry's recorded numeric owner and group.
func (e *Entry) SetOwner(uid, gid uint32) { e.uid, e.gid = uid, gid }

// Offset returns the byte offset into the data block for a regular file;
// zero for directories and links.
func (e *Entry) Offset() uint64 { return e.offset }

// Size returns the payload size for a regular file, the recursive sum of
// descendant file sizes for a directory, or zero for a link.
func (e *Entry) Size() uint64 { return e.size }

// LinkTarget returns the verbatim symlink target; empty for non-links.
func (e *Entry) LinkTarget() string { return e.linkTarget }
