package uar

import (
	"io"
	"os"
	"strings"
)

// Reader is an in-inspection archive: a retained, read-only file stream plus
// a fully parsed entry index. The payload is not memory-mapped; it is
// streamed lazily by the extractor.
type Reader struct {
	f               *os.File
	fileSize        int64
	entryCount      uint64
	dataSize        uint64
	entries         []*Entry
	dataBlockOffset int64
}

// Open validates and parses the archive at filename, per §4.3 (header) and
// §4.7 (entry index). The returned Reader owns filename's file descriptor
// until Close is called.
func Open(filename string) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, newErr(SyscallError, filename, err)
	}

	r, err := parseArchive(f, filename)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func parseArchive(f *os.File, filename string) (*Reader, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, newErr(SyscallError, filename, err)
	}
	fileSize := fi.Size()

	hdrBuf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, hdrBuf); err != nil {
		return nil, newErr(InvalidArchive, filename, err)
	}
	h, err := unmarshalHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	if h.Magic != magic {
		return nil, newErr(InvalidMagic, filename, nil)
	}
	if h.Version > MaxSupportedVersion {
		return nil, newErr(UnsupportedVersion, filename, nil)
	}
	if h.Flags != 0 {
		return nil, newErr(InvalidArchive, filename, errNonZeroFlags)
	}

	remaining := fileSize - headerSize
	if remaining < 0 || h.DataSize > uint64(remaining) {
		return nil, newErr(InvalidArchive, filename, errDataSizeExceedsFile)
	}
	indexBudget := uint64(remaining) - h.DataSize
	// Divide rather than multiply: EntryCount*recordSize overflows uint64 for
	// a crafted EntryCount (recordSize=56 is 7*2^3, so e.g. 1<<61 times 56 is
	// 7*2^64, which wraps to 0 and would pass a multiplication check). EntryCount is also untrusted
	// input, so it must never be used as a slice/make capacity hint directly.
	if h.EntryCount > indexBudget/recordSize {
		return nil, newErr(InvalidArchive, filename, errIndexOverflow)
	}

	entries := make([]*Entry, 0, indexBudget/recordSize)
	var consumed uint64
	for i := uint64(0); i < h.EntryCount; i++ {
		e, n, err := parseEntry(f, filename, indexBudget-consumed)
		if err != nil {
			return nil, err
		}
		consumed += n
		entries = append(entries, e)
	}

	if len(entries) == 0 || entries[0].name != "/" || entries[0].kind != KindDir {
		return nil, newErr(InvalidArchive, filename, errMissingRoot)
	}

	return &Reader{
		f:               f,
		fileSize:        fileSize,
		entryCount:      h.EntryCount,
		dataSize:        h.DataSize,
		entries:         entries,
		dataBlockOffset: headerSize + int64(consumed),
	}, nil
}

// parseEntry reads one on-disk record plus its trailing name (and, for
// links, target) bytes, enforcing the length bounds of §4.7. budget is the
// number of index bytes remaining before the data block begins.
func parseEntry(f *os.File, filename string, budget uint64) (*Entry, uint64, error) {
	if recordSize > budget {
		return nil, 0, newErr(InvalidArchive, filename, errIndexOverflow)
	}
	recBuf := make([]byte, recordSize)
	if _, err := io.ReadFull(f, recBuf); err != nil {
		return nil, 0, newErr(InvalidArchive, filename, err)
	}
	rec, err := unmarshalRecord(recBuf)
	if err != nil {
		return nil, 0, err
	}
	consumed := uint64(recordSize)

	if rec.NameLen < 1 || rec.NameLen > PathMax {
		return nil, 0, newErr(InvalidArchive, filename, errNameLenOutOfRange)
	}
	if consumed+rec.NameLen > budget {
		return nil, 0, newErr(InvalidArchive, filename, errIndexOverflow)
	}
	nameBuf := make([]byte, rec.NameLen)
	if _, err := io.ReadFull(f, nameBuf); err != nil {
		return nil, 0, newErr(InvalidArchive, filename, err)
	}
	consumed += rec.NameLen

	name := string(nameBuf)
	if err := validateCanonicalName(name); err != nil {
		return nil, 0, newErr(InvalidArchive, filename, err)
	}

	kind, err := recordTypeToKind(rec.Type)
	if err != nil {
		return nil, 0, newErr(InvalidArchive, filename, err)
	}

	e := &Entry{
		kind: kind,
		name: name,
		mode: rec.Mode,
		mtim: rec.Mtime,
		uid:  rec.UID,
		gid:  rec.GID,
	}

	switch kind {
	case KindLink:
		linkLen := rec.SizeOrLinkLen
		if linkLen < 1 || linkLen > PathMax {
			return nil, 0, newErr(InvalidArchive, filename, errNameLenOutOfRange)
		}
		if consumed+linkLen > budget {
			return nil, 0, newErr(InvalidArchive, filename, errIndexOverflow)
		}
		linkBuf := make([]byte, linkLen)
		if _, err := io.ReadFull(f, linkBuf); err != nil {
			return nil, 0, newErr(InvalidArchive, filename, err)
		}
		consumed += linkLen
		e.linkTarget = string(linkBuf)
	case KindFile:
		e.offset = rec.Offset
		e.size = rec.SizeOrLinkLen
	case KindDir:
		e.size = rec.SizeOrLinkLen
	}

	return e, consumed, nil
}

// Entries returns the parsed entry index in on-disk order. The slice is
// owned by the Reader and must not be mutated.
func (r *Reader) Entries() []*Entry { return r.entries }

// EntryCount returns the header's entry_count field.
func (r *Reader) EntryCount() uint64 { return r.entryCount }

// DataSize returns the header's data_size field.
func (r *Reader) DataSize() uint64 { return r.dataSize }

// DataBlockOffset returns the byte offset in the file at which the
// contiguous payload area begins.
func (r *Reader) DataBlockOffset() int64 { return r.dataBlockOffset }

// Iterate invokes fn once per entry in index order. Returning false from fn
// stops iteration cleanly; it is not reported as an error.
func (r *Reader) Iterate(fn func(*Entry) bool) {
	for _, e := range r.entries {
		if !fn(e) {
			return
		}
	}
}

// Close releases the underlying file descriptor.
func (r *Reader) Close() error {
	return r.f.Close()
}
