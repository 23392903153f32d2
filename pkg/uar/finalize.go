package uar

import (
	"io"

	"github.com/google/renameio"
	"github.com/orcaman/writerseeker"
)

// finalizeChunkSize bounds the size of each read from the temporary spool
// while streaming the data block to the destination (§4.6 step 4).
const finalizeChunkSize = 1 << 20 // 1 MiB

// Write emits the archive to filename: header, then the entry index (each
// record immediately followed by its name and, for links, its target
// bytes), then the spooled data block streamed in chunks of at most 1 MiB.
// The destination is replaced atomically via a renamed temporary file, the
// way the teacher's initrd and package-install paths do, so a crash or a
// write failure midway never leaves a half-written file visible at
// filename; on failure the temporary file is discarded and filename is left
// untouched.
func (s *Spool) Write(filename string) error {
	// Assemble the header and entry index in memory first, the way
	// internal/squashfs's Writer builds its inode and directory tables in a
	// buffer before a single Flush, rather than interleaving small writes
	// with the destination's atomic-rename machinery.
	var idx writerseeker.WriterSeeker

	h := header{
		Magic:      magic,
		Version:    CurrentVersion,
		Flags:      0,
		EntryCount: uint64(len(s.entries)),
		DataSize:   s.dataSize,
	}
	if _, err := idx.Write(h.marshal()); err != nil {
		return newErr(SyscallError, filename, err)
	}

	for _, e := range s.entries {
		r := entryToRecord(e)
		if _, err := idx.Write(r.marshal()); err != nil {
			return newErr(SyscallError, filename, err)
		}
		if _, err := io.WriteString(&idx, e.name); err != nil {
			return newErr(SyscallError, filename, err)
		}
		if e.kind == KindLink {
			if _, err := io.WriteString(&idx, e.linkTarget); err != nil {
				return newErr(SyscallError, filename, err)
			}
		}
	}

	out, err := renameio.TempFile("", filename)
	if err != nil {
		return newErr(SyscallError, filename, err)
	}
	defer out.Cleanup()

	if _, err := io.Copy(out, idx.Reader()); err != nil {
		return newErr(SyscallError, filename, err)
	}

	if _, err := s.tmp.Seek(0, io.SeekStart); err != nil {
		return newErr(SyscallError, filename, err)
	}
	if err := copyInChunks(out, s.tmp, s.dataSize, finalizeChunkSize); err != nil {
		return newErr(SyscallError, filename, err)
	}

	if err := out.CloseAtomicallyReplace(); err != nil {
		return newErr(SyscallError, filename, err)
	}
	return nil
}

func copyInChunks(dst io.Writer, src io.Reader, total uint64, chunk int64) error {
	remaining := int64(total)
	for remaining > 0 {
		n := chunk
		if remaining < n {
			n = remaining
		}
		written, err := io.CopyN(dst, src, n)
		remaining -= written
		if err != nil {
			return err
		}
	}
	return nil
}
