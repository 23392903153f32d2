// Package uar implements the UAR (Universal Archive) format: a small,
// uncompressed container for a tree of regular files, directories and
// symbolic links, with streaming creation and streaming extraction.
//
// An archive is built incrementally with a Spool: AddRegular, AddDirectory
// and AddSymlink append entries and, for regular files, payload bytes to a
// private temporary spool file, which Write then streams to the final
// destination. Ingest drives a Spool from a host filesystem tree. An
// existing archive is opened for inspection with Open, which returns a
// Reader whose entry index can be walked with Iterate and whose contents
// can be materialized under a destination directory with Extract.
//
// The format intentionally omits compression, encryption, hard-link
// deduplication and extended attributes; see the CLI in cmd/uar for a
// worked end-to-end user of this package.
package uar
