package uar

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func lstatOrFatal(t *testing.T, path string) os.FileInfo {
	t.Helper()
	fi, err := os.Lstat(path)
	if err != nil {
		t.Fatal(err)
	}
	return fi
}

// S1: empty archive.
func TestEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	archive := filepath.Join(dir, "a.uar")
	if err := s.Write(archive); err != nil {
		t.Fatal(err)
	}

	r, err := Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.EntryCount() != 1 {
		t.Fatalf("EntryCount() = %d, want 1", r.EntryCount())
	}
	entries := r.Entries()
	if len(entries) != 1 || entries[0].Name() != "/" || entries[0].Kind() != KindDir {
		t.Fatalf("entries = %+v, want a single root dir entry", entries)
	}
}

// S2: single file.
func TestSingleFile(t *testing.T) {
	dir := t.TempDir()
	hostFile := filepath.Join(dir, "hello.txt")
	mustWriteFile(t, hostFile, []byte("Hello, world\n"))

	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.AddRegular("/hello.txt", hostFile, lstatOrFatal(t, hostFile)); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(dir, "a.uar")
	if err := s.Write(archive); err != nil {
		t.Fatal(err)
	}

	r, err := Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.EntryCount() != 2 {
		t.Fatalf("EntryCount() = %d, want 2", r.EntryCount())
	}
	if r.DataSize() != 13 {
		t.Fatalf("DataSize() = %d, want 13", r.DataSize())
	}
	if r.Entries()[1].Name() != "/hello.txt" {
		t.Fatalf("entries[1].Name() = %q, want /hello.txt", r.Entries()[1].Name())
	}

	extractDir := t.TempDir()
	if err := r.Extract(extractDir, nil); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(extractDir, "hello.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Hello, world\n" {
		t.Fatalf("extracted content = %q", got)
	}
}

// S3: directory with two files.
func TestDirectoryWithTwoFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "root")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWriteFile(t, filepath.Join(sub, "a.txt"), []byte("A"))
	mustWriteFile(t, filepath.Join(sub, "b.txt"), []byte("BB"))

	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := Ingest(s, sub, "/root"); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(dir, "a.uar")
	if err := s.Write(archive); err != nil {
		t.Fatal(err)
	}

	r, err := Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.DataSize() != 3 {
		t.Fatalf("DataSize() = %d, want 3", r.DataSize())
	}
	var names []string
	var rootSize uint64
	for _, e := range r.Entries() {
		names = append(names, e.Name())
		if e.Name() == "/root" {
			rootSize = e.Size()
		}
	}
	sort.Strings(names)
	want := []string{"/", "/root", "/root/a.txt", "/root/b.txt"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if rootSize != 3 {
		t.Fatalf("/root size = %d, want 3", rootSize)
	}
}

// S4: symlink preservation.
func TestSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	if err := os.Symlink("../outside", link); err != nil {
		t.Fatal(err)
	}

	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.AddSymlink("/link", link, lstatOrFatal(t, link)); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(dir, "a.uar")
	if err := s.Write(archive); err != nil {
		t.Fatal(err)
	}

	r, err := Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	extractDir := t.TempDir()
	if err := r.Extract(extractDir, nil); err != nil {
		t.Fatal(err)
	}
	target, err := os.Readlink(filepath.Join(extractDir, "link"))
	if err != nil {
		t.Fatal(err)
	}
	if target != "../outside" {
		t.Fatalf("Readlink() = %q, want ../outside", target)
	}
}

// S5: leading-dot normalization.
func TestLeadingDotNormalization(t *testing.T) {
	for _, name := range []string{"./foo", "../foo"} {
		var warnings int
		cb := func(sev Severity, path string, err error) {
			if sev == SeverityWarning {
				warnings++
			}
		}
		got, err := normalizeName(name, cb)
		if err != nil {
			t.Fatalf("normalizeName(%q): %v", name, err)
		}
		if got != "/foo" {
			t.Fatalf("normalizeName(%q) = %q, want /foo", name, got)
		}
		if warnings != 1 {
			t.Fatalf("normalizeName(%q) emitted %d warnings, want 1", name, warnings)
		}
	}
}

// S6: magic corruption.
func TestMagicCorruption(t *testing.T) {
	dir := t.TempDir()
	hostFile := filepath.Join(dir, "hello.txt")
	mustWriteFile(t, hostFile, []byte("Hello, world\n"))

	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.AddRegular("/hello.txt", hostFile, lstatOrFatal(t, hostFile)); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(dir, "a.uar")
	if err := s.Write(archive); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(archive)
	if err != nil {
		t.Fatal(err)
	}
	data[0] = 0x00
	corrupted := filepath.Join(dir, "bad.uar")
	mustWriteFile(t, corrupted, data)

	_, err = Open(corrupted)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("Open() error = %v, want InvalidMagic", err)
	}
}

// Property 5: oversized data_size is rejected.
func TestRejectOversizedDataSize(t *testing.T) {
	dir := t.TempDir()
	hostFile := filepath.Join(dir, "hello.txt")
	mustWriteFile(t, hostFile, []byte("Hello, world\n"))

	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.AddRegular("/hello.txt", hostFile, lstatOrFatal(t, hostFile)); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(dir, "a.uar")
	if err := s.Write(archive); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(archive)
	if err != nil {
		t.Fatal(err)
	}
	fileSize := uint64(len(data))
	oversized := fileSize - headerSize + 1
	binary.LittleEndian.PutUint64(data[18:26], oversized)
	corrupted := filepath.Join(dir, "bad.uar")
	mustWriteFile(t, corrupted, data)

	_, err = Open(corrupted)
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("Open() error = %v, want InvalidArchive", err)
	}
}

// Property 6: non-zero flags are rejected.
func TestRejectNonZeroFlags(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	archive := filepath.Join(dir, "a.uar")
	if err := s.Write(archive); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(archive)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint32(data[6:10], 1)
	corrupted := filepath.Join(dir, "bad.uar")
	mustWriteFile(t, corrupted, data)

	_, err = Open(corrupted)
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("Open() error = %v, want InvalidArchive", err)
	}
}

// Property 8: idempotent naming conflicts are detected.
func TestIdempotentNaming(t *testing.T) {
	dir := t.TempDir()
	hostFile := filepath.Join(dir, "hello.txt")
	mustWriteFile(t, hostFile, []byte("x"))
	hostDir := filepath.Join(dir, "d")
	if err := os.Mkdir(hostDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.AddDirectory("/x", hostDir, lstatOrFatal(t, hostDir)); err != nil {
		t.Fatal(err)
	}
	_, err = s.AddRegular("/x", hostFile, lstatOrFatal(t, hostFile))
	var uerr *Error
	if !errors.As(err, &uerr) || uerr.Code != InvalidOperation {
		t.Fatalf("AddRegular over existing dir name: err = %v, want InvalidOperation", err)
	}

	if _, err := s.AddRegular("/y", hostFile, lstatOrFatal(t, hostFile)); err != nil {
		t.Fatal(err)
	}
	_, err = s.AddDirectory("/y", hostDir, lstatOrFatal(t, hostDir))
	if !errors.As(err, &uerr) || uerr.Code != InvalidOperation {
		t.Fatalf("AddDirectory over existing file name: err = %v, want InvalidOperation", err)
	}
}

// Property 1: round-trip fidelity across files, directories and symlinks.
func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tree := filepath.Join(dir, "tree")
	if err := os.MkdirAll(filepath.Join(tree, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	mustWriteFile(t, filepath.Join(tree, "top.txt"), []byte("top"))
	mustWriteFile(t, filepath.Join(tree, "sub", "nested.txt"), []byte("nested contents"))
	if err := os.Chmod(filepath.Join(tree, "top.txt"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("nested.txt", filepath.Join(tree, "sub", "link")); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(filepath.Join(tree, "top.txt"), mtime, mtime); err != nil {
		t.Fatal(err)
	}

	s, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := Ingest(s, tree, "/tree"); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(dir, "a.uar")
	if err := s.Write(archive); err != nil {
		t.Fatal(err)
	}

	r, err := Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	extractDir := t.TempDir()
	if err := r.Extract(extractDir, nil); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(extractDir, "tree", "top.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "top" {
		t.Fatalf("top.txt contents = %q", got)
	}
	fi, err := os.Stat(filepath.Join(extractDir, "tree", "top.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Fatalf("top.txt perm = %v, want 0640", fi.Mode().Perm())
	}
	if !fi.ModTime().Equal(mtime) {
		t.Fatalf("top.txt mtime = %v, want %v", fi.ModTime(), mtime)
	}

	target, err := os.Readlink(filepath.Join(extractDir, "tree", "sub", "link"))
	if err != nil {
		t.Fatal(err)
	}
	if target != "nested.txt" {
		t.Fatalf("link target = %q, want nested.txt", target)
	}
}
