package uar

import (
	"bytes"
	"encoding/binary"
)

// MaxSupportedVersion is the highest archive format version this package
// reads. Writers always emit CurrentVersion.
const (
	CurrentVersion      = 1
	MaxSupportedVersion = 1
	headerSize          = 26
	recordSize          = 56
)

// magic is the literal four-byte signature every archive begins with.
var magic = [4]byte{0x99, 'U', 'A', 'R'}

// header is the fixed 26-byte archive header, laid out in field order with
// no padding: encoding/binary writes each field by its own encoded width,
// so the struct's Go field order is also its wire order.
type header struct {
	Magic      [4]byte
	Version    uint16
	Flags      uint32
	EntryCount uint64
	DataSize   uint64
}

func (h header) marshal() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(headerSize)
	// Errors are impossible: buf is an in-memory bytes.Buffer and h is a
	// fixed-size value.
	_ = binary.Write(buf, binary.LittleEndian, h)
	return buf.Bytes()
}

func unmarshalHeader(b []byte) (header, error) {
	var h header
	if len(b) < headerSize {
		return h, newErr(InvalidArchive, "", errShortRead)
	}
	if err := binary.Read(bytes.NewReader(b[:headerSize]), binary.LittleEndian, &h); err != nil {
		return h, newErr(InvalidArchive, "", err)
	}
	return h, nil
}

// recordType is the on-disk encoding of Kind (§6: 0 = file, 1 = dir, 2 = link).
type recordType uint32

const (
	recordTypeFile recordType = 0
	recordTypeDir  recordType = 1
	recordTypeLink recordType = 2
)

func kindToRecordType(k Kind) recordType {
	switch k {
	case KindDir:
		return recordTypeDir
	case KindLink:
		return recordTypeLink
	default:
		return recordTypeFile
	}
}

func recordTypeToKind(t recordType) (Kind, error) {
	switch t {
	case recordTypeFile:
		return KindFile, nil
	case recordTypeDir:
		return KindDir, nil
	case recordTypeLink:
		return KindLink, nil
	default:
		return 0, newErr(InvalidArchive, "", errInvalidRecordType)
	}
}

// record is the fixed 56-byte on-disk entry record, immediately followed in
// the file by NameLen bytes of name and, for links, SizeOrLinkLen bytes of
// target.
type record struct {
	Type          recordType
	NameLen       uint64
	Offset        uint64
	SizeOrLinkLen uint64
	Extra         uint64
	Mode          uint32
	Mtime         int64
	UID           uint32
	GID           uint32
}

func (r record) marshal() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(recordSize)
	_ = binary.Write(buf, binary.LittleEndian, r)
	return buf.Bytes()
}

func unmarshalRecord(b []byte) (record, error) {
	var r record
	if len(b) < recordSize {
		return r, newErr(InvalidArchive, "", errShortRead)
	}
	if err := binary.Read(bytes.NewReader(b[:recordSize]), binary.LittleEndian, &r); err != nil {
		return r, newErr(InvalidArchive, "", err)
	}
	return r, nil
}

func entryToRecord(e *Entry) record {
	r := record{
		Type:    kindToRecordType(e.kind),
		NameLen: uint64(len(e.name)),
		Mode:    e.mode,
		Mtime:   e.mtim,
		UID:     e.uid,
		GID:     e.gid,
	}
	switch e.kind {
	case KindFile:
		r.Offset = e.offset
		r.SizeOrLinkLen = e.size
	case KindDir:
		r.SizeOrLinkLen = e.size
	case KindLink:
		r.SizeOrLinkLen = uint64(len(e.linkTarget))
		r.Extra = r.SizeOrLinkLen
	}
	return r
}
