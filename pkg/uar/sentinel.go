package uar

import "errors"

// Plain sentinel causes wrapped by *Error values across the package. These
// are deliberately unexported: callers compare against the Code, not the
// cause.
var (
	errEmptyName          = errors.New("empty name")
	errInvalidComponent   = errors.New("path contains an empty, \".\", or \"..\" component")
	errPathTooLong        = errors.New("path exceeds PATH_MAX")
	errLeadingDotStripped = errors.New("leading \"./\" or \"../\" stripped")
	errNameCollision      = errors.New("name already used by an entry of a different kind")
	errUnsupportedType    = errors.New("unsupported host file type")
	errShortRead          = errors.New("buffer shorter than the fixed header or record size")
	errInvalidRecordType  = errors.New("unrecognized entry record type")
	errParentMissing      = errors.New("parent directory has not been added yet")
	errRootAlreadyExists  = errors.New("the root entry already exists")
	errNonZeroFlags       = errors.New("reserved flags field is non-zero")
	errDataSizeExceedsFile = errors.New("data_size exceeds the bytes available in the file")
	errIndexOverflow      = errors.New("entry index exceeds the bytes available before the data block")
	errNameLenOutOfRange  = errors.New("name or link target length outside [1, PATH_MAX]")
	errDestNotDir         = errors.New("destination is not a directory")
	errPathEscape         = errors.New("entry name escapes the destination root")
	errMissingRoot        = errors.New("archive is missing its root directory entry")
)
