package sfnt

import "errors"

var (
	// ErrMalformed reports font data that violates the sfnt structure.
	ErrMalformed = errors.New("sfnt: malformed font data")
	// ErrMissingTable reports that a required table is absent.
	ErrMissingTable = errors.New("sfnt: missing required table")
	// ErrUnsupported reports a valid but unsupported font flavour (CFF outlines, collections).
	ErrUnsupported = errors.New("sfnt: unsupported font format")
	// ErrChecksum reports a table whose stored checksum does not match its contents.
	ErrChecksum = errors.New("sfnt: table checksum mismatch")
)
