package jinn

import "errors"

// Error taxonomy surfaced to callers of the public operations. Internal
// retries are never attempted; every failure propagates as-is or wrapped
// with %w so errors.Is still matches one of these sentinels.
var (
	ErrBadMagic            = errors.New("jinn: bad magic")
	ErrUnsupportedVersion  = errors.New("jinn: unsupported version")
	ErrCorruptBlock        = errors.New("jinn: corrupt block")
	ErrBlockSizeMismatch   = errors.New("jinn: block size mismatch")
	ErrInvalidArgument     = errors.New("jinn: invalid argument")
	ErrNotFound            = errors.New("jinn: not found")
	ErrClosed              = errors.New("jinn: database closed")
)
