package filters

import "errors"

var (
	// ErrInvalidParameter indicates an out-of-range m, k or key length.
	ErrInvalidParameter = errors.New("filters: invalid parameter")

	// ErrInvalidKey indicates a nil or empty key.
	ErrInvalidKey = errors.New("filters: key may not be nil or empty")

	// ErrLengthMismatch indicates a key whose length differs from the
	// length the filter was configured for.
	ErrLengthMismatch = errors.New("filters: key length mismatch")

	// ErrIndexOutOfRange indicates a nibble counter index outside [0, 2^m).
	ErrIndexOutOfRange = errors.New("filters: filter bit index out of range")

	// ErrBadSnapshot indicates a serialized filter that cannot be decoded.
	ErrBadSnapshot = errors.New("filters: malformed snapshot")

	// ErrSnapshotChecksum indicates a serialized filter whose CRC does not match.
	ErrSnapshotChecksum = errors.New("filters: snapshot checksum mismatch")
)
