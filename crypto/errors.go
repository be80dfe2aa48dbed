package crypto

import "errors"

var (
	// ErrInvalidInput is returned for nil keys and for IVs, keys or salts
	// of the wrong length.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedMessage is returned when a decrypted handshake message
	// does not have the expected layout.
	ErrMalformedMessage = errors.New("malformed handshake message")
	// ErrCryptoFailure wraps failures of the underlying ciphers and of the
	// random source.
	ErrCryptoFailure = errors.New("cryptographic operation failed")

	ErrInvalidBlockSize = errors.New("invalid padding block size")
	ErrEmptyInput       = errors.New("empty input")
	ErrPadding          = errors.New("incorrect padding")

	ErrUnknownHashType = errors.New("unknown hash type")
	ErrInvalidPEM      = errors.New("invalid PEM data")
	ErrInvalidVersion  = errors.New("invalid decimal version")
)
