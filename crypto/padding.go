package crypto

import (
	"bytes"
	"fmt"
)

// AESBlockSize is the block size used for handshake reply padding.
const AESBlockSize = 16

func checkBlockSize(blockSize int) error {
	if blockSize < 2 || blockSize > 255 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	return nil
}

// PKCS7Padding returns the padding that follows dataLen bytes of data:
// r bytes of value r, where r is in [1, blockSize].
func PKCS7Padding(dataLen, blockSize int) ([]byte, error) {
	if err := checkBlockSize(blockSize); err != nil {
		return nil, err
	}
	if dataLen < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrInvalidInput, dataLen)
	}
	r := blockSize - dataLen%blockSize
	return bytes.Repeat([]byte{byte(r)}, r), nil
}

// AddPKCS7Padding returns a copy of data padded to a multiple of blockSize.
// Empty input yields one full block of padding.
func AddPKCS7Padding(data []byte, blockSize int) ([]byte, error) {
	pad, err := PKCS7Padding(len(data), blockSize)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data)+len(pad))
	out = append(out, data...)
	return append(out, pad...), nil
}

// StripPKCS7Padding validates and removes the padding from data. The
// result aliases data.
func StripPKCS7Padding(data []byte, blockSize int) ([]byte, error) {
	if err := checkBlockSize(blockSize); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrPadding, len(data), blockSize)
	}

	r := int(data[len(data)-1])
	switch {
	case r == 0:
		return nil, fmt.Errorf("%w: zero pad length", ErrPadding)
	case r > blockSize || r > len(data):
		return nil, fmt.Errorf("%w: pad length %d", ErrPadding, r)
	}
	for _, b := range data[len(data)-r:] {
		if int(b) != r {
			return nil, fmt.Errorf("%w: inconsistent pad bytes", ErrPadding)
		}
	}
	return data[:len(data)-r], nil
}
