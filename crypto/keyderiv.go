package crypto

import (
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultPBKDF2Iterations is used when PBKDF2 is called with iterations <= 0.
const DefaultPBKDF2Iterations = 10000

// PBKDF2 derives dkLen bytes from passwd and salt using HMAC over the given
// hash type. A non-positive dkLen selects the digest size.
func PBKDF2(t HashType, passwd, salt []byte, iterations, dkLen int) ([]byte, error) {
	if len(passwd) == 0 {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidInput)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrInvalidInput)
	}
	h, err := hashFunc(t)
	if err != nil {
		return nil, err
	}
	if iterations <= 0 {
		iterations = DefaultPBKDF2Iterations
	}
	if dkLen <= 0 {
		dkLen = h().Size()
	}

	NewLogger("PBKDF2").
		WithField("hash", t.String()).
		WithField("iterations", iterations).
		WithField("key_len", dkLen).
		Debug("deriving key")
	return pbkdf2.Key(passwd, salt, iterations, dkLen, h), nil
}
