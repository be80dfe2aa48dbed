package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
)

var (
	randMu     sync.RWMutex
	randSource io.Reader = rand.Reader
)

// SetRandomSource replaces the reader that supplies IVs, keys and salts.
// Pass nil to reset to crypto/rand. Intended for deterministic tests.
func SetRandomSource(r io.Reader) {
	if r == nil {
		r = rand.Reader
	}
	randMu.Lock()
	randSource = r
	randMu.Unlock()
}

// RandomSource returns the reader currently used for random material.
func RandomSource() io.Reader {
	randMu.RLock()
	defer randMu.RUnlock()
	return randSource
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(RandomSource(), buf); err != nil {
		return nil, fmt.Errorf("%w: reading %d random bytes: %w", ErrCryptoFailure, n, err)
	}
	return buf, nil
}
