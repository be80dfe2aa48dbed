package filters

import "fmt"

const (
	// MinM is the smallest accepted filter size exponent.
	MinM = 2
	// MinK is the smallest accepted number of selectors per key.
	MinK = 1
	// MaxM bounds the filter allocation to 2^32 bits (512 MiB).
	MaxM = 32

	// DefaultM gives a filter of 2^20 bits.
	DefaultM = 20
	// DefaultK is the default number of selectors per key.
	DefaultK = 8
	// DefaultKeyBytes is the length of a SHA-1 digest.
	DefaultKeyBytes = 20
)

// Options holds the construction parameters shared by Filter and
// CountingFilter.
type Options struct {
	// M is the size exponent: the filter holds 2^M bits.
	M uint
	// K is the number of bit positions set or tested per key.
	K uint
	// KeyBytes is the fixed length of accepted keys.
	KeyBytes int
}

// NewOptions returns options sized for 20-byte (SHA-1) keys.
func NewOptions() *Options {
	return &Options{
		M:        DefaultM,
		K:        DefaultK,
		KeyBytes: DefaultKeyBytes,
	}
}

// Validate reports whether the options can build a filter. It does not
// reduce K; that adjustment happens in New.
func (o *Options) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: nil options", ErrInvalidParameter)
	}
	if o.M < MinM {
		return fmt.Errorf("%w: m = %d but must be >= %d", ErrInvalidParameter, o.M, MinM)
	}
	if o.M > MaxM {
		return fmt.Errorf("%w: m = %d exceeds maximum %d", ErrInvalidParameter, o.M, MaxM)
	}
	if o.K < MinK {
		return fmt.Errorf("%w: k = %d but must be >= %d", ErrInvalidParameter, o.K, MinK)
	}
	if o.KeyBytes <= 0 {
		return fmt.Errorf("%w: key length must be positive, got %d", ErrInvalidParameter, o.KeyBytes)
	}
	return nil
}

// effectiveK returns k reduced so that k*m fits in the key's bit length.
func effectiveK(m, k uint, keyBytes int) uint {
	keyBits := uint(keyBytes) * 8
	if k*m > keyBits {
		return keyBits / m
	}
	return k
}
