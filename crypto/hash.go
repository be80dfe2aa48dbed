package crypto

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// HashType names one of the supported digest algorithms.
type HashType int

// The values are stable: filter snapshots record them as a one-byte tag.
const (
	// SHA1 is SHA-1, 20-byte digests.
	SHA1 HashType = iota + 1
	// SHA2 is SHA-256, 32-byte digests.
	SHA2
	// SHA3 is SHA3-256, 32-byte digests.
	SHA3
	// BLAKE2B is unkeyed BLAKE2b-256, 32-byte digests.
	BLAKE2B
)

var hashNames = map[HashType]string{
	SHA1:    "sha1",
	SHA2:    "sha256",
	SHA3:    "sha3-256",
	BLAKE2B: "blake2b-256",
}

var hashAliases = map[string]HashType{
	"sha1":        SHA1,
	"sha-1":       SHA1,
	"sha2":        SHA2,
	"sha256":      SHA2,
	"sha-256":     SHA2,
	"sha3":        SHA3,
	"sha3-256":    SHA3,
	"blake2b":     BLAKE2B,
	"blake2b-256": BLAKE2B,
}

func (t HashType) String() string {
	if name, ok := hashNames[t]; ok {
		return name
	}
	return fmt.Sprintf("HashType(%d)", int(t))
}

// ParseHashType maps a case-insensitive name such as "sha1", "sha256",
// "sha3" or "blake2b" to its HashType.
func ParseHashType(name string) (HashType, error) {
	if t, ok := hashAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownHashType, name)
}

// Hasher is a resettable digest whose output sizes suit filter keys.
type Hasher interface {
	io.Writer
	Digest() []byte
	HexDigest() string
	Name() string
	DigestSize() int
	Reset()
}

type digest struct {
	name string
	h    hash.Hash
}

func (d *digest) Write(p []byte) (int, error) { return d.h.Write(p) }
func (d *digest) Digest() []byte              { return d.h.Sum(nil) }
func (d *digest) HexDigest() string           { return hex.EncodeToString(d.Digest()) }
func (d *digest) Name() string                { return d.name }
func (d *digest) DigestSize() int             { return d.h.Size() }
func (d *digest) Reset()                      { d.h.Reset() }

// NewSHA1 returns a SHA-1 hasher.
func NewSHA1() Hasher { return &digest{name: hashNames[SHA1], h: sha1.New()} }

// NewSHA2 returns a SHA-256 hasher.
func NewSHA2() Hasher { return &digest{name: hashNames[SHA2], h: sha256.New()} }

// NewSHA3 returns a SHA3-256 hasher.
func NewSHA3() Hasher { return &digest{name: hashNames[SHA3], h: sha3.New256()} }

// NewBLAKE2B returns an unkeyed BLAKE2b-256 hasher.
func NewBLAKE2B() Hasher {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only possible for keys longer than 64 bytes
		panic(err)
	}
	return &digest{name: hashNames[BLAKE2B], h: h}
}

// NewHasher returns a fresh hasher of type t.
func NewHasher(t HashType) (Hasher, error) {
	switch t {
	case SHA1:
		return NewSHA1(), nil
	case SHA2:
		return NewSHA2(), nil
	case SHA3:
		return NewSHA3(), nil
	case BLAKE2B:
		return NewBLAKE2B(), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownHashType, t)
}

// Sum digests data in one call.
func Sum(t HashType, data []byte) ([]byte, error) {
	h, err := NewHasher(t)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Digest(), nil
}

// hashFunc returns the stdlib-style constructor used by PBKDF2.
func hashFunc(t HashType) (func() hash.Hash, error) {
	switch t {
	case SHA1:
		return sha1.New, nil
	case SHA2:
		return sha256.New, nil
	case SHA3:
		return sha3.New256, nil
	case BLAKE2B:
		return func() hash.Hash {
			h, _ := blake2b.New256(nil)
			return h
		}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownHashType, t)
}
