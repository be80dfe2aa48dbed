package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherKnownDigests(t *testing.T) {
	tests := []struct {
		t    HashType
		in   string
		want string
	}{
		{SHA1, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA2, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{SHA3, "", "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"},
		{BLAKE2B, "", "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
		{BLAKE2B, "abc", "bddd813c634239723171ef3fee98579b94964e3bb1cb3e427262c8c068d52319"},
	}
	for _, tt := range tests {
		t.Run(tt.t.String()+"/"+tt.in, func(t *testing.T) {
			h, err := NewHasher(tt.t)
			require.NoError(t, err)
			_, err = h.Write([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.HexDigest())
			assert.Equal(t, len(tt.want)/2, h.DigestSize())

			sum, err := Sum(tt.t, []byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(sum))
		})
	}
}

func TestHasherIncrementalAndReset(t *testing.T) {
	for _, newHasher := range []func() Hasher{NewSHA1, NewSHA2, NewSHA3, NewBLAKE2B} {
		h := newHasher()
		h.Write([]byte("ab"))
		h.Write([]byte("c"))
		split := h.Digest()

		h.Reset()
		h.Write([]byte("abc"))
		assert.Equal(t, split, h.Digest(), h.Name())

		// Digest does not consume state
		assert.Equal(t, split, h.Digest(), h.Name())
	}
}

func TestParseHashType(t *testing.T) {
	cases := map[string]HashType{
		"sha1":        SHA1,
		"SHA-1":       SHA1,
		"sha256":      SHA2,
		"sha2":        SHA2,
		" sha3 ":      SHA3,
		"sha3-256":    SHA3,
		"blake2b":     BLAKE2B,
		"BLAKE2B-256": BLAKE2B,
	}
	for name, want := range cases {
		got, err := ParseHashType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseHashType("md5")
	assert.ErrorIs(t, err, ErrUnknownHashType)
	_, err = NewHasher(HashType(42))
	assert.ErrorIs(t, err, ErrUnknownHashType)
	assert.Equal(t, "HashType(42)", HashType(42).String())
}

func TestHasherNames(t *testing.T) {
	assert.Equal(t, "sha1", NewSHA1().Name())
	assert.Equal(t, "sha256", NewSHA2().Name())
	assert.Equal(t, "sha3-256", NewSHA3().Name())
	assert.Equal(t, "blake2b-256", NewBLAKE2B().Name())
}

func TestHashTypeValuesAndSizes(t *testing.T) {
	tests := []struct {
		ht    HashType
		value int
		size  int
	}{
		{SHA1, 1, 20},
		{SHA2, 2, 32},
		{SHA3, 3, 32},
		{BLAKE2B, 4, 32},
	}
	for _, tt := range tests {
		t.Run(tt.ht.String(), func(t *testing.T) {
			assert.Equal(t, tt.value, int(tt.ht))
			h, err := NewHasher(tt.ht)
			require.NoError(t, err)
			assert.Equal(t, tt.size, h.DigestSize())
		})
	}
}
