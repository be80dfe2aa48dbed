package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureWipe(t *testing.T) {
	key, err := randomBytes(KeySize)
	require.NoError(t, err)
	require.NotEqual(t, make([]byte, KeySize), key, "random key is all zeros, test cannot proceed")

	require.NoError(t, SecureWipe(key))
	assert.Equal(t, make([]byte, KeySize), key)

	assert.Error(t, SecureWipe(nil))
	assert.NoError(t, SecureWipe([]byte{}))
}

func TestZeroBytes(t *testing.T) {
	data := []byte{1, 2, 3}
	ZeroBytes(data)
	assert.Equal(t, []byte{0, 0, 0}, data)

	assert.NotPanics(t, func() { ZeroBytes(nil) })
}

func TestWipeAll(t *testing.T) {
	a := []byte{1}
	b := []byte{2, 3}
	wipeAll(a, nil, b)
	assert.Equal(t, []byte{0}, a)
	assert.Equal(t, []byte{0, 0}, b)
}
