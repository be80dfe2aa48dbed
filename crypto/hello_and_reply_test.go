package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha1"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

func rsaTestKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = GenerateRSAKey(2048)
	})
	require.NoError(t, testKeyErr)
	return testKey
}

func TestHandshakeEndToEnd(t *testing.T) {
	priv := rsaTestKey(t)

	ct, iv1, key1, salt1, err := ClientEncryptHello(0x01020304, &priv.PublicKey)
	require.NoError(t, err)
	require.Len(t, iv1, IVSize)
	require.Len(t, key1, KeySize)
	require.Len(t, salt1, SaltSize)
	assert.Len(t, ct, priv.Size())

	sIV1, sKey1, sSalt1, version, err := ServerDecryptHello(ct, priv)
	require.NoError(t, err)
	assert.Equal(t, iv1, sIV1)
	assert.Equal(t, key1, sKey1)
	assert.Equal(t, salt1, sSalt1)
	assert.Equal(t, uint32(0x01020304), version)

	iv2, key2, salt2, reply, err := ServerEncryptHelloReply(sIV1, sKey1, sSalt1, 0x05060708)
	require.NoError(t, err)
	assert.Len(t, reply, 80)

	cIV2, cKey2, cSalt2, echo, version2, err := ClientDecryptHelloReply(reply, iv1, key1)
	require.NoError(t, err)
	assert.Equal(t, iv2, cIV2)
	assert.Equal(t, key2, cKey2)
	assert.Equal(t, salt2, cSalt2)
	assert.Equal(t, salt1, echo)
	assert.Equal(t, uint32(0x05060708), version2)
}

func TestHandshakeVersionBytes(t *testing.T) {
	priv := rsaTestKey(t)

	versions := []uint32{0, 1, 0xff, 0x100, 0x80000000, 0xffffffff, uint32(NewDecimalVersion(0, 2, 1, 0))}
	for _, v := range versions {
		ct, iv1, key1, salt1, err := ClientEncryptHello(v, &priv.PublicKey)
		require.NoError(t, err)
		_, _, _, got, err := ServerDecryptHello(ct, priv)
		require.NoError(t, err)
		assert.Equal(t, v, got, "hello version %#x", v)

		_, _, _, reply, err := ServerEncryptHelloReply(iv1, key1, salt1, v)
		require.NoError(t, err)
		_, _, _, _, got2, err := ClientDecryptHelloReply(reply, iv1, key1)
		require.NoError(t, err)
		assert.Equal(t, v, got2, "reply version %#x", v)
	}
}

func TestHandshakeFreshMaterial(t *testing.T) {
	priv := rsaTestKey(t)

	ct1, iv1a, key1a, _, err := ClientEncryptHello(1, &priv.PublicKey)
	require.NoError(t, err)
	ct2, iv1b, key1b, _, err := ClientEncryptHello(1, &priv.PublicKey)
	require.NoError(t, err)

	assert.NotEqual(t, ct1, ct2)
	assert.NotEqual(t, iv1a, iv1b)
	assert.NotEqual(t, key1a, key1b)
}

func encryptCBC(t *testing.T, key, iv, src, dst []byte) {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(dst, src)
}

func decryptCBC(t *testing.T, key, iv, src, dst []byte) {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(dst, src)
}

// deterministic reader: 0, 1, 2, ... wrapping at 256
type countingReader struct{ n byte }

func (r *countingReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.n
		r.n++
	}
	return len(p), nil
}

func TestReplyWithFixedRandomSource(t *testing.T) {
	SetRandomSource(&countingReader{})
	defer SetRandomSource(nil)

	iv1 := bytes.Repeat([]byte{0xa1}, IVSize)
	key1 := bytes.Repeat([]byte{0xb2}, KeySize)
	salt1 := bytes.Repeat([]byte{0xc3}, SaltSize)

	iv2, key2, salt2, reply, err := ServerEncryptHelloReply(iv1, key1, salt1, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, iv2)
	assert.Equal(t, byte(16), key2[0])
	assert.Equal(t, byte(48), salt2[0])

	// the padded plaintext is 80 bytes and ends in twelve 0x0c bytes
	padded := make([]byte, len(reply))
	decryptCBC(t, key1, iv1, reply, padded)
	assert.Equal(t, salt1, padded[56:64])
	assert.Equal(t, []byte{7, 0, 0, 0}, padded[64:68])
	assert.Equal(t, bytes.Repeat([]byte{12}, 12), padded[68:])
}

func TestRandomSourceFailure(t *testing.T) {
	priv := rsaTestKey(t)
	SetRandomSource(bytes.NewReader([]byte{1, 2, 3}))
	defer SetRandomSource(nil)

	_, _, _, _, err := ClientEncryptHello(1, &priv.PublicKey)
	assert.ErrorIs(t, err, ErrCryptoFailure)
}

func TestHandshakeInputValidation(t *testing.T) {
	priv := rsaTestKey(t)
	iv := make([]byte, IVSize)
	key := make([]byte, KeySize)
	salt := make([]byte, SaltSize)

	_, _, _, _, err := ClientEncryptHello(1, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, _, _, err = ServerDecryptHello([]byte{1}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, _, _, err = ServerDecryptHello(nil, priv)
	assert.ErrorIs(t, err, ErrInvalidInput)

	tests := []struct {
		name          string
		iv, key, salt []byte
	}{
		{"short iv", iv[:15], key, salt},
		{"long key", iv, append(key, 0), salt},
		{"aes-128 key", iv, key[:16], salt},
		{"short salt", iv, key, salt[:4]},
		{"nil salt", iv, key, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, _, err := ServerEncryptHelloReply(tt.iv, tt.key, tt.salt, 1)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, _, _, _, _, err = ClientDecryptHelloReply(make([]byte, 80), iv[:8], key)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, _, _, _, err = ClientDecryptHelloReply(make([]byte, 79), iv, key)
	assert.ErrorIs(t, err, ErrMalformedMessage)
	_, _, _, _, _, err = ClientDecryptHelloReply(nil, iv, key)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestServerRejectsTamperedHello(t *testing.T) {
	priv := rsaTestKey(t)
	ct, _, _, _, err := ClientEncryptHello(1, &priv.PublicKey)
	require.NoError(t, err)

	ct[len(ct)/2] ^= 0x01
	_, _, _, _, err = ServerDecryptHello(ct, priv)
	assert.ErrorIs(t, err, ErrCryptoFailure)
	assert.ErrorIs(t, err, rsa.ErrDecryption)
}

func TestServerRejectsWrongLengthHello(t *testing.T) {
	priv := rsaTestKey(t)
	ct, err := rsa.EncryptOAEP(sha1.New(), RandomSource(), &priv.PublicKey, make([]byte, HelloSize-1), nil)
	require.NoError(t, err)

	_, _, _, _, err = ServerDecryptHello(ct, priv)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestClientRejectsReplyUnderWrongKey(t *testing.T) {
	iv1 := bytes.Repeat([]byte{1}, IVSize)
	key1 := bytes.Repeat([]byte{2}, KeySize)
	salt1 := bytes.Repeat([]byte{3}, SaltSize)

	_, _, _, reply, err := ServerEncryptHelloReply(iv1, key1, salt1, 1)
	require.NoError(t, err)

	other := bytes.Repeat([]byte{9}, KeySize)
	_, _, _, _, _, err = ClientDecryptHelloReply(reply, iv1, other)
	// a wrong key almost always breaks the padding; in the rare case it
	// does not, the length check catches it
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCryptoFailure) || errors.Is(err, ErrMalformedMessage), err.Error())
}

func TestClientRejectsShortReply(t *testing.T) {
	iv1 := bytes.Repeat([]byte{1}, IVSize)
	key1 := bytes.Repeat([]byte{2}, KeySize)

	padded, err := AddPKCS7Padding(make([]byte, 40), AESBlockSize)
	require.NoError(t, err)
	ct := make([]byte, len(padded))
	encryptCBC(t, key1, iv1, padded, ct)

	_, _, _, _, _, err = ClientDecryptHelloReply(ct, iv1, key1)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestSessionWipe(t *testing.T) {
	iv := []byte{1, 2, 3}
	s := NewSession(iv, []byte{4, 5}, []byte{6}, uint32(NewDecimalVersion(1, 2, 3, 4)))
	assert.Equal(t, "1.2.3.4", s.Version.String())

	iv[0] = 0xff
	assert.Equal(t, byte(1), s.IV[0], "NewSession must copy its inputs")

	require.NoError(t, s.Wipe())
	assert.Equal(t, []byte{0, 0, 0}, s.IV)
	assert.Equal(t, []byte{0, 0}, s.Key)
	assert.Equal(t, []byte{0}, s.Salt)
	assert.Zero(t, s.Version)

	var nilSession *Session
	assert.Error(t, nilSession.Wipe())
}

func BenchmarkHandshake(b *testing.B) {
	priv := rsaTestKey(b)
	for i := 0; i < b.N; i++ {
		ct, _, _, _, err := ClientEncryptHello(1, &priv.PublicKey)
		if err != nil {
			b.Fatal(err)
		}
		iv1, key1, salt1, _, err := ServerDecryptHello(ct, priv)
		if err != nil {
			b.Fatal(err)
		}
		_, _, _, reply, err := ServerEncryptHelloReply(iv1, key1, salt1, 1)
		if err != nil {
			b.Fatal(err)
		}
		if _, _, _, _, _, err := ClientDecryptHelloReply(reply, iv1, key1); err != nil {
			b.Fatal(err)
		}
	}
}
