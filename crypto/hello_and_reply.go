package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
)

// Field sizes of the hello and reply messages.
const (
	IVSize      = aes.BlockSize
	KeySize     = 32
	SaltSize    = 8
	VersionSize = 4

	// HelloSize is the length of the RSA-OAEP plaintext: iv1 key1 salt1 version.
	HelloSize = IVSize + KeySize + SaltSize + VersionSize
	// ReplySize is the length of the reply before padding:
	// iv2 key2 salt2 salt1 version2.
	ReplySize = IVSize + KeySize + SaltSize + SaltSize + VersionSize
)

// ClientEncryptHello draws a fresh iv1, key1 and salt1, appends the proposed
// version little-endian, and encrypts the 60-byte result with RSA-OAEP
// (SHA-1 for hash and MGF1, no label). The plaintext components are returned
// so the client can check the server's echo later.
func ClientEncryptHello(version uint32, pub *rsa.PublicKey) (ciphertext, iv1, key1, salt1 []byte, err error) {
	logger := NewLogger("ClientEncryptHello")
	if pub == nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: nil public key", ErrInvalidInput)
	}

	if iv1, err = randomBytes(IVSize); err != nil {
		return nil, nil, nil, nil, err
	}
	if key1, err = randomBytes(KeySize); err != nil {
		return nil, nil, nil, nil, err
	}
	if salt1, err = randomBytes(SaltSize); err != nil {
		return nil, nil, nil, nil, err
	}

	msg := make([]byte, 0, HelloSize)
	msg = append(msg, iv1...)
	msg = append(msg, key1...)
	msg = append(msg, salt1...)
	msg = binary.LittleEndian.AppendUint32(msg, version)
	defer ZeroBytes(msg)

	ciphertext, err = rsa.EncryptOAEP(sha1.New(), RandomSource(), pub, msg, nil)
	if err != nil {
		logger.WithError(err, "rsa", "encrypt_oaep").Debug("hello encryption failed")
		return nil, nil, nil, nil, fmt.Errorf("%w: hello: %w", ErrCryptoFailure, err)
	}

	logger.WithFields(SecureFieldHash(salt1, "salt1")).
		WithField("version", DecimalVersion(version).String()).
		WithField("ciphertext_size", len(ciphertext)).
		Debug("hello encrypted")
	return ciphertext, iv1, key1, salt1, nil
}

// ServerDecryptHello reverses ClientEncryptHello with the server's private
// key and splits the plaintext at its fixed offsets.
func ServerDecryptHello(ciphertext []byte, priv *rsa.PrivateKey) (iv1, key1, salt1 []byte, version uint32, err error) {
	logger := NewLogger("ServerDecryptHello")
	if priv == nil {
		return nil, nil, nil, 0, fmt.Errorf("%w: nil private key", ErrInvalidInput)
	}
	if len(ciphertext) == 0 {
		return nil, nil, nil, 0, fmt.Errorf("%w: empty ciphertext", ErrInvalidInput)
	}

	msg, err := rsa.DecryptOAEP(sha1.New(), nil, priv, ciphertext, nil)
	if err != nil {
		logger.WithError(err, "rsa", "decrypt_oaep").Debug("hello decryption failed")
		return nil, nil, nil, 0, fmt.Errorf("%w: hello: %w", ErrCryptoFailure, err)
	}
	defer ZeroBytes(msg)
	if len(msg) != HelloSize {
		return nil, nil, nil, 0, fmt.Errorf("%w: hello is %d bytes, want %d", ErrMalformedMessage, len(msg), HelloSize)
	}

	iv1 = clone(msg[0:16])
	key1 = clone(msg[16:48])
	salt1 = clone(msg[48:56])
	v := msg[56:60]
	version = uint32(v[0]) + uint32(v[1])<<8 + uint32(v[2])<<16 + uint32(v[3])<<24

	logger.WithFields(SecureFieldHash(salt1, "salt1")).
		WithField("version", DecimalVersion(version).String()).
		Debug("hello decrypted")
	return iv1, key1, salt1, version, nil
}

// ServerEncryptHelloReply draws the server's iv2, key2 and salt2 and sends
// them back with salt1 echoed and the chosen version, AES-256-CBC encrypted
// under key1/iv1 after PKCS#7 padding.
func ServerEncryptHelloReply(iv1, key1, salt1 []byte, version2 uint32) (iv2, key2, salt2, ciphertext []byte, err error) {
	logger := NewLogger("ServerEncryptHelloReply")
	if err = checkSizes(iv1, key1); err != nil {
		return nil, nil, nil, nil, err
	}
	if len(salt1) != SaltSize {
		return nil, nil, nil, nil, fmt.Errorf("%w: salt1 is %d bytes, want %d", ErrInvalidInput, len(salt1), SaltSize)
	}

	if iv2, err = randomBytes(IVSize); err != nil {
		return nil, nil, nil, nil, err
	}
	if key2, err = randomBytes(KeySize); err != nil {
		return nil, nil, nil, nil, err
	}
	if salt2, err = randomBytes(SaltSize); err != nil {
		return nil, nil, nil, nil, err
	}

	reply := make([]byte, 0, ReplySize)
	reply = append(reply, iv2...)
	reply = append(reply, key2...)
	reply = append(reply, salt2...)
	reply = append(reply, salt1...)
	reply = binary.LittleEndian.AppendUint32(reply, version2)
	defer ZeroBytes(reply)

	padded, err := AddPKCS7Padding(reply, aes.BlockSize)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	defer ZeroBytes(padded)

	block, err := aes.NewCipher(key1)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: reply: %w", ErrCryptoFailure, err)
	}
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv1).CryptBlocks(ciphertext, padded)

	logger.WithFields(SecureFieldHash(salt2, "salt2")).
		WithField("version", DecimalVersion(version2).String()).
		WithField("ciphertext_size", len(ciphertext)).
		Debug("reply encrypted")
	return iv2, key2, salt2, ciphertext, nil
}

// ClientDecryptHelloReply decrypts the server's reply with key1/iv1 and
// returns the server's session material together with the echoed salt1.
// Comparing that echo with the salt1 sent in the hello is left to the caller.
func ClientDecryptHelloReply(ciphertext, iv1, key1 []byte) (iv2, key2, salt2, salt1 []byte, version2 uint32, err error) {
	logger := NewLogger("ClientDecryptHelloReply")
	if err = checkSizes(iv1, key1); err != nil {
		return nil, nil, nil, nil, 0, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, nil, nil, nil, 0, fmt.Errorf("%w: reply ciphertext is %d bytes", ErrMalformedMessage, len(ciphertext))
	}

	block, err := aes.NewCipher(key1)
	if err != nil {
		return nil, nil, nil, nil, 0, fmt.Errorf("%w: reply: %w", ErrCryptoFailure, err)
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv1).CryptBlocks(padded, ciphertext)
	defer ZeroBytes(padded)

	msg, err := StripPKCS7Padding(padded, aes.BlockSize)
	if err != nil {
		logger.WithError(err, "padding", "strip").Debug("reply padding rejected")
		return nil, nil, nil, nil, 0, fmt.Errorf("%w: reply: %w", ErrCryptoFailure, err)
	}
	if len(msg) != ReplySize {
		return nil, nil, nil, nil, 0, fmt.Errorf("%w: reply is %d bytes, want %d", ErrMalformedMessage, len(msg), ReplySize)
	}

	iv2 = clone(msg[0:16])
	key2 = clone(msg[16:48])
	salt2 = clone(msg[48:56])
	salt1 = clone(msg[56:64])
	v := msg[64:68]
	version2 = uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16 | uint32(v[3])<<24

	logger.WithFields(SecureFieldHash(salt2, "salt2")).
		WithField("version", DecimalVersion(version2).String()).
		Debug("reply decrypted")
	return iv2, key2, salt2, salt1, version2, nil
}

func checkSizes(iv, key []byte) error {
	if len(iv) != IVSize {
		return fmt.Errorf("%w: iv is %d bytes, want %d", ErrInvalidInput, len(iv), IVSize)
	}
	if len(key) != KeySize {
		return fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidInput, len(key), KeySize)
	}
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
