package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// SealedKeyVersion is the current sealed key format version.
	SealedKeyVersion = 1
	// SealedKeyIterations is the PBKDF2 iteration count for new sealed keys.
	SealedKeyIterations = 100000

	sealedSaltSize  = 16
	sealedNonceSize = 12
	sealedTagSize   = 16
	sealedHeader    = 2 + 1 + 4 + sealedSaltSize + sealedNonceSize
)

// ErrWrongPassphrase is returned when a sealed key fails authentication.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key")

// SealPrivateKey encrypts key at rest under a passphrase.
// Format: [version:2][hash:1][iterations:4][salt:16][nonce:12][ciphertext+tag:N]
// The ciphertext is the PKCS#8 DER encoding of key sealed with AES-256-GCM
// under PBKDF2(passphrase, salt).
func SealPrivateKey(key *rsa.PrivateKey, passphrase []byte, t HashType) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrInvalidInput)
	}
	salt, err := randomBytes(sealedSaltSize)
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes(sealedNonceSize)
	if err != nil {
		return nil, err
	}

	gcm, err := sealingAEAD(t, passphrase, salt, SealedKeyIterations)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCryptoFailure, err)
	}
	defer ZeroBytes(der)

	out := make([]byte, sealedHeader, sealedHeader+len(der)+sealedTagSize)
	binary.BigEndian.PutUint16(out[0:2], SealedKeyVersion)
	out[2] = byte(t)
	binary.BigEndian.PutUint32(out[3:7], SealedKeyIterations)
	copy(out[7:7+sealedSaltSize], salt)
	copy(out[7+sealedSaltSize:sealedHeader], nonce)
	return gcm.Seal(out, nonce, der, out[:sealedHeader]), nil
}

// OpenPrivateKey reverses SealPrivateKey. The header is authenticated
// along with the key.
func OpenPrivateKey(data, passphrase []byte) (*rsa.PrivateKey, error) {
	if len(data) < sealedHeader+sealedTagSize {
		return nil, fmt.Errorf("%w: sealed key too short: %d bytes", ErrInvalidInput, len(data))
	}
	if v := binary.BigEndian.Uint16(data[0:2]); v != SealedKeyVersion {
		return nil, fmt.Errorf("%w: unsupported sealed key version %d", ErrInvalidInput, v)
	}
	t := HashType(data[2])
	iterations := int(binary.BigEndian.Uint32(data[3:7]))
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: bad iteration count", ErrInvalidInput)
	}
	salt := data[7 : 7+sealedSaltSize]
	nonce := data[7+sealedSaltSize : sealedHeader]

	gcm, err := sealingAEAD(t, passphrase, salt, iterations)
	if err != nil {
		return nil, err
	}

	der, err := gcm.Open(nil, nonce, data[sealedHeader:], data[:sealedHeader])
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	defer ZeroBytes(der)

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPEM, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", ErrInvalidPEM)
	}
	return key, nil
}

func sealingAEAD(t HashType, passphrase, salt []byte, iterations int) (cipher.AEAD, error) {
	dk, err := PBKDF2(t, passphrase, salt, iterations, KeySize)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(dk)

	block, err := aes.NewCipher(dk)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCryptoFailure, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCryptoFailure, err)
	}
	return gcm, nil
}

// WriteKeyFile writes data to path with owner-only permissions, atomically.
func WriteKeyFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to restrict permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// LoadPrivateKey reads a private key from path. PEM files are parsed
// directly; anything else is treated as a sealed key and opened with
// passphrase.
func LoadPrivateKey(path string, passphrase []byte) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	defer ZeroBytes(data)

	if key, err := ParsePrivateKeyPEM(data); err == nil {
		return key, nil
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: %s is not PEM and no passphrase was given", ErrInvalidPEM, path)
	}
	return OpenPrivateKey(data, passphrase)
}
