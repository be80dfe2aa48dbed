package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe attempts to securely erase the contents of a byte slice
// containing sensitive data. It returns an error if the byte slice is nil.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}

	zeros := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, zeros)
	copy(data, zeros)

	runtime.KeepAlive(data)
	runtime.KeepAlive(zeros)

	return nil
}

// ZeroBytes erases the contents of a byte slice, ignoring nil.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// wipeAll zeroes every non-nil buffer.
func wipeAll(bufs ...[]byte) {
	for _, b := range bufs {
		if b != nil {
			ZeroBytes(b)
		}
	}
}

// Session is the secret material one side of the handshake settles on:
// the server-chosen IV, AES key and salt plus the negotiated version.
type Session struct {
	IV      []byte
	Key     []byte
	Salt    []byte
	Version DecimalVersion
}

// NewSession copies iv, key and salt into a fresh Session.
func NewSession(iv, key, salt []byte, version uint32) *Session {
	return &Session{
		IV:      append([]byte(nil), iv...),
		Key:     append([]byte(nil), key...),
		Salt:    append([]byte(nil), salt...),
		Version: DecimalVersion(version),
	}
}

// Wipe zeroes the session's secrets. The Session must not be used afterwards.
func (s *Session) Wipe() error {
	if s == nil {
		return errors.New("cannot wipe nil Session")
	}
	wipeAll(s.IV, s.Key, s.Salt)
	s.Version = 0
	return nil
}
