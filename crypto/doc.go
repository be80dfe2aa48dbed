// Package crypto implements the hello/reply handshake that bootstraps an
// AES session from an RSA key pair, together with the small primitives it
// and the filters CLI lean on.
//
// # Handshake
//
// The client proposes a version and sends fresh key material under the
// server's RSA public key:
//
//	ct, iv1, key1, salt1, err := crypto.ClientEncryptHello(version, pub)
//
// The server recovers it, picks a version of its own, and answers with new
// material encrypted under the client's key1/iv1:
//
//	iv1, key1, salt1, version, err := crypto.ServerDecryptHello(ct, priv)
//	iv2, key2, salt2, reply, err := crypto.ServerEncryptHelloReply(iv1, key1, salt1, chosen)
//
// The client decrypts the reply and must compare the echoed salt with the one
// it sent before trusting iv2/key2:
//
//	iv2, key2, salt2, echo, version2, err := crypto.ClientDecryptHelloReply(reply, iv1, key1)
//	if !bytes.Equal(echo, salt1) { ... }
//
// Message layouts (little-endian version):
//
//	hello  (60 bytes, RSA-OAEP SHA-1): iv1[16] key1[32] salt1[8] version[4]
//	reply  (68 bytes + PKCS#7 to 80, AES-256-CBC): iv2[16] key2[32] salt2[8] salt1[8] version2[4]
//
// Accepting or rejecting the server's chosen version is up to the caller.
//
// # Supporting primitives
//
//   - PKCS#7 padding: [AddPKCS7Padding], [StripPKCS7Padding]
//   - Digests for filter keys: [NewSHA1], [NewSHA2], [NewSHA3], [NewBLAKE2B]
//   - Key derivation: [PBKDF2]
//   - RSA keys in PEM form: [GenerateRSAKey], [ParsePrivateKeyPEM], [ParsePublicKeyPEM]
//   - Versions: [DecimalVersion]
//
// # Randomness and logging
//
// All random material comes from [RandomSource], crypto/rand by default;
// tests may swap it with [SetRandomSource]. Log output goes through logrus
// at Debug level and only ever carries short previews of key material.
package crypto
