// Package xlcrypto is the root of a small library of probabilistic set
// membership and handshake primitives.
//
// The work is split across subpackages:
//
//   - filters: Bloom filters over fixed-length digest keys, a counting
//     variant built on 4-bit saturating counters, and checksummed snapshots
//   - crypto: the hello/reply handshake that derives an AES session from an
//     RSA key pair, plus padding, digests, PBKDF2 and PEM helpers
//
// The xlfilter command under cmd/ drives both from the shell.
package xlcrypto
