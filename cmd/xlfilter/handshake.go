package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/opd-ai/xlcrypto/crypto"
	"github.com/spf13/cobra"
)

var errSaltMismatch = errors.New("server did not echo the client salt")

func newKeygenCmd() *cobra.Command {
	var (
		bits       int
		passphrase string
		kdfHash    string
	)
	cmd := &cobra.Command{
		Use:   "keygen [private-key-file]",
		Short: "Generate an RSA key pair; the public key is written next to it with a .pub suffix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateRSAKey(bits)
			if err != nil {
				return err
			}

			var private []byte
			if passphrase != "" {
				ht, err := crypto.ParseHashType(kdfHash)
				if err != nil {
					return err
				}
				private, err = crypto.SealPrivateKey(key, []byte(passphrase), ht)
				if err != nil {
					return err
				}
			} else {
				private, err = crypto.MarshalPrivateKeyPEM(key)
				if err != nil {
					return err
				}
			}
			defer crypto.ZeroBytes(private)

			public, err := crypto.MarshalPublicKeyPEM(&key.PublicKey)
			if err != nil {
				return err
			}

			if err := crypto.WriteKeyFile(args[0], private); err != nil {
				return err
			}
			if err := crypto.WriteKeyFile(args[0]+".pub", public); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d-bit key to %s and %s.pub\n", bits, args[0], args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", crypto.DefaultRSABits, "RSA modulus size")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "seal the private key under this passphrase instead of writing PEM")
	cmd.Flags().StringVar(&kdfHash, "kdf-hash", "sha256", "PBKDF2 digest used when sealing")
	return cmd
}

func newHandshakeCmd() *cobra.Command {
	var (
		proposed   string
		chosen     string
		passphrase string
	)
	cmd := &cobra.Command{
		Use:   "handshake [private-key-file]",
		Short: "Run both sides of the hello/reply handshake locally against a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := crypto.LoadPrivateKey(args[0], []byte(passphrase))
			if err != nil {
				return err
			}
			clientVersion, err := crypto.ParseDecimalVersion(proposed)
			if err != nil {
				return err
			}
			serverVersion := clientVersion
			if chosen != "" {
				if serverVersion, err = crypto.ParseDecimalVersion(chosen); err != nil {
					return err
				}
			}

			hello, iv1, key1, salt1, err := crypto.ClientEncryptHello(clientVersion.Value(), &priv.PublicKey)
			if err != nil {
				return err
			}
			sIV1, sKey1, sSalt1, gotVersion, err := crypto.ServerDecryptHello(hello, priv)
			if err != nil {
				return err
			}
			iv2, key2, salt2, reply, err := crypto.ServerEncryptHelloReply(sIV1, sKey1, sSalt1, serverVersion.Value())
			if err != nil {
				return err
			}
			server := crypto.NewSession(iv2, key2, salt2, serverVersion.Value())
			defer server.Wipe()
			crypto.ZeroBytes(key2)
			crypto.ZeroBytes(sKey1)

			cIV2, cKey2, cSalt2, echo, gotVersion2, err := crypto.ClientDecryptHelloReply(reply, iv1, key1)
			if err != nil {
				return err
			}
			client := crypto.NewSession(cIV2, cKey2, cSalt2, gotVersion2)
			defer client.Wipe()
			crypto.ZeroBytes(cKey2)
			crypto.ZeroBytes(key1)

			if !bytes.Equal(echo, salt1) {
				return errSaltMismatch
			}
			match := bytes.Equal(client.IV, server.IV) &&
				bytes.Equal(client.Key, server.Key) &&
				bytes.Equal(client.Salt, server.Salt)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hello:    %d bytes, proposed version %s\n", len(hello), crypto.DecimalVersion(gotVersion))
			fmt.Fprintf(out, "reply:    %d bytes, chosen version %s\n", len(reply), client.Version)
			fmt.Fprintf(out, "salt echo verified\n")
			fmt.Fprintf(out, "sessions match: %t\n", match)
			if !match {
				return errors.New("client and server sessions differ")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&proposed, "version", "0.2.1.0", "version the client proposes, as a.b.c.d")
	cmd.Flags().StringVar(&chosen, "server-version", "", "version the server answers with (default: accept the proposal)")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase for a sealed private key")
	return cmd
}
