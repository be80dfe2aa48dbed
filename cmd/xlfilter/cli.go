package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/opd-ai/xlcrypto"
	"github.com/opd-ai/xlcrypto/crypto"
	"github.com/opd-ai/xlcrypto/filters"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	errNotCounting  = errors.New("filter does not support removal")
	errHashMismatch = errors.New("--hash differs from the digest the filter was built with")
)

// keyFilter is the part of Filter and CountingFilter the commands share.
type keyFilter interface {
	M() uint
	K() uint
	KeyBytes() int
	Capacity() uint64
	Len() uint64
	Insert(key []byte) error
	IsMember(key []byte) (bool, error)
	FalsePositives(n uint64) float64
	KeyHash() uint8
	SetKeyHash(id uint8)
	WriteFile(path string) error
}

type globalFlags struct {
	logLevel string
	hash     string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "xlfilter",
		Short:         "Maintain Bloom filter snapshots and test the hello/reply handshake",
		Version:       xlcrypto.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(g.logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "logrus level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.hash, "hash", "sha1", "digest used to turn DATA into keys (sha1, sha256, sha3, blake2b)")

	rootCmd.AddCommand(
		newNewCmd(g),
		newAddCmd(g),
		newCheckCmd(g),
		newRemoveCmd(g),
		newInfoCmd(),
		newKeygenCmd(),
		newHandshakeCmd(),
	)
	return rootCmd
}

func newNewCmd(g *globalFlags) *cobra.Command {
	var (
		m, k     uint
		keyBytes int
		counting bool
	)
	cmd := &cobra.Command{
		Use:   "new [file]",
		Short: "Create an empty filter snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ht, err := crypto.ParseHashType(g.hash)
			if err != nil {
				return err
			}
			if keyBytes == 0 {
				h, err := crypto.NewHasher(ht)
				if err != nil {
					return err
				}
				keyBytes = h.DigestSize()
			}
			opts := &filters.Options{M: m, K: k, KeyBytes: keyBytes}

			var f keyFilter
			if counting {
				f, err = filters.NewCountingFromOptions(opts)
			} else {
				f, err = filters.NewFromOptions(opts)
			}
			if err != nil {
				return err
			}
			f.SetKeyHash(uint8(ht))
			if err := f.WriteFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s: m=%d k=%d key-bytes=%d hash=%s\n", args[0], f.M(), f.K(), f.KeyBytes(), ht)
			return nil
		},
	}
	cmd.Flags().UintVar(&m, "m", filters.DefaultM, "size exponent, the filter holds 2^m bits")
	cmd.Flags().UintVar(&k, "k", filters.DefaultK, "bits set per key")
	cmd.Flags().IntVar(&keyBytes, "key-bytes", 0, "key length in bytes (default: digest size of --hash)")
	cmd.Flags().BoolVar(&counting, "counting", false, "create a counting filter that supports removal")
	return cmd
}

func newAddCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add [file] [data...]",
		Short: "Insert the digest of each DATA argument",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFilter(args[0])
			if err != nil {
				return err
			}
			ht, err := resolveHash(cmd, g, f)
			if err != nil {
				return err
			}
			for _, data := range args[1:] {
				key, err := digestKey(ht, data, f.KeyBytes())
				if err != nil {
					return err
				}
				if err := f.Insert(key); err != nil {
					return err
				}
			}
			if err := f.WriteFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d, %d insertions total\n", len(args)-1, f.Len())
			return nil
		},
	}
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check [file] [data...]",
		Short: "Report whether each DATA argument is probably a member",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFilter(args[0])
			if err != nil {
				return err
			}
			ht, err := resolveHash(cmd, g, f)
			if err != nil {
				return err
			}
			for _, data := range args[1:] {
				key, err := digestKey(ht, data, f.KeyBytes())
				if err != nil {
					return err
				}
				ok, err := f.IsMember(key)
				if err != nil {
					return err
				}
				state := "absent"
				if ok {
					state = "present"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", state, data)
			}
			return nil
		},
	}
}

func newRemoveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [file] [data...]",
		Short: "Remove the digest of each DATA argument from a counting filter",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFilter(args[0])
			if err != nil {
				return err
			}
			cf, ok := f.(*filters.CountingFilter)
			if !ok {
				return fmt.Errorf("%w: %s is a plain filter", errNotCounting, args[0])
			}
			ht, err := resolveHash(cmd, g, cf)
			if err != nil {
				return err
			}
			for _, data := range args[1:] {
				key, err := digestKey(ht, data, cf.KeyBytes())
				if err != nil {
					return err
				}
				if err := cf.Remove(key); err != nil {
					return err
				}
			}
			if err := cf.WriteFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d, %d insertions remain\n", len(args)-1, cf.Len())
			return nil
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Print a snapshot's parameters and estimated false positive rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFilter(args[0])
			if err != nil {
				return err
			}
			kind := filters.KindFilter
			if _, ok := f.(*filters.CountingFilter); ok {
				kind = filters.KindCounting
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kind:       %s\n", kind)
			fmt.Fprintf(out, "m:          %d\n", f.M())
			fmt.Fprintf(out, "k:          %d\n", f.K())
			fmt.Fprintf(out, "key bytes:  %d\n", f.KeyBytes())
			if id := f.KeyHash(); id != 0 {
				fmt.Fprintf(out, "key hash:   %s\n", crypto.HashType(id))
			} else {
				fmt.Fprintf(out, "key hash:   unrecorded\n")
			}
			fmt.Fprintf(out, "capacity:   %d bits\n", f.Capacity())
			fmt.Fprintf(out, "insertions: %d\n", f.Len())
			fmt.Fprintf(out, "fp rate:    %.6g\n", f.FalsePositives(0))
			return nil
		},
	}
}

// openFilter loads either kind of snapshot.
func openFilter(path string) (keyFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter: %w", err)
	}
	switch filters.KindOf(data) {
	case filters.KindFilter:
		f := &filters.Filter{}
		if err := f.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return f, nil
	case filters.KindCounting:
		cf := &filters.CountingFilter{}
		if err := cf.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return cf, nil
	}
	return nil, fmt.Errorf("%w: %s is not a filter snapshot", filters.ErrBadSnapshot, path)
}

// resolveHash picks the digest for DATA arguments. A hash recorded in the
// snapshot wins over the --hash default; an explicit --hash must agree with it.
func resolveHash(cmd *cobra.Command, g *globalFlags, f keyFilter) (crypto.HashType, error) {
	flagHash, err := crypto.ParseHashType(g.hash)
	if err != nil {
		return 0, err
	}
	stored := crypto.HashType(f.KeyHash())
	if stored == 0 {
		return flagHash, nil
	}
	if cmd.Flags().Changed("hash") && flagHash != stored {
		return 0, fmt.Errorf("%w: filter uses %s, --hash is %s", errHashMismatch, stored, flagHash)
	}
	return stored, nil
}

// digestKey hashes data and keeps the leading keyBytes bytes of the digest.
func digestKey(ht crypto.HashType, data string, keyBytes int) ([]byte, error) {
	sum, err := crypto.Sum(ht, []byte(data))
	if err != nil {
		return nil, err
	}
	if len(sum) < keyBytes {
		return nil, fmt.Errorf("%w: %s digest is %d bytes but the filter expects %d",
			filters.ErrLengthMismatch, ht, len(sum), keyBytes)
	}
	return sum[:keyBytes], nil
}
