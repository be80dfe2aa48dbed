// Command xlfilter manages Bloom filter snapshots keyed by message digests
// and exercises the hello/reply handshake against an RSA key.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("xlfilter failed")
		os.Exit(1)
	}
}
