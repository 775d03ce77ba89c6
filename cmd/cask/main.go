// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cask inspects and repacks chunked container files.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// defaultMagic is "CASK" in little-endian byte order. Containers
// written by other programs carry their own magic; pass it with
// --magic.
const defaultMagic = 0x4b534143

var (
	magic   uint32 = defaultMagic
	version uint32 = ^uint32(0)
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:           "cask",
		Short:         "inspect and repack chunked container files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Uint32Var(&magic, "magic", defaultMagic,
		"expected header magic value")
	root.PersistentFlags().Uint32Var(&version, "version", ^uint32(0),
		"highest payload version to accept")

	root.AddCommand(
		infoCommand(),
		verifyCommand(log),
		unpackCommand(log),
		packCommand(log),
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
