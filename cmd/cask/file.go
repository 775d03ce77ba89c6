// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ulikunitz/cask"
)

// open opens the container file for reading with the global magic and
// version flags applied.
func open(path string, verify bool) (*cask.Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cask.OpenReader(f, cask.ReaderConfig{
		Magic:        magic,
		Version:      version,
		VerifyDigest: verify,
	})
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "print the header and chunk directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return infoFile(cmd.OutOrStdout(), args[0])
		},
	}
}

func infoFile(w io.Writer, path string) error {
	c, err := open(path, false)
	if err != nil {
		return err
	}
	defer c.Close()
	fmt.Fprintln(w, c.Header())
	for _, warn := range c.Warnings() {
		fmt.Fprintln(w, "warning:", warn)
	}
	for _, e := range c.Entries() {
		fmt.Fprintf(w, "chunk %#010x offset %d length %d\n",
			e.ID, e.Offset, e.Length)
	}
	return nil
}

func verifyCommand(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "verify the payload digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(args[0], true)
			if err != nil {
				return err
			}
			defer c.Close()
			log.WithFields(logrus.Fields{
				"file":   args[0],
				"chunks": len(c.Entries()),
			}).Info("payload digest ok")
			return nil
		},
	}
}

func unpackCommand(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <file> <dir>",
		Short: "write each chunk to <dir>/<id>.bin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := unpackFile(args[0], args[1])
			if err != nil {
				return err
			}
			log.WithField("chunks", n).Info("unpacked")
			return nil
		},
	}
}

func unpackFile(path, dir string) (n int, err error) {
	c, err := open(path, false)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	if err = os.MkdirAll(dir, 0o777); err != nil {
		return 0, err
	}
	for _, e := range c.Entries() {
		p := make([]byte, e.Length)
		_, err = c.Chunk(e.ID, func(s *cask.Stream) error {
			return s.ReadWrite(p)
		})
		if err != nil {
			return n, err
		}
		name := filepath.Join(dir,
			fmt.Sprintf("%08x.bin", e.ID))
		if err = os.WriteFile(name, p, 0o666); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func packCommand(log *logrus.Logger) *cobra.Command {
	var (
		targetVersion uint32
		minVersion    uint32
		method        string
	)
	cmd := &cobra.Command{
		Use:   "pack <out> <dir>",
		Short: "build a container from <dir>/<id>.bin files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMethod(method)
			if err != nil {
				return err
			}
			cfg := cask.WriterConfig{
				Magic:         magic,
				TargetVersion: targetVersion,
				MinVersion:    minVersion,
				Method:        m,
				NoCompression: m == cask.Stored,
			}
			n, err := packFile(args[0], args[1], cfg)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"file":   args[0],
				"chunks": n,
			}).Info("packed")
			return nil
		},
	}
	cmd.Flags().Uint32Var(&targetVersion, "target-version", 0,
		"writer version stored in the header")
	cmd.Flags().Uint32Var(&minVersion, "min-version", 0,
		"minimum reader version stored in the header")
	cmd.Flags().StringVar(&method, "compression", "deflate",
		"payload compression: stored, deflate, zstd or xz")
	return cmd
}

func parseMethod(s string) (cask.Method, error) {
	for _, m := range []cask.Method{
		cask.Stored, cask.Deflate, cask.ZSTD, cask.XZ,
	} {
		if s == m.String() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown compression method %q", s)
}

// packFile builds a container from every <hex-id>.bin file in dir,
// in ascending id order.
func packFile(out, dir string, cfg cask.WriterConfig) (n int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	type chunk struct {
		id   uint32
		path string
	}
	var chunks []chunk
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".bin") {
			continue
		}
		id, err := strconv.ParseUint(
			strings.TrimSuffix(name, ".bin"), 16, 32)
		if err != nil {
			continue
		}
		chunks = append(chunks, chunk{
			id:   uint32(id),
			path: filepath.Join(dir, name),
		})
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].id < chunks[j].id
	})

	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	c, err := cask.NewWriter(f, cfg)
	if err != nil {
		return 0, err
	}
	for _, ch := range chunks {
		p, err := os.ReadFile(ch.path)
		if err != nil {
			return n, err
		}
		_, err = c.Chunk(ch.id, func(s *cask.Stream) error {
			return s.ReadWrite(p)
		})
		if err != nil {
			return n, err
		}
		n++
	}
	if err = c.Close(); err != nil {
		return n, err
	}
	return n, f.Sync()
}
