// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask_test

import (
	"bytes"
	"fmt"
	"log"

	"github.com/ulikunitz/cask"
)

// Example shows the bidirectional codec pattern: the same function
// serializes a chunk when the container writes and deserializes it
// when the container reads.
func Example() {
	const magic = 0x4b534143
	const settingsChunk = 0x01

	type settings struct {
		Name    string
		Volume  uint8
		Recents []string
	}

	codec := func(v *settings) func(*cask.Stream) error {
		return func(s *cask.Stream) error {
			if err := s.String(&v.Name); err != nil {
				return err
			}
			if err := cask.Number(s, &v.Volume); err != nil {
				return err
			}
			return cask.Vector(s, &v.Recents,
				func(s *cask.Stream, r *string) error {
					return s.String(r)
				})
		}
	}

	var buf bytes.Buffer
	w, err := cask.NewWriter(&buf, cask.WriterConfig{Magic: magic})
	if err != nil {
		log.Fatal(err)
	}
	out := settings{
		Name:    "default",
		Volume:  11,
		Recents: []string{"a.park", "b.park"},
	}
	if _, err = w.Chunk(settingsChunk, codec(&out)); err != nil {
		log.Fatal(err)
	}
	if err = w.Close(); err != nil {
		log.Fatal(err)
	}

	r, err := cask.OpenReader(bytes.NewReader(buf.Bytes()),
		cask.ReaderConfig{Magic: magic, VerifyDigest: true})
	if err != nil {
		log.Fatal(err)
	}
	var in settings
	ok, err := r.Chunk(settingsChunk, codec(&in))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(ok, in.Name, in.Volume, in.Recents)
	// Output: true default 11 [a.park b.park]
}
