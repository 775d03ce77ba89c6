// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask

import (
	"crypto/sha1"
	"fmt"
	"io"
)

// Lengths of the fixed on-disk records. The header occupies bytes
// [0, headerLen); the chunk directory follows with entryLen bytes per
// chunk; the compressed payload follows the directory.
const (
	headerLen = 64
	entryLen  = 20
)

// Header is the fixed container header. All fields are stored
// little-endian. The eight bytes following the digest are reserved and
// written as zero.
type Header struct {
	// Magic identifies the file kind. The package does not interpret
	// it; the reader compares it against the caller's expected value.
	Magic uint32

	// TargetVersion is the writer's current version.
	TargetVersion uint32

	// MinVersion is the minimum reader version that can understand the
	// payload.
	MinVersion uint32

	// NumChunks counts the entries of the chunk directory.
	NumChunks uint32

	// UncompressedSize is the payload length after decompression.
	UncompressedSize uint64

	// Compression selects the payload compression method.
	Compression Method

	// CompressedSize is the payload length as stored on the stream.
	CompressedSize uint64

	// Digest is the SHA-1 digest over the uncompressed payload.
	Digest [sha1.Size]byte
}

// MarshalBinary generates the 64-byte header record.
func (h *Header) MarshalBinary() (data []byte, err error) {
	data = make([]byte, headerLen)
	putUint32LE(data, h.Magic)
	putUint32LE(data[4:], h.TargetVersion)
	putUint32LE(data[8:], h.MinVersion)
	putUint32LE(data[12:], h.NumChunks)
	putUint64LE(data[16:], h.UncompressedSize)
	putUint32LE(data[24:], uint32(h.Compression))
	putUint64LE(data[28:], h.CompressedSize)
	copy(data[36:56], h.Digest[:])
	// data[56:64] reserved
	return data, nil
}

// UnmarshalBinary reads the header from the provided data slice.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) != headerLen {
		return errWrongHdrLen
	}
	h.Magic = uint32LE(data)
	h.TargetVersion = uint32LE(data[4:])
	h.MinVersion = uint32LE(data[8:])
	h.NumChunks = uint32LE(data[12:])
	h.UncompressedSize = uint64LE(data[16:])
	h.Compression = Method(uint32LE(data[24:]))
	h.CompressedSize = uint64LE(data[28:])
	copy(h.Digest[:], data[36:56])
	return nil
}

// String represents the header in a form suitable for diagnostics.
func (h Header) String() string {
	return fmt.Sprintf(
		"magic %#08x version %d/%d chunks %d payload %d/%d %s sha1 %x",
		h.Magic, h.TargetVersion, h.MinVersion, h.NumChunks,
		h.CompressedSize, h.UncompressedSize, h.Compression,
		h.Digest)
}

// ChunkEntry is one record of the chunk directory. Offset and Length
// address a byte range of the uncompressed payload.
type ChunkEntry struct {
	ID     uint32
	Offset uint64
	Length uint64
}

// MarshalBinary generates the 20-byte directory record.
func (e *ChunkEntry) MarshalBinary() (data []byte, err error) {
	data = make([]byte, entryLen)
	putUint32LE(data, e.ID)
	putUint64LE(data[4:], e.Offset)
	putUint64LE(data[12:], e.Length)
	return data, nil
}

// UnmarshalBinary reads the directory record from the data slice.
func (e *ChunkEntry) UnmarshalBinary(data []byte) error {
	if len(data) != entryLen {
		return errWrongEntryLen
	}
	e.ID = uint32LE(data)
	e.Offset = uint64LE(data[4:])
	e.Length = uint64LE(data[12:])
	return nil
}

// readDirectory reads n chunk entries from r.
func readDirectory(r io.Reader, n int) (dir []ChunkEntry, err error) {
	p := make([]byte, entryLen)
	dir = make([]ChunkEntry, 0, n)
	for i := 0; i < n; i++ {
		if _, err = io.ReadFull(r, p); err != nil {
			return nil, truncated("chunk directory", err)
		}
		var e ChunkEntry
		if err = e.UnmarshalBinary(p); err != nil {
			return nil, err
		}
		dir = append(dir, e)
	}
	return dir, nil
}

// writeDirectory writes the chunk entries to w.
func writeDirectory(w io.Writer, dir []ChunkEntry) (n int, err error) {
	for i := range dir {
		p, err := dir[i].MarshalBinary()
		if err != nil {
			return n, err
		}
		k, err := w.Write(p)
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// truncated maps an end-of-file from the underlying stream to
// ErrTruncated, annotated with the record being read.
func truncated(what string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	return fmt.Errorf("cask: %s: %w", what, err)
}
