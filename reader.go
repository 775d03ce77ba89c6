// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
)

// ReaderConfig defines the parameters for opening a container for
// reading.
type ReaderConfig struct {
	// Magic is the value the header magic field must carry.
	Magic uint32

	// Version is the highest payload version the caller understands.
	// Opening fails with a VersionError if the header's MinVersion
	// exceeds it.
	Version uint32

	// VerifyDigest requests SHA-1 verification of the inflated
	// payload. Verification is opt-in; a mismatch fails with
	// ErrIntegrity.
	VerifyDigest bool

	// Strict controls the policy when the inflated payload length
	// differs from the UncompressedSize header field. By default the
	// reader proceeds with the actually-inflated bytes and records a
	// warning retrievable through Warnings. With Strict set the
	// condition fails with ErrSizeMismatch.
	Strict bool
}

// Verify checks the reader parameters for validity.
func (cfg *ReaderConfig) Verify() error {
	if cfg == nil {
		return errors.New("cask: reader parameters are nil")
	}
	return nil
}

// payloadBlockSize is the block size for draining the stored payload
// from the underlying stream.
const payloadBlockSize = 2048

// OpenReader opens a container for reading. It parses the header,
// loads the chunk directory, drains the stored payload from r and
// inflates it. The reader borrows r only until OpenReader returns;
// afterwards all chunk access works on the in-memory payload.
func OpenReader(r io.Reader, cfg ReaderConfig) (c *Container, err error) {
	if err = cfg.Verify(); err != nil {
		return nil, err
	}

	p := make([]byte, headerLen)
	if _, err = io.ReadFull(r, p); err != nil {
		return nil, truncated("header", err)
	}
	var hdr Header
	if err = hdr.UnmarshalBinary(p); err != nil {
		return nil, err
	}
	if hdr.Magic != cfg.Magic {
		return nil, &MagicError{Got: hdr.Magic, Want: cfg.Magic}
	}
	if hdr.MinVersion > cfg.Version {
		return nil, &VersionError{
			Min:       hdr.MinVersion,
			Supported: cfg.Version,
		}
	}
	if err = hdr.Compression.verify(); err != nil {
		return nil, err
	}

	dir, err := readDirectory(r, int(hdr.NumChunks))
	if err != nil {
		return nil, err
	}

	raw, err := readPayload(r, hdr.CompressedSize)
	if err != nil {
		return nil, err
	}

	c = &Container{mode: Reading, hdr: hdr, dir: dir}

	data := raw
	if hdr.Compression != Stored {
		data, err = compressors[hdr.Compression].inflate(
			raw, hdr.UncompressedSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInflate, err)
		}
	}
	if uint64(len(data)) != hdr.UncompressedSize {
		if cfg.Strict {
			return nil, fmt.Errorf(
				"%w: got %d bytes; header declares %d",
				ErrSizeMismatch, len(data),
				hdr.UncompressedSize)
		}
		c.warnings = append(c.warnings, fmt.Errorf(
			"%w: got %d bytes; header declares %d",
			ErrSizeMismatch, len(data), hdr.UncompressedSize))
	}
	c.buf.data = data

	for _, e := range dir {
		end := e.Offset + e.Length
		if end < e.Offset || end > uint64(len(data)) {
			return nil, fmt.Errorf(
				"cask: chunk %#x extends past payload end",
				e.ID)
		}
	}

	if cfg.VerifyDigest {
		if sha1.Sum(data) != hdr.Digest {
			return nil, ErrIntegrity
		}
	}

	return c, nil
}

// readPayload drains exactly n stored payload bytes from r in blocks.
// A short read fails with ErrTruncated.
func readPayload(r io.Reader, n uint64) ([]byte, error) {
	var data []byte
	p := make([]byte, payloadBlockSize)
	for n > 0 {
		k := uint64(len(p))
		if k > n {
			k = n
		}
		if _, err := io.ReadFull(r, p[:k]); err != nil {
			return nil, truncated("payload", err)
		}
		data = append(data, p[:k]...)
		n -= k
	}
	return data, nil
}
