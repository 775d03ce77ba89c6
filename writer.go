// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask

import (
	"crypto/sha1"
	"errors"
	"io"
)

// WriterConfig defines the parameters for creating a container for
// writing.
type WriterConfig struct {
	// Magic is stored in the header magic field.
	Magic uint32

	// TargetVersion is the writer's current version.
	TargetVersion uint32

	// MinVersion is the minimum reader version that can understand the
	// payload.
	MinVersion uint32

	// Method selects the payload compression. The zero value selects
	// Deflate; use NoCompression to store the payload raw.
	Method Method

	// NoCompression forces the Stored method.
	NoCompression bool
}

// ApplyDefaults replaces the zero method with Deflate unless
// NoCompression is set.
func (cfg *WriterConfig) ApplyDefaults() {
	if cfg.NoCompression {
		cfg.Method = Stored
	} else if cfg.Method == Stored {
		cfg.Method = Deflate
	}
}

// Verify checks the writer parameters for validity. It doesn't replace
// zero values; ApplyDefaults does that.
func (cfg *WriterConfig) Verify() error {
	if cfg == nil {
		return errors.New("cask: writer parameters are nil")
	}
	if err := cfg.Method.verify(); err != nil {
		return err
	}
	return nil
}

// NewWriter creates a container for writing. Chunks accumulate in
// memory; nothing is written to w before Close. The writer borrows w
// and must not outlive it. If Close is never called no output is
// produced and w is left untouched.
func NewWriter(w io.Writer, cfg WriterConfig) (c *Container, err error) {
	cfg.ApplyDefaults()
	if err = cfg.Verify(); err != nil {
		return nil, err
	}
	c = &Container{
		mode: Writing,
		out:  w,
		hdr: Header{
			Magic:         cfg.Magic,
			TargetVersion: cfg.TargetVersion,
			MinVersion:    cfg.MinVersion,
			Compression:   cfg.Method,
		},
	}
	return c, nil
}

// finalize completes the header, compresses the payload and emits
// header, directory and payload. A failing compressor downgrades the
// container to the Stored method instead of aborting; an I/O error is
// reported as FinalizationError and leaves the underlying stream in an
// undefined state.
func (c *Container) finalize() error {
	data := c.buf.bytes()
	c.hdr.UncompressedSize = uint64(len(data))
	c.hdr.NumChunks = uint32(len(c.dir))
	c.hdr.Digest = sha1.Sum(data)

	payload := data
	if c.hdr.Compression != Stored {
		z, err := compressors[c.hdr.Compression].deflate(data)
		if err != nil {
			c.hdr.Compression = Stored
		} else {
			payload = z
		}
	}
	c.hdr.CompressedSize = uint64(len(payload))

	p, err := c.hdr.MarshalBinary()
	if err != nil {
		return &FinalizationError{Err: err}
	}
	if _, err = c.out.Write(p); err != nil {
		return &FinalizationError{Err: err}
	}
	if _, err = writeDirectory(c.out, c.dir); err != nil {
		return &FinalizationError{Err: err}
	}
	if _, err = c.out.Write(payload); err != nil {
		return &FinalizationError{Err: err}
	}
	return nil
}
