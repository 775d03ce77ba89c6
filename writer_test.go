// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask

import (
	"bytes"
	"errors"
	"testing"
)

type failCodec struct{}

func (failCodec) deflate(p []byte) ([]byte, error) {
	return nil, errors.New("deflate refused")
}

func (failCodec) inflate(p []byte, sizeHint uint64) ([]byte, error) {
	return nil, errors.New("inflate refused")
}

// TestDeflateFallback checks that a failing compressor downgrades the
// container to the Stored method instead of aborting finalization.
func TestDeflateFallback(t *testing.T) {
	const m = Method(250)
	compressors[m] = failCodec{}
	defer delete(compressors, m)

	var buf bytes.Buffer
	c, err := NewWriter(&buf, WriterConfig{Magic: 1, Method: m})
	if err != nil {
		t.Fatalf("NewWriter error %s", err)
	}
	_, err = c.Chunk(1, func(s *Stream) error {
		return Put(s, uint32(0xcafe))
	})
	if err != nil {
		t.Fatalf("Chunk error %s", err)
	}
	if err = c.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()),
		ReaderConfig{Magic: 1, VerifyDigest: true})
	if err != nil {
		t.Fatalf("OpenReader error %s", err)
	}
	if r.Header().Compression != Stored {
		t.Fatalf("compression is %s; want %s",
			r.Header().Compression, Stored)
	}
	var v uint32
	if _, err = r.Chunk(1, func(s *Stream) error {
		return Number(s, &v)
	}); err != nil {
		t.Fatalf("Chunk error %s", err)
	}
	if v != 0xcafe {
		t.Fatalf("read %#x; want %#x", v, 0xcafe)
	}
}

// errWriter fails after n bytes.
type errWriter struct {
	n   int
	err error
}

func (w *errWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		k := w.n
		w.n = 0
		return k, w.err
	}
	w.n -= len(p)
	return len(p), nil
}

func TestFinalizationError(t *testing.T) {
	ioErr := errors.New("disk full")
	c, err := NewWriter(&errWriter{n: 10, err: ioErr},
		WriterConfig{Magic: 1})
	if err != nil {
		t.Fatalf("NewWriter error %s", err)
	}
	err = c.Close()
	var finErr *FinalizationError
	if !errors.As(err, &finErr) {
		t.Fatalf("Close returned %v; want FinalizationError", err)
	}
	if !errors.Is(err, ioErr) {
		t.Fatalf("FinalizationError doesn't wrap the I/O error")
	}
}

func TestWriterConfigDefaults(t *testing.T) {
	cfg := WriterConfig{}
	cfg.ApplyDefaults()
	if cfg.Method != Deflate {
		t.Fatalf("default method is %s; want %s", cfg.Method,
			Deflate)
	}
	cfg = WriterConfig{NoCompression: true, Method: ZSTD}
	cfg.ApplyDefaults()
	if cfg.Method != Stored {
		t.Fatalf("NoCompression left method %s; want %s",
			cfg.Method, Stored)
	}
}
