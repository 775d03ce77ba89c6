// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Method identifies the compression applied to the whole payload.
//
// Stored and Deflate are the canonical values of the format. ZSTD and
// XZ claim two of the reserved values as extensions; writers emit them
// only when configured explicitly, and readers limited to the canonical
// format will reject such containers.
type Method uint32

const (
	Stored  Method = 0
	Deflate Method = 1
	ZSTD    Method = 2
	XZ      Method = 3
)

// String represents the compression method as string.
func (m Method) String() string {
	switch m {
	case Stored:
		return "stored"
	case Deflate:
		return "deflate"
	case ZSTD:
		return "zstd"
	case XZ:
		return "xz"
	}
	return "reserved"
}

// verify returns an error if no compressor is registered for the
// method.
func (m Method) verify() error {
	if _, ok := compressors[m]; !ok {
		return fmt.Errorf(
			"cask: unsupported compression method %d", uint32(m))
	}
	return nil
}

// compressor converts a whole payload between its stored and its
// uncompressed form.
type compressor interface {
	deflate(p []byte) ([]byte, error)
	inflate(p []byte, sizeHint uint64) ([]byte, error)
}

// compressors registers one codec per method.
var compressors = map[Method]compressor{
	Stored:  storedCodec{},
	Deflate: flateCodec{},
	ZSTD:    zstdCodec{},
	XZ:      xzCodec{},
}

// storedCodec passes the payload through unchanged.
type storedCodec struct{}

func (storedCodec) deflate(p []byte) ([]byte, error) { return p, nil }

func (storedCodec) inflate(p []byte, sizeHint uint64) ([]byte, error) {
	return p, nil
}

// flateCodec implements Deflate using klauspost's flate.
type flateCodec struct{}

func (flateCodec) deflate(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err = zw.Write(p); err != nil {
		return nil, err
	}
	if err = zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (flateCodec) inflate(p []byte, sizeHint uint64) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(p))
	defer zr.Close()
	return readSized(zr, sizeHint)
}

// zstdCodec implements the ZSTD extension method.
type zstdCodec struct{}

func (zstdCodec) deflate(p []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(p, make([]byte, 0, len(p)/2)), nil
}

func (zstdCodec) inflate(p []byte, sizeHint uint64) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(p, nil)
}

// xzCodec implements the XZ extension method.
type xzCodec struct{}

func (xzCodec) deflate(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err = zw.Write(p); err != nil {
		return nil, err
	}
	if err = zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (xzCodec) inflate(p []byte, sizeHint uint64) ([]byte, error) {
	zr, err := xz.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, err
	}
	return readSized(zr, sizeHint)
}

// readSized drains r, sizing the result buffer by the header's size
// hint. The hint is clamped so that a corrupt header cannot force a
// large allocation before any byte is read.
func readSized(r io.Reader, sizeHint uint64) ([]byte, error) {
	const maxPrealloc = 1 << 20
	if sizeHint > maxPrealloc {
		sizeHint = maxPrealloc
	}
	buf := bytes.NewBuffer(make([]byte, 0, sizeHint))
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
