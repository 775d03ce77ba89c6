// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask

import (
	"bytes"
	"math"
	"unsafe"
)

// Stream is the cursor a chunk codec sees: a view into the uncompressed
// payload scoped to the current chunk, parameterized by the container's
// mode. The order of primitive calls inside the codec is the entire
// schema; there are no field names, tags or type codes.
type Stream struct {
	mode   Mode
	buf    *buffer
	frames []frame
}

// Mode returns the direction of the stream.
func (s *Stream) Mode() Mode { return s.mode }

// Reading reports whether the stream deserializes.
func (s *Stream) Reading() bool { return s.mode == Reading }

// Writing reports whether the stream serializes.
func (s *Stream) Writing() bool { return s.mode == Writing }

// ReadWrite transfers len(p) raw bytes: reading fills p from the
// stream, writing emits p to it.
func (s *Stream) ReadWrite(p []byte) error {
	if s.mode == Writing {
		s.buf.write(p)
		return nil
	}
	return s.buf.read(p)
}

// scalarType constrains the fixed-size integers the stream can
// serialize as their raw little-endian byte image.
type scalarType interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Number reads or writes *v as its little-endian byte image. The
// on-disk width is the width of T.
func Number[T scalarType](s *Stream, v *T) error {
	n := int(unsafe.Sizeof(*v))
	var p [8]byte
	if s.mode == Writing {
		u := uint64(*v)
		for i := 0; i < n; i++ {
			p[i] = byte(u >> (8 * i))
		}
		s.buf.write(p[:n])
		return nil
	}
	if err := s.buf.read(p[:n]); err != nil {
		return err
	}
	var u uint64
	for i := 0; i < n; i++ {
		u |= uint64(p[i]) << (8 * i)
	}
	*v = T(u)
	return nil
}

// As reads or writes *v through the on-disk representation S. Writing
// narrows the in-memory value to S before serializing; reading widens
// the stored S back. The caller must ensure the conversion is
// well-defined for all values that occur, typically an enum stored as
// a byte.
func As[S scalarType, M scalarType](s *Stream, v *M) error {
	if s.mode == Writing {
		w := S(*v)
		return Number(s, &w)
	}
	var w S
	if err := Number(s, &w); err != nil {
		return err
	}
	*v = M(w)
	return nil
}

// Put writes the value v when writing. Reading, it consumes a value of
// the same width from the stream and discards it, so the cursor still
// advances past the field.
func Put[T scalarType](s *Stream, v T) error {
	return Number(s, &v)
}

// Bool reads or writes *v as a single byte; any nonzero byte reads as
// true.
func (s *Stream) Bool(v *bool) error {
	if s.mode == Writing {
		var c byte
		if *v {
			c = 1
		}
		s.buf.writeByte(c)
		return nil
	}
	c, err := s.buf.readByte()
	if err != nil {
		return err
	}
	*v = c != 0
	return nil
}

// Float32 reads or writes *v as its IEEE-754 bit image.
func (s *Stream) Float32(v *float32) error {
	u := math.Float32bits(*v)
	if err := Number(s, &u); err != nil {
		return err
	}
	*v = math.Float32frombits(u)
	return nil
}

// Float64 reads or writes *v as its IEEE-754 bit image.
func (s *Stream) Float64(v *float64) error {
	u := math.Float64bits(*v)
	if err := Number(s, &u); err != nil {
		return err
	}
	*v = math.Float64frombits(u)
	return nil
}

// String reads or writes *v NUL-terminated. Writing emits the string's
// bytes followed by one zero byte; a string containing a NUL is
// truncated at its first NUL. Reading consumes bytes up to but not
// including the first zero byte.
func (s *Stream) String(v *string) error {
	if s.mode == Writing {
		b := []byte(*v)
		if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
		s.buf.write(b)
		s.buf.writeByte(0)
		return nil
	}
	var b []byte
	for {
		c, err := s.buf.readByte()
		if err != nil {
			return err
		}
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	*v = string(b)
	return nil
}
