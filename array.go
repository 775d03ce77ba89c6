// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask

// Arrays are framed with an 8-byte prefix: the element count followed
// by the per-element stride, both uint32. A zero stride marks a
// variable-stride array whose elements are self-delimiting; a nonzero
// stride lets readers seek past elements without decoding them. The
// writer detects the stride automatically: as long as every element
// serializes to the same size the common size is recorded, the first
// deviation degrades the frame to variable stride.

// arrayFrameLen is the length of the count/stride prefix.
const arrayFrameLen = 8

// frame records the state of one in-progress array. Frames stack so
// arrays can nest; the stack lives on the stream and must be empty
// when the chunk codec returns.
type frame struct {
	start  int64 // writing only: offset of the frame prefix
	last   int64 // cursor just past the most recent element
	count  uint32
	elsize uint32
}

// BeginArray opens an array frame. Writing, it emits a placeholder
// prefix that EndArray back-patches. Reading, it consumes the prefix
// and returns the stored element count.
func (s *Stream) BeginArray() (count uint32, err error) {
	if s.mode == Writing {
		f := frame{start: s.buf.position()}
		var p [arrayFrameLen]byte
		s.buf.write(p[:])
		f.last = s.buf.position()
		s.frames = append(s.frames, f)
		return 0, nil
	}
	var p [arrayFrameLen]byte
	if err = s.buf.read(p[:]); err != nil {
		return 0, err
	}
	f := frame{
		count:  uint32LE(p[:]),
		elsize: uint32LE(p[4:]),
		last:   s.buf.position(),
	}
	s.frames = append(s.frames, f)
	return f.count, nil
}

// NextElement closes the current element of the innermost frame.
// Writing, it measures the bytes produced since the previous element
// and folds them into the stride detection. Reading a fixed-stride
// frame, it seeks the cursor one stride past the previous element,
// skipping trailing bytes the element codec did not consume; in a
// variable-stride frame the cursor stays wherever the codec left it.
func (s *Stream) NextElement() error {
	if len(s.frames) == 0 {
		return errNoFrame
	}
	f := &s.frames[len(s.frames)-1]
	if s.mode == Writing {
		el := s.buf.position() - f.last
		if el > 1<<32-1 {
			return errElementLarge
		}
		k := uint32(el)
		if f.count == 0 {
			f.elsize = k
		} else if f.elsize != k {
			f.elsize = 0
		}
		f.count++
		f.last = s.buf.position()
		return nil
	}
	if f.elsize > 0 {
		f.last += int64(f.elsize)
		if err := s.buf.seek(f.last); err != nil {
			return err
		}
	} else {
		f.last = s.buf.position()
	}
	if f.count > 0 {
		f.count--
	}
	return nil
}

// EndArray closes the innermost frame. Writing, it back-patches the
// count and stride into the frame prefix and restores the cursor to
// the end of the array. A frame that advanced the cursor without a
// single NextElement call fails with ErrMalformedArray: bytes were
// written without being counted.
func (s *Stream) EndArray() error {
	if len(s.frames) == 0 {
		return errNoFrame
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	if s.mode != Writing {
		return nil
	}
	end := s.buf.position()
	if f.count == 0 && end != f.start+arrayFrameLen {
		return ErrMalformedArray
	}
	var p [arrayFrameLen]byte
	putUint32LE(p[:], f.count)
	putUint32LE(p[4:], f.elsize)
	if err := s.buf.seek(f.start); err != nil {
		return err
	}
	s.buf.write(p[:])
	return s.buf.seek(end)
}

// Vector reads or writes a variable-length slice. Writing serializes
// every element of *vec through elem; reading replaces *vec with the
// stored elements. An empty array stores only the frame prefix and
// invokes elem not at all.
func Vector[T any](s *Stream, vec *[]T, elem func(*Stream, *T) error) error {
	n, err := s.BeginArray()
	if err != nil {
		return err
	}
	if s.mode == Writing {
		for i := range *vec {
			if err = elem(s, &(*vec)[i]); err != nil {
				return err
			}
			if err = s.NextElement(); err != nil {
				return err
			}
		}
		return s.EndArray()
	}
	out := []T{}
	for i := uint32(0); i < n; i++ {
		var el T
		if err = elem(s, &el); err != nil {
			return err
		}
		if err = s.NextElement(); err != nil {
			return err
		}
		out = append(out, el)
	}
	*vec = out
	return s.EndArray()
}

// FixedArray reads or writes a fixed-capacity array slot, passed as the
// slice arr over its backing array. Writing serializes every slot.
// Reading stores up to len(arr) elements: excess stored elements are
// consumed but dropped, seeking by stride where possible and decoding
// into a scratch value otherwise; missing trailing slots are reset to
// the zero value. This lets a compile-time array shrink or grow across
// versions.
func FixedArray[T any](s *Stream, arr []T, elem func(*Stream, *T) error) error {
	n, err := s.BeginArray()
	if err != nil {
		return err
	}
	if s.mode == Writing {
		for i := range arr {
			if err = elem(s, &arr[i]); err != nil {
				return err
			}
			if err = s.NextElement(); err != nil {
				return err
			}
		}
		return s.EndArray()
	}
	variable := s.frames[len(s.frames)-1].elsize == 0
	for i := uint32(0); i < n; i++ {
		switch {
		case int64(i) < int64(len(arr)):
			if err = elem(s, &arr[i]); err != nil {
				return err
			}
		case variable:
			var scratch T
			if err = elem(s, &scratch); err != nil {
				return err
			}
		}
		if err = s.NextElement(); err != nil {
			return err
		}
	}
	for i := int(n); i < len(arr); i++ {
		var zero T
		arr[i] = zero
	}
	return s.EndArray()
}
