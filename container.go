// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cask

import "io"

// Mode selects the direction of a container stream. A codec function
// receives a Stream carrying the mode and stays oblivious to it for the
// most part; the same function serializes and deserializes.
type Mode int

const (
	Reading Mode = iota
	Writing
)

// String represents the mode as string.
func (m Mode) String() string {
	switch m {
	case Reading:
		return "reading"
	case Writing:
		return "writing"
	}
	return "invalid"
}

// Container is one open session of the format over an underlying byte
// stream. A reading container is immutable after OpenReader returns; a
// writing container accumulates chunks until Close finalizes it. A
// container must not be used from multiple goroutines.
type Container struct {
	mode     Mode
	hdr      Header
	dir      []ChunkEntry
	buf      buffer
	out      io.Writer
	warnings []error
	closed   bool
}

// Mode returns the direction of the container.
func (c *Container) Mode() Mode { return c.mode }

// Header returns the container header. On the writing side the size,
// count and digest fields are only valid after Close.
func (c *Container) Header() Header { return c.hdr }

// Entries returns a copy of the chunk directory.
func (c *Container) Entries() []ChunkEntry {
	dir := make([]ChunkEntry, len(c.dir))
	copy(dir, c.dir)
	return dir
}

// Warnings returns non-fatal conditions observed while opening the
// container, currently only the size-mismatch warning of a lenient
// reader.
func (c *Container) Warnings() []error { return c.warnings }

// lookup returns the first directory entry with the given id.
func (c *Container) lookup(id uint32) (e ChunkEntry, ok bool) {
	for _, e = range c.dir {
		if e.ID == id {
			return e, true
		}
	}
	return ChunkEntry{}, false
}

// Chunk runs the codec fn over the chunk with the given id.
//
// Reading, it seeks to the first directory entry matching id and
// invokes fn; if no entry matches, it returns false without invoking
// fn, so callers can treat chunk presence as optional. Writing, it
// always invokes fn, records the bytes the codec produced as a new
// directory entry and returns true.
//
// An error returned by fn propagates and leaves the container in an
// indeterminate state; callers should discard it. A codec must not
// call Chunk itself: chunks nest only as sequential sibling calls.
func (c *Container) Chunk(id uint32, fn func(*Stream) error) (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	s := Stream{mode: c.mode, buf: &c.buf}
	if c.mode == Reading {
		e, ok := c.lookup(id)
		if !ok {
			return false, nil
		}
		if err := c.buf.seek(int64(e.Offset)); err != nil {
			return true, err
		}
		return true, runCodec(&s, fn)
	}
	off := c.buf.position()
	if err := runCodec(&s, fn); err != nil {
		return true, err
	}
	c.dir = append(c.dir, ChunkEntry{
		ID:     id,
		Offset: uint64(off),
		Length: uint64(c.buf.position() - off),
	})
	return true, nil
}

// runCodec invokes the codec and checks that it closed every array
// frame it opened.
func runCodec(s *Stream, fn func(*Stream) error) error {
	if err := fn(s); err != nil {
		return err
	}
	if len(s.frames) != 0 {
		return errOpenFrames
	}
	return nil
}

// Close releases the container. Reading containers only refuse further
// use. A writing container is finalized exactly once: the header is
// completed with the payload sizes and digest, the payload is
// compressed, and header, directory and payload are written to the
// underlying stream.
func (c *Container) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	if c.mode != Writing {
		return nil
	}
	return c.finalize()
}
