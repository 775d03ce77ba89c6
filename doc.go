// Copyright 2024 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cask implements a chunked binary container format with a
// bidirectional codec API. A container holds numerically identified
// chunks inside a single compressed payload; one user-written codec
// function serializes and deserializes a chunk depending on the mode of
// the stream it is given, so the two directions cannot drift apart.
//
// The on-disk layout is a 64-byte little-endian header, a directory of
// 20-byte chunk entries and the payload, compressed as a whole. The
// header records the payload sizes, the compression method and a SHA-1
// digest of the uncompressed bytes.
package cask
