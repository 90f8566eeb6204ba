// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"encoding/binary"
	"io"
	"math"
)

// cursor is a sequential little-endian reader over an in-memory block
// with explicit bounds checks. Reads past the end return io.ErrUnexpectedEOF.
type cursor struct {
	data []byte
	pos  int
}

// newCursor creates a cursor over data starting at position zero.
func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// remaining returns the number of unread bytes.
func (c *cursor) remaining() int {
	return len(c.data) - c.pos
}

// need verifies n more bytes are readable.
func (c *cursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return io.ErrUnexpectedEOF
	}

	return nil
}

// bytes returns the next n bytes as a view into the underlying block.
func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}

	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

// uint8 reads one byte.
func (c *cursor) uint8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}

	v := c.data[c.pos]
	c.pos++
	return v, nil
}

// uint16 reads a little-endian 16-bit value.
func (c *cursor) uint16() (uint16, error) {
	b, err := c.bytes(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

// uint32 reads a little-endian 32-bit value.
func (c *cursor) uint32() (uint32, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

// uint64 reads a little-endian 64-bit value.
func (c *cursor) uint64() (uint64, error) {
	b, err := c.bytes(8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

// skip advances past n bytes without reading them.
func (c *cursor) skip(n uint64) error {
	cn, err := checkedUint64ToInt(n)
	if err != nil {
		return io.ErrUnexpectedEOF
	}

	if err := c.need(cn); err != nil {
		return err
	}

	c.pos += cn
	return nil
}

// sub returns a bounded cursor over the next n bytes and advances past them.
// The parent never reads into a sub-cursor's region again, which keeps
// declared record lengths authoritative.
func (c *cursor) sub(n uint64) (*cursor, error) {
	cn, err := checkedUint64ToInt(n)
	if err != nil {
		return nil, io.ErrUnexpectedEOF
	}

	b, err := c.bytes(cn)
	if err != nil {
		return nil, err
	}

	return newCursor(b), nil
}

// checkedUint64ToInt converts uint64 to int with platform-safe overflow check.
func checkedUint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, ErrSizeOverflow
	}

	return int(v), nil
}

// checkedUint64ToInt64 converts uint64 to int64 with overflow check.
func checkedUint64ToInt64(v uint64) (int64, error) {
	if v > uint64(math.MaxInt64) {
		return 0, ErrSizeOverflow
	}

	return int64(v), nil
}
