// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Reader provides read-only access to a parsed XP3 archive.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// entries stores parsed immutable entry metadata in index order.
	entries []EntryInfo
	// byName maps entry name to its position in entries.
	byName map[string]int
	// indexOffset is the resolved absolute offset of the index block.
	indexOffset int64
	// size is total source size in bytes.
	size int64
	// checksumMode selects the byte form adlr verification runs against.
	checksumMode ChecksumMode
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens an XP3 file by path and parses header and index structures.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens an XP3 file by path using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFromReaderAtWithOptions(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReaderFromReaderAt parses an XP3 archive from existing ReaderAt and known size.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64) (*Reader, error) {
	return NewReaderFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// NewReaderFromReaderAtWithOptions parses an XP3 archive from existing ReaderAt
// and known size using explicit reader options. Open either fully succeeds or
// fully fails; no partially parsed table is ever exposed.
func NewReaderFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	opts.applyDefaults()

	r := &Reader{ra: ra, size: size, checksumMode: opts.ChecksumMode}
	if err := r.parse(ra, size, opts); err != nil {
		return nil, err
	}

	return r, nil
}

// parse runs the full open pass: header, index block, entry table.
func (r *Reader) parse(ra io.ReaderAt, size int64, opts ReaderOptions) error {
	indexOffset, err := locateIndex(ra, size, opts.HeaderMode)
	if err != nil {
		return err
	}

	index, err := readIndex(ra, size, indexOffset)
	if err != nil {
		return err
	}

	entries, err := parseEntries(index, opts.DuplicatePolicy)
	if err != nil {
		return err
	}

	r.indexOffset = indexOffset
	r.entries = entries
	r.byName = make(map[string]int, len(entries))
	for i := range entries {
		r.byName[entries[i].Path] = i
	}

	return nil
}

// List returns entry names in index order. The result is stable across calls.
// Returns nil once the reader is closed.
func (r *Reader) List() []string {
	if r == nil || r.isClosed() {
		return nil
	}

	names := make([]string, len(r.entries))
	for i := range r.entries {
		names[i] = r.entries[i].Path
	}

	return names
}

// Entries returns a copy of parsed entries in index order.
// Returns nil once the reader is closed.
func (r *Reader) Entries() []EntryInfo {
	if r == nil || r.isClosed() {
		return nil
	}

	entries := make([]EntryInfo, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Entry returns metadata for one entry by exact (case-sensitive) name.
// Lookups miss once the reader is closed.
func (r *Reader) Entry(name string) (EntryInfo, bool) {
	if r == nil || r.isClosed() {
		return EntryInfo{}, false
	}

	i, ok := r.byName[name]
	if !ok {
		return EntryInfo{}, false
	}

	return r.entries[i], true
}

// Size returns total archive size in bytes.
func (r *Reader) Size() int64 {
	if r == nil {
		return 0
	}

	return r.size
}

// IndexOffset returns the resolved absolute offset of the index block.
func (r *Reader) IndexOffset() int64 {
	if r == nil {
		return 0
	}

	return r.indexOffset
}

// Close closes the underlying file if reader owns one.
// Subsequent read operations return ErrClosed.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// ensureOpen reports reader usability for payload operations.
func (r *Reader) ensureOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	if r.isClosed() {
		return ErrClosed
	}

	return nil
}

// isClosed reports whether Close was already called.
func (r *Reader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open XP3: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
