// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// OpenEntry opens the named entry for reading. The returned stream yields
// decompressed payload bytes, concatenated across segments in table order.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}

	i, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return r.openEntryByInfo(&r.entries[i])
}

// OpenEntryInfo opens an entry stream by already resolved metadata.
func (r *Reader) OpenEntryInfo(info EntryInfo) (io.ReadCloser, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}

	return r.openEntryByInfo(&info)
}

// ReadEntry reads the full reconstructed content of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// openEntryByInfo validates segment geometry and returns a streaming reader.
func (r *Reader) openEntryByInfo(info *EntryInfo) (io.ReadCloser, error) {
	if err := validateSegments(info, r.size); err != nil {
		return nil, err
	}

	return &entryReader{ra: r.ra, name: info.Path, segments: info.Segments}, nil
}

// validateSegments checks segment bounds and declared size invariants
// before any payload byte is read. Failures are scoped to this entry.
func validateSegments(info *EntryInfo, archiveSize int64) error {
	var totalOriginal uint64
	for i := range info.Segments {
		seg := &info.Segments[i]

		end := seg.Offset + seg.StoredSize
		if end < seg.Offset || end > uint64(archiveSize) {
			return fmt.Errorf("%w: entry %s segment %d outside file bounds", ErrSizeMismatch, info.Path, i)
		}

		if !seg.Compressed && seg.StoredSize != seg.OriginalSize {
			return fmt.Errorf("%w: entry %s stored segment %d declares %d stored, %d original",
				ErrSizeMismatch, info.Path, i, seg.StoredSize, seg.OriginalSize)
		}

		totalOriginal += seg.OriginalSize
	}

	if totalOriginal != info.OriginalSize {
		return fmt.Errorf("%w: entry %s segments sum to %d, declared %d",
			ErrSizeMismatch, info.Path, totalOriginal, info.OriginalSize)
	}

	return nil
}

// entryReader streams one entry payload segment by segment, enforcing the
// declared original length of every segment.
type entryReader struct {
	ra       io.ReaderAt
	cur      io.Reader
	curClose io.Closer
	name     string
	segments []Segment
	idx      int
	// remaining is original bytes still expected from the current segment.
	remaining uint64
}

// Read implements io.Reader over the concatenated decompressed segments.
func (er *entryReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if er.cur == nil {
			if er.idx >= len(er.segments) {
				return 0, io.EOF
			}

			if err := er.openSegment(); err != nil {
				return 0, err
			}
		}

		if er.remaining == 0 {
			if err := er.finishSegment(); err != nil {
				return 0, err
			}

			continue
		}

		limit := len(p)
		if uint64(limit) > er.remaining {
			limit = int(er.remaining)
		}

		n, err := er.cur.Read(p[:limit])
		er.remaining -= uint64(n)
		if n > 0 {
			return n, nil
		}

		if err == io.EOF {
			seg := er.segments[er.idx]
			if seg.Compressed {
				return 0, fmt.Errorf("%w: entry %s segment %d ended %d bytes short",
					ErrSegmentDecompress, er.name, er.idx, er.remaining)
			}

			return 0, fmt.Errorf("%w: entry %s segment %d ended %d bytes short",
				ErrSizeMismatch, er.name, er.idx, er.remaining)
		}

		if err != nil {
			if er.segments[er.idx].Compressed {
				return 0, fmt.Errorf("%w: entry %s segment %d: %w", ErrSegmentDecompress, er.name, er.idx, err)
			}

			return 0, fmt.Errorf("read entry %s segment %d: %w", er.name, er.idx, err)
		}
	}
}

// openSegment positions a stream over the current segment's stored bytes.
func (er *entryReader) openSegment() error {
	seg := er.segments[er.idx]

	storedLen, err := checkedUint64ToInt64(seg.StoredSize)
	if err != nil {
		return fmt.Errorf("%w: entry %s segment %d", ErrSizeOverflow, er.name, er.idx)
	}

	offset, err := checkedUint64ToInt64(seg.Offset)
	if err != nil {
		return fmt.Errorf("%w: entry %s segment %d", ErrSizeOverflow, er.name, er.idx)
	}

	sr := io.NewSectionReader(er.ra, offset, storedLen)
	if !seg.Compressed {
		er.cur = sr
		er.curClose = nil
		er.remaining = seg.OriginalSize
		return nil
	}

	zr, err := zlib.NewReader(sr)
	if err != nil {
		return fmt.Errorf("%w: entry %s segment %d: %w", ErrSegmentDecompress, er.name, er.idx, err)
	}

	er.cur = zr
	er.curClose = zr
	er.remaining = seg.OriginalSize
	return nil
}

// finishSegment verifies the exhausted segment produced no extra bytes
// and advances to the next one.
func (er *entryReader) finishSegment() error {
	seg := er.segments[er.idx]

	if seg.Compressed {
		var probe [1]byte
		if n, _ := er.cur.Read(probe[:]); n != 0 {
			er.closeCurrent()
			return fmt.Errorf("%w: entry %s segment %d inflates beyond declared size",
				ErrSegmentDecompress, er.name, er.idx)
		}
	}

	er.closeCurrent()
	er.idx++
	return nil
}

// closeCurrent releases the current segment stream.
func (er *entryReader) closeCurrent() {
	if er.curClose != nil {
		_ = er.curClose.Close()
	}

	er.cur = nil
	er.curClose = nil
}

// Close releases the in-flight segment stream.
func (er *entryReader) Close() error {
	er.closeCurrent()
	er.idx = len(er.segments)
	return nil
}
