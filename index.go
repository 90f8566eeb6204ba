// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"
)

// indexStored is the mini-header flag for a raw index block; any nonzero
// value means the index payload is deflated.
const indexStored = 0x00

// readIndex reads the index mini-header at indexOffset and returns the
// decompressed metadata stream. This is the single point where the whole
// archive's metadata is decoded; failure here is fatal to opening.
func readIndex(ra io.ReaderAt, size, indexOffset int64) ([]byte, error) {
	var flag [1]byte
	if _, err := ra.ReadAt(flag[:], indexOffset); err != nil {
		return nil, fmt.Errorf("%w: read index flag: %w", ErrTruncatedEntry, err)
	}

	if flag[0] == indexStored {
		return readStoredIndex(ra, size, indexOffset+1)
	}

	return readDeflatedIndex(ra, size, indexOffset+1)
}

// readStoredIndex reads a raw index block: 8-byte length plus payload.
func readStoredIndex(ra io.ReaderAt, size, pos int64) ([]byte, error) {
	var lenField [8]byte
	if _, err := ra.ReadAt(lenField[:], pos); err != nil {
		return nil, fmt.Errorf("%w: read index length: %w", ErrTruncatedEntry, err)
	}

	length, err := checkedUint64ToInt64(binary.LittleEndian.Uint64(lenField[:]))
	if err != nil || length > maxIndexSize {
		return nil, fmt.Errorf("%w: unreasonable index size", ErrIndexDecompress)
	}

	payloadStart := pos + 8
	if payloadStart+length > size {
		return nil, fmt.Errorf("%w: index length %d exceeds file size", ErrTruncatedEntry, length)
	}

	index := make([]byte, length)
	if _, err := ra.ReadAt(index, payloadStart); err != nil {
		return nil, fmt.Errorf("%w: read index payload: %w", ErrTruncatedEntry, err)
	}

	return index, nil
}

// readDeflatedIndex reads a compressed index block: original and stored
// 8-byte lengths plus a zlib stream that must inflate to exactly original.
func readDeflatedIndex(ra io.ReaderAt, size, pos int64) ([]byte, error) {
	var lenFields [16]byte
	if _, err := ra.ReadAt(lenFields[:], pos); err != nil {
		return nil, fmt.Errorf("%w: read index lengths: %w", ErrTruncatedEntry, err)
	}

	original, err := checkedUint64ToInt64(binary.LittleEndian.Uint64(lenFields[0:8]))
	if err != nil || original > maxIndexSize {
		return nil, fmt.Errorf("%w: unreasonable index size", ErrIndexDecompress)
	}

	stored, err := checkedUint64ToInt64(binary.LittleEndian.Uint64(lenFields[8:16]))
	if err != nil {
		return nil, fmt.Errorf("%w: unreasonable stored index size", ErrIndexDecompress)
	}

	payloadStart := pos + 16
	if payloadStart+stored > size {
		return nil, fmt.Errorf("%w: stored index %d exceeds file size", ErrTruncatedEntry, stored)
	}

	zr, err := zlib.NewReader(io.NewSectionReader(ra, payloadStart, stored))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexDecompress, err)
	}
	defer func() { _ = zr.Close() }()

	index := make([]byte, original)
	if _, err := io.ReadFull(zr, index); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexDecompress, err)
	}

	// The stream must end exactly at the declared original size.
	var overflow [1]byte
	if n, _ := zr.Read(overflow[:]); n != 0 {
		return nil, fmt.Errorf("%w: index inflates beyond declared size", ErrIndexDecompress)
	}

	return index, nil
}

// parseEntries consumes a decompressed index stream as a flat sequence of
// top-level records and builds the ordered entry table. Unknown top-level
// tags and unknown sub-chunks are skipped by their declared length.
func parseEntries(index []byte, policy DuplicatePolicy) ([]EntryInfo, error) {
	entries := make([]EntryInfo, 0, 64)
	byName := make(map[string]int, 64)

	c := newCursor(index)
	for c.remaining() > 0 {
		if c.remaining() < chunkHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes after last record", ErrTruncatedEntry, c.remaining())
		}

		tag, err := c.uint32()
		if err != nil {
			return nil, fmt.Errorf("%w: record tag: %w", ErrTruncatedEntry, err)
		}

		length, err := c.uint64()
		if err != nil {
			return nil, fmt.Errorf("%w: record length: %w", ErrTruncatedEntry, err)
		}

		record, err := c.sub(length)
		if err != nil {
			return nil, fmt.Errorf("%w: record declares %d bytes, %d remain", ErrTruncatedEntry, length, c.remaining())
		}

		if ChunkTag(tag) != TagFile {
			continue
		}

		entry, err := parseFileRecord(record)
		if err != nil {
			return nil, err
		}

		prev, seen := byName[entry.Path]
		if !seen {
			byName[entry.Path] = len(entries)
			entries = append(entries, entry)
			continue
		}

		if policy == DuplicateReject {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, entry.Path)
		}

		// Last-wins: later record replaces the earlier one in place.
		entries[prev] = entry
	}

	return entries, nil
}

// parseFileRecord parses the sub-chunks of one File record.
func parseFileRecord(record *cursor) (EntryInfo, error) {
	var entry EntryInfo
	var hasInfo bool

	for record.remaining() > 0 {
		tag, err := record.uint32()
		if err != nil {
			return entry, fmt.Errorf("%w: chunk tag: %w", ErrTruncatedEntry, err)
		}

		length, err := record.uint64()
		if err != nil {
			return entry, fmt.Errorf("%w: chunk length: %w", ErrTruncatedEntry, err)
		}

		chunk, err := record.sub(length)
		if err != nil {
			return entry, fmt.Errorf("%w: chunk declares %d bytes, %d remain", ErrTruncatedEntry, length, record.remaining())
		}

		switch ChunkTag(tag) {
		case TagInfo:
			if err := parseInfoChunk(chunk, &entry); err != nil {
				return entry, err
			}

			hasInfo = true
		case TagSegm:
			segments, err := parseSegmChunk(chunk)
			if err != nil {
				return entry, err
			}

			entry.Segments = segments
		case TagAdlr:
			checksum, err := chunk.uint32()
			if err != nil {
				return entry, fmt.Errorf("%w: adlr chunk: %w", ErrTruncatedEntry, err)
			}

			entry.Checksum = checksum
			entry.HasChecksum = true
		default:
			// Unknown chunk, skipped via its declared length.
		}
	}

	if !hasInfo {
		return entry, ErrMissingInfo
	}

	return entry, nil
}

// parseInfoChunk parses flags, declared sizes, and the UTF-16LE entry name.
func parseInfoChunk(chunk *cursor, entry *EntryInfo) error {
	flags, err := chunk.uint32()
	if err != nil {
		return fmt.Errorf("%w: info flags: %w", ErrTruncatedEntry, err)
	}

	original, err := chunk.uint64()
	if err != nil {
		return fmt.Errorf("%w: info original size: %w", ErrTruncatedEntry, err)
	}

	stored, err := chunk.uint64()
	if err != nil {
		return fmt.Errorf("%w: info stored size: %w", ErrTruncatedEntry, err)
	}

	nameChars, err := chunk.uint16()
	if err != nil {
		return fmt.Errorf("%w: info name length: %w", ErrTruncatedEntry, err)
	}

	if nameChars > maxNameChars {
		return fmt.Errorf("%w: name of %d code units", ErrBadName, nameChars)
	}

	nameBytes, err := chunk.bytes(int(nameChars) * 2)
	if err != nil {
		return fmt.Errorf("%w: info name: %w", ErrTruncatedEntry, err)
	}

	name, err := decodeUTF16Name(nameBytes)
	if err != nil {
		return err
	}

	entry.Flags = flags
	entry.OriginalSize = original
	entry.StoredSize = stored
	entry.Path = name
	return nil
}

// parseSegmChunk parses fixed-size segment records in table order.
func parseSegmChunk(chunk *cursor) ([]Segment, error) {
	if chunk.remaining()%segmentRecordSize != 0 {
		return nil, fmt.Errorf("%w: segm chunk of %d bytes", ErrTruncatedEntry, chunk.remaining())
	}

	segments := make([]Segment, 0, chunk.remaining()/segmentRecordSize)
	for chunk.remaining() > 0 {
		flags, err := chunk.uint32()
		if err != nil {
			return nil, fmt.Errorf("%w: segment flags: %w", ErrTruncatedEntry, err)
		}

		offset, err := chunk.uint64()
		if err != nil {
			return nil, fmt.Errorf("%w: segment offset: %w", ErrTruncatedEntry, err)
		}

		original, err := chunk.uint64()
		if err != nil {
			return nil, fmt.Errorf("%w: segment original size: %w", ErrTruncatedEntry, err)
		}

		stored, err := chunk.uint64()
		if err != nil {
			return nil, fmt.Errorf("%w: segment stored size: %w", ErrTruncatedEntry, err)
		}

		segments = append(segments, Segment{
			Offset:       offset,
			OriginalSize: original,
			StoredSize:   stored,
			Compressed:   flags&compressionFlagMask != 0,
		})
	}

	return segments, nil
}

// decodeUTF16Name decodes UTF-16LE bytes and rejects unpaired surrogates.
func decodeUTF16Name(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: odd byte count", ErrBadName)
	}

	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}

	for i := 0; i < len(units); i++ {
		switch u := units[i]; {
		case u >= 0xD800 && u < 0xDC00:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] >= 0xE000 {
				return "", fmt.Errorf("%w: unpaired high surrogate", ErrBadName)
			}

			i++
		case u >= 0xDC00 && u < 0xE000:
			return "", fmt.Errorf("%w: unpaired low surrogate", ErrBadName)
		}
	}

	return string(utf16.Decode(units)), nil
}
