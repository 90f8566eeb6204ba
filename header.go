// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// locateIndex validates the XP3 signature and resolves the absolute offset
// of the metadata index block according to the selected header mode.
func locateIndex(ra io.ReaderAt, size int64, mode HeaderMode) (int64, error) {
	if size < legacyHeaderSize {
		return 0, fmt.Errorf("%w: file too short for header", ErrBadMagic)
	}

	header := make([]byte, legacyHeaderSize)
	if _, err := ra.ReadAt(header, 0); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	if !bytes.Equal(header[:signatureSize], signature) {
		return 0, ErrBadMagic
	}

	offset := binary.LittleEndian.Uint64(header[signatureSize:])

	switch mode {
	case HeaderModeLegacy:
	case HeaderModeAuto:
		extOffset, ok, err := readExtendedOffset(ra, size)
		if err != nil {
			return 0, err
		}
		if ok {
			offset = extOffset
		}
	case HeaderModeExtended:
		extOffset, ok, err := readExtendedOffset(ra, size)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: missing extended header marker", ErrBadMagic)
		}

		offset = extOffset
	default:
		return 0, fmt.Errorf("unknown header mode %q", mode)
	}

	indexOffset, err := checkedUint64ToInt64(offset)
	if err != nil {
		return 0, fmt.Errorf("%w: index offset %d", ErrTruncatedEntry, offset)
	}

	if indexOffset < signatureSize || indexOffset >= size {
		return 0, fmt.Errorf("%w: index offset %d out of file bounds", ErrTruncatedEntry, indexOffset)
	}

	return indexOffset, nil
}

// readExtendedOffset reads the optional marker byte that follows the first
// offset field. A matched marker means the next 8-byte offset supersedes
// the first one (large-file variant).
func readExtendedOffset(ra io.ReaderAt, size int64) (uint64, bool, error) {
	if size < extendedHeaderSize {
		return 0, false, nil
	}

	ext := make([]byte, 1+8)
	if _, err := ra.ReadAt(ext, legacyHeaderSize); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("read extended header: %w", err)
	}

	if ext[0] != extendedMarker {
		return 0, false, nil
	}

	return binary.LittleEndian.Uint64(ext[1:]), true, nil
}
