// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import "errors"

// Sentinel errors for XP3 operations. Use errors.Is in callers.
var (
	// ErrBadMagic means the file does not start with the XP3 signature.
	ErrBadMagic = errors.New("invalid XP3 file: bad magic signature")
	// ErrIndexDecompress means the metadata index failed to decompress or produced wrong length.
	ErrIndexDecompress = errors.New("index decompression failed")
	// ErrTruncatedEntry means index data declares more bytes than remain.
	ErrTruncatedEntry = errors.New("truncated index entry")
	// ErrBadName means an entry name is not valid UTF-16LE.
	ErrBadName = errors.New("invalid entry name encoding")
	// ErrMissingInfo means a file record carries no info chunk.
	ErrMissingInfo = errors.New("file record missing info chunk")
	// ErrSegmentDecompress means a payload segment failed to inflate to its declared size.
	ErrSegmentDecompress = errors.New("segment decompression failed")
	// ErrSizeMismatch means stored or reconstructed payload size disagrees with the index.
	ErrSizeMismatch = errors.New("payload size mismatch")
	// ErrChecksumMismatch means entry data does not match its adlr chunk. Non-fatal.
	ErrChecksumMismatch = errors.New("entry checksum mismatch")
	// ErrDuplicateEntry means the index contains a repeated name under reject policy.
	ErrDuplicateEntry = errors.New("duplicate entry name")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrSizeOverflow means a declared size exceeds addressable memory on this platform.
	ErrSizeOverflow = errors.New("size exceeds addressable limit")
	// ErrEmptyInputs means no inputs provided for pack.
	ErrEmptyInputs = errors.New("no inputs provided for pack")
	// ErrInvalidEntryPath means one of input entry paths is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrDuplicateInputPath means two pack inputs resolve to the same path.
	ErrDuplicateInputPath = errors.New("duplicate input path")
	// ErrInvalidCompressPattern means one or more compression rules are invalid.
	ErrInvalidCompressPattern = errors.New("invalid compress rules")
	// ErrInvalidSelectPattern means one or more entry selection rules are invalid.
	ErrInvalidSelectPattern = errors.New("invalid select rules")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrExtractPathOutsideRoot means resolved extraction path escapes destination root.
	ErrExtractPathOutsideRoot = errors.New("extract path escapes destination root")
)
