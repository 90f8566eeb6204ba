// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"fmt"
	"hash/adler32"
	"io"
)

// VerifyEntry recomputes the named entry's Adler-32 checksum and compares it
// against the stored adlr value. Entries without an adlr chunk verify clean.
// A mismatch is reported as a wrapped ErrChecksumMismatch; the archive and
// entry remain fully readable regardless.
func (r *Reader) VerifyEntry(name string) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	i, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return r.verifyEntryInfo(&r.entries[i])
}

// verifyEntryInfo runs checksum verification per the reader's checksum mode.
func (r *Reader) verifyEntryInfo(info *EntryInfo) error {
	if !info.HasChecksum || r.checksumMode == ChecksumOff {
		return nil
	}

	var sum uint32
	var err error
	switch r.checksumMode {
	case ChecksumStored:
		sum, err = r.storedChecksum(info)
	default:
		sum, err = r.decompressedChecksum(info)
	}
	if err != nil {
		return err
	}

	if sum != info.Checksum {
		return fmt.Errorf("%w: entry %s computed %08x, stored %08x",
			ErrChecksumMismatch, info.Path, sum, info.Checksum)
	}

	return nil
}

// decompressedChecksum hashes the reconstructed entry payload.
func (r *Reader) decompressedChecksum(info *EntryInfo) (uint32, error) {
	rc, err := r.openEntryByInfo(info)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	h := adler32.New()
	if _, err := io.Copy(h, rc); err != nil {
		return 0, err
	}

	return h.Sum32(), nil
}

// storedChecksum hashes the concatenated on-disk segment bytes without
// decompression. Some producers compute adlr over this form.
func (r *Reader) storedChecksum(info *EntryInfo) (uint32, error) {
	h := adler32.New()
	for i := range info.Segments {
		seg := &info.Segments[i]

		offset, err := checkedUint64ToInt64(seg.Offset)
		if err != nil {
			return 0, fmt.Errorf("%w: entry %s segment %d", ErrSizeOverflow, info.Path, i)
		}

		storedLen, err := checkedUint64ToInt64(seg.StoredSize)
		if err != nil {
			return 0, fmt.Errorf("%w: entry %s segment %d", ErrSizeOverflow, info.Path, i)
		}

		if _, err := io.Copy(h, io.NewSectionReader(r.ra, offset, storedLen)); err != nil {
			return 0, fmt.Errorf("read entry %s segment %d: %w", info.Path, i, err)
		}
	}

	return h.Sum32(), nil
}

// entryChecksum computes the adlr value written for packed payload bytes.
func entryChecksum(data []byte) uint32 {
	return adler32.Checksum(data)
}
