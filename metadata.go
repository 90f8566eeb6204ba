// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"io"
)

// ListEntries opens an XP3 archive and returns entry metadata without payload reads.
func ListEntries(path string) ([]EntryInfo, error) {
	return ListEntriesWithOptions(path, ReaderOptions{})
}

// ListEntriesWithOptions opens an XP3 archive and returns entry metadata using reader options.
func ListEntriesWithOptions(path string, opts ReaderOptions) ([]EntryInfo, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ListEntriesFromReaderAtWithOptions(f, size, opts)
}

// ListEntriesFromReaderAt parses entry metadata from a random-access source.
func ListEntriesFromReaderAt(ra io.ReaderAt, size int64) ([]EntryInfo, error) {
	return ListEntriesFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// ListEntriesFromReaderAtWithOptions parses entry metadata from a random-access
// source using reader options, applying the option-driven listing filters.
func ListEntriesFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) ([]EntryInfo, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	opts.applyDefaults()

	indexOffset, err := locateIndex(ra, size, opts.HeaderMode)
	if err != nil {
		return nil, err
	}

	index, err := readIndex(ra, size, indexOffset)
	if err != nil {
		return nil, err
	}

	entries, err := parseEntries(index, opts.DuplicatePolicy)
	if err != nil {
		return nil, err
	}

	entries = filterEntriesBySize(entries, opts.MinEntryOriginalSize, opts.MinEntryStoredSize)
	entries = filterEntriesByPrefix(entries, opts.EntryPathPrefix)

	if opts.SanitizeNames {
		entries, err = sanitizeEntryInfoPaths(entries)
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}
