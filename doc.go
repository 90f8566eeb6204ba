// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

/*
Package xp3 provides read, extract, verify, and pack operations for XP3
archives, the asset container used by the KiriKiri visual novel engine.
Reading works from any io.ReaderAt without loading payloads into memory;
entry payloads stream segment by segment with zlib inflation on the fly.

# Reading

Open an archive and list or read entries:

	r, err := xp3.Open("data.xp3")
	if err != nil {
	    return err
	}
	defer r.Close()
	for _, name := range r.List() {
	    data, _ := r.ReadEntry(name)
	    // use data
	}

For metadata-only scans, use fast helpers without creating a full reader:

	entries, err := xp3.ListEntries("data.xp3")
	if err != nil {
	    return err
	}
	_ = entries

Large-file archives with the extended header variant are detected
automatically; force one variant when needed:

	r, err := xp3.OpenWithOptions("data.xp3", xp3.ReaderOptions{
	    HeaderMode: xp3.HeaderModeLegacy,
	})
	if err != nil {
	    return err
	}
	defer r.Close()

Duplicate index names keep the last record by default; reject them instead:

	r, err := xp3.OpenWithOptions("data.xp3", xp3.ReaderOptions{
	    DuplicatePolicy: xp3.DuplicateReject,
	})
	if err != nil {
	    return err
	}
	defer r.Close()

# Integrity

Entries may carry an Adler-32 checksum. Verification never blocks reading;
a mismatch is reported and the payload stays available:

	if err := r.VerifyEntry("script/main.ks"); errors.Is(err, xp3.ErrChecksumMismatch) {
	    // log and decide
	}

Whether the checksum covers decompressed or stored bytes varies between
producers; select the form with ReaderOptions.ChecksumMode.

# Extracting

Extract entries to a directory (parallel workers):

	if err := r.Extract(ctx, "out/", xp3.ExtractOptions{MaxWorkers: 4}); err != nil {
	    return err
	}

Limit extraction with path rules from github.com/woozymasta/pathrules:

	if err := r.Extract(ctx, "out/", xp3.ExtractOptions{
	    Select: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "bgimage/**"},
	    },
	    VerifyChecksums: true,
	    OnIntegrityWarning: func(entry xp3.EntryInfo, err error) {
	        // non-fatal checksum mismatch
	    },
	}); err != nil {
	    return err
	}

Path sanitization is enabled by default during extraction; disable it
explicitly when raw names are required with ExtractOptions.RawNames.

# Packing

Pack from stream-oriented inputs (order is deterministic by path):

	inputs := []xp3.Input{
	    {Path: "script/main.ks", Open: func() (io.ReadCloser, error) { return os.Open("src/main.ks") }},
	}
	res, err := xp3.PackFile(ctx, "data.xp3", inputs, xp3.PackOptions{
	    Compress: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.ks"},
	        {Action: pathrules.ActionInclude, Pattern: "*.tjs"},
	    },
	})
	_ = res.CompressedEntries

Large payloads can be cut into independently compressed segments:

	res, err = xp3.PackFile(ctx, "data.xp3", inputs, xp3.PackOptions{
	    SegmentSplitSize: 1 << 20,
	})
*/
package xp3
