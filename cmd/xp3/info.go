// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/woozymasta/xp3"
)

var cmdInfo = &cobra.Command{
	Use:   "info <archive>",
	Short: "Show archive summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	root.AddCommand(cmdInfo)
}

func runInfo(cmd *cobra.Command, args []string) error {
	r, err := xp3.OpenWithOptions(args[0], readerOptions())
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	var originalTotal, storedTotal uint64
	var compressed, withChecksum int
	entries := r.Entries()
	for i := range entries {
		originalTotal += entries[i].OriginalSize
		storedTotal += entries[i].StoredSize
		if entries[i].IsCompressed() {
			compressed++
		}
		if entries[i].HasChecksum {
			withChecksum++
		}
	}

	fmt.Printf("archive:        %s\n", args[0])
	fmt.Printf("size:           %s\n", humanize.IBytes(uint64(r.Size())))
	fmt.Printf("index offset:   %d\n", r.IndexOffset())
	fmt.Printf("entries:        %d\n", len(entries))
	fmt.Printf("compressed:     %d\n", compressed)
	fmt.Printf("with checksum:  %d\n", withChecksum)
	fmt.Printf("original bytes: %s\n", humanize.IBytes(originalTotal))
	fmt.Printf("stored bytes:   %s\n", humanize.IBytes(storedTotal))
	return nil
}
