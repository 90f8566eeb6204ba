// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package main

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/xp3"
)

var (
	cmdPack = &cobra.Command{
		Use:   "pack <dir> <archive>",
		Short: "Pack a directory tree into an XP3 archive",
		Args:  cobra.ExactArgs(2),
		RunE:  runPack,
	}

	packCompress []string
	packSplit    uint64
	packRawIndex bool
)

func init() {
	root.AddCommand(cmdPack)
	cmdPack.Flags().StringSliceVar(&packCompress, "compress", nil, "compress entries matching these path patterns")
	cmdPack.Flags().Uint64Var(&packSplit, "split", 0, "split payloads into segments of this size in bytes")
	cmdPack.Flags().BoolVar(&packRawIndex, "raw-index", false, "store the metadata index uncompressed")
}

func runPack(cmd *cobra.Command, args []string) error {
	srcDir, outPath := args[0], args[1]

	inputs, err := collectPackInputs(srcDir)
	if err != nil {
		return err
	}

	var rules []pathrules.Rule
	for _, pattern := range packCompress {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}

	opts := xp3.PackOptions{
		Compress:         rules,
		SegmentSplitSize: packSplit,
		StoreIndexRaw:    packRawIndex,
		OnEntryDone: func(entry xp3.PackEntryProgress) {
			log.WithFields(map[string]any{
				"stored":     humanize.IBytes(entry.StoredSize),
				"compressed": entry.Compressed,
			}).Debug(entry.Path)
		},
	}

	res, err := xp3.PackFile(cmd.Context(), outPath, inputs, opts)
	if err != nil {
		return err
	}

	log.WithFields(map[string]any{
		"entries":    res.WrittenEntries,
		"data":       humanize.IBytes(uint64(res.DataSize)),
		"index":      humanize.IBytes(uint64(res.IndexSize)),
		"compressed": res.CompressedEntries,
	}).Info(outPath)

	return nil
}

// collectPackInputs walks srcDir and builds one input per regular file.
func collectPackInputs(srcDir string) ([]xp3.Input, error) {
	var inputs []xp3.Input

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		inputs = append(inputs, xp3.Input{
			Path:     filepath.ToSlash(rel),
			SizeHint: info.Size(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return inputs, nil
}
