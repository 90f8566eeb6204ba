// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package main

import (
	"github.com/spf13/cobra"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/xp3"
)

var (
	cmdExtract = &cobra.Command{
		Use:   "extract <archive> [dest]",
		Short: "Extract archive entries to a directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runExtract,
	}

	extractInclude  []string
	extractWorkers  int
	extractRawNames bool
	extractVerify   bool
)

func init() {
	root.AddCommand(cmdExtract)
	cmdExtract.Flags().StringSliceVar(&extractInclude, "include", nil, "extract only entries matching these path patterns")
	cmdExtract.Flags().IntVar(&extractWorkers, "workers", 0, "number of extraction workers (0 means GOMAXPROCS)")
	cmdExtract.Flags().BoolVar(&extractRawNames, "raw-names", false, "disable output path sanitization")
	cmdExtract.Flags().BoolVar(&extractVerify, "verify", false, "verify entry checksums while extracting")
}

func runExtract(cmd *cobra.Command, args []string) error {
	dest := "."
	if len(args) > 1 {
		dest = args[1]
	}

	r, err := xp3.OpenWithOptions(args[0], readerOptions())
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	var rules []pathrules.Rule
	for _, pattern := range extractInclude {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}

	opts := xp3.ExtractOptions{
		Select:          rules,
		MaxWorkers:      extractWorkers,
		RawNames:        extractRawNames,
		VerifyChecksums: extractVerify,
		OnEntryDone: func(entry xp3.EntryInfo, written int64, outputPath string) {
			log.WithField("bytes", written).Debug(outputPath)
		},
		OnIntegrityWarning: func(entry xp3.EntryInfo, err error) {
			log.WithField("entry", entry.Path).Warn(err)
		},
	}

	if err := r.Extract(cmd.Context(), dest, opts); err != nil {
		return err
	}

	log.WithField("dest", dest).Info("extraction complete")
	return nil
}
