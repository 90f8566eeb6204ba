// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/woozymasta/xp3"
)

var (
	cmdList = &cobra.Command{
		Use:   "list <archive>",
		Short: "List archive entries in index order",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}

	listPrefix   string
	listMinSize  uint64
	listSanitize bool
	listLong     bool
)

func init() {
	root.AddCommand(cmdList)
	cmdList.Flags().StringVar(&listPrefix, "prefix", "", "limit listing to entries under path prefix")
	cmdList.Flags().Uint64Var(&listMinSize, "min-size", 0, "skip entries smaller than this decompressed size")
	cmdList.Flags().BoolVar(&listSanitize, "sanitize", false, "rewrite names to filesystem-safe form")
	cmdList.Flags().BoolVarP(&listLong, "long", "l", false, "show sizes, segments, and compression state")
}

func runList(cmd *cobra.Command, args []string) error {
	opts := readerOptions()
	opts.EntryPathPrefix = listPrefix
	opts.MinEntryOriginalSize = listMinSize
	opts.SanitizeNames = listSanitize

	entries, err := xp3.ListEntriesWithOptions(args[0], opts)
	if err != nil {
		return err
	}

	if !listLong {
		for _, entry := range entries {
			fmt.Println(entry.Path)
		}

		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tSTORED\tSEGMENTS\tCOMPRESSED")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n",
			entry.Path,
			humanize.IBytes(entry.OriginalSize),
			humanize.IBytes(entry.StoredSize),
			len(entry.Segments),
			entry.IsCompressed(),
		)
	}

	return tw.Flush()
}
