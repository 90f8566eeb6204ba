// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package main

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/woozymasta/xp3"
)

var (
	cmdVerify = &cobra.Command{
		Use:   "verify <archive>",
		Short: "Verify checksums of all archive entries",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}

	verifyWorkers int
)

func init() {
	root.AddCommand(cmdVerify)
	cmdVerify.Flags().IntVar(&verifyWorkers, "workers", 0, "number of verification workers (0 means GOMAXPROCS)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	r, err := xp3.OpenWithOptions(args[0], readerOptions())
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	workers := verifyWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Entries are immutable after open and reads are positioned, so
	// verification of different entries can run in parallel.
	var mismatches, skipped atomic.Int64
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)

	for _, entry := range r.Entries() {
		g.Go(func() error {
			if !entry.HasChecksum {
				skipped.Add(1)
				log.WithField("entry", entry.Path).Debug("no checksum")
				return nil
			}

			err := r.VerifyEntry(entry.Path)
			if errors.Is(err, xp3.ErrChecksumMismatch) {
				mismatches.Add(1)
				log.WithField("entry", entry.Path).Warn(err)
				return nil
			}

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.WithFields(map[string]any{
		"entries":    len(r.List()),
		"mismatches": mismatches.Load(),
		"skipped":    skipped.Load(),
	}).Info("verification complete")

	if n := mismatches.Load(); n > 0 {
		return fmt.Errorf("%d entries failed checksum verification", n)
	}

	return nil
}
