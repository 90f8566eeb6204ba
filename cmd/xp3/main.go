// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

// Command xp3 lists, extracts, verifies, and packs XP3 archives.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/woozymasta/xp3"
)

var (
	root = &cobra.Command{
		Use:           "xp3",
		Short:         "Inspect and unpack XP3 (KiriKiri) archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	log = logrus.New()

	verbose      bool
	headerMode   string
	checksumMode string
)

func init() {
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&headerMode, "header-mode", "auto", "header variant: auto, legacy, extended")
	root.PersistentFlags().StringVar(&checksumMode, "checksum-mode", "decompressed", "checksum form: decompressed, stored, off")
}

// readerOptions builds library options from global flags.
func readerOptions() xp3.ReaderOptions {
	return xp3.ReaderOptions{
		HeaderMode:   xp3.HeaderMode(headerMode),
		ChecksumMode: xp3.ChecksumMode(checksumMode),
	}
}

func main() {
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
