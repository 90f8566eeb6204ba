// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"io"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	signatureSize      = 11                     // fixed XP3 signature length
	legacyHeaderSize   = signatureSize + 8      // signature + index offset field
	extendedHeaderSize = legacyHeaderSize + 1 + 8 // + marker byte + superseding offset
	extendedMarker     = 0x80                   // marker byte selecting the extended variant
	segmentRecordSize  = 28                     // flags:4 + offset:8 + original:8 + stored:8
	chunkHeaderSize    = 12                     // tag:4 + length:8
	maxNameChars       = 4096                   // max entry name length in UTF-16 code units
	maxIndexSize       = 512 << 20              // max decompressed index size guard
)

// Default packer tuning values.
const (
	DefaultWriteBuffer     = 16 * 1024 * 1024
	DefaultMinCompressSize = 512
	DefaultMaxCompressSize = 16 * 1024 * 1024
)

// signature is the fixed 11-byte XP3 container magic.
var signature = []byte{'X', 'P', '3', 0x0D, 0x0A, 0x20, 0x0A, 0x1A, 0x8B, 0x67, 0x01}

// ChunkTag is a 4-byte index chunk identifier (stored little-endian).
type ChunkTag uint32

// Index chunk tags.
const (
	// TagFile introduces one top-level file record ("File").
	TagFile ChunkTag = 0x656C6946
	// TagInfo marks the name/size sub-chunk ("info").
	TagInfo ChunkTag = 0x6F666E69
	// TagSegm marks the segment table sub-chunk ("segm").
	TagSegm ChunkTag = 0x6D676573
	// TagAdlr marks the Adler-32 checksum sub-chunk ("adlr").
	TagAdlr ChunkTag = 0x726C6461
)

// compressionFlagMask selects the compression method bits of a flags word.
const compressionFlagMask = 0x07

// Segment is one contiguous byte range backing part or all of an entry payload.
type Segment struct {
	// Offset is absolute byte offset of stored segment data in the archive.
	Offset uint64 `json:"offset" yaml:"offset"`
	// OriginalSize is segment size after decompression.
	OriginalSize uint64 `json:"original_size" yaml:"original_size"`
	// StoredSize is on-disk segment size.
	StoredSize uint64 `json:"stored_size" yaml:"stored_size"`
	// Compressed reports whether stored bytes are deflated.
	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// EntryInfo describes a single parsed XP3 entry.
type EntryInfo struct {
	// Path is the entry name as stored in the archive index.
	Path string `json:"path" yaml:"path"`
	// Segments lists payload byte ranges in concatenation order.
	Segments []Segment `json:"segments" yaml:"segments"`
	// OriginalSize is declared total size after decompression.
	OriginalSize uint64 `json:"original_size" yaml:"original_size"`
	// StoredSize is declared total on-disk payload size.
	StoredSize uint64 `json:"stored_size" yaml:"stored_size"`
	// Flags is the raw info chunk flags word.
	Flags uint32 `json:"flags,omitempty" yaml:"flags,omitempty"`
	// Checksum is the adlr chunk value when present.
	Checksum uint32 `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	// HasChecksum reports whether an adlr chunk was present.
	HasChecksum bool `json:"has_checksum,omitempty" yaml:"has_checksum,omitempty"`
}

// IsCompressed reports whether any payload segment is stored deflated.
func (e *EntryInfo) IsCompressed() bool {
	for i := range e.Segments {
		if e.Segments[i].Compressed {
			return true
		}
	}

	return false
}

// Input describes one source stream to be packed into an XP3 entry.
type Input struct {
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Path is destination name inside the archive.
	Path string `json:"path" yaml:"path"`
	// SizeHint is expected size in bytes (zero when unknown).
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// HeaderMode controls how the reader resolves the index offset field.
type HeaderMode string

// Header variants.
const (
	// HeaderModeAuto detects the extended marker and uses the superseding offset when present.
	HeaderModeAuto HeaderMode = "auto"
	// HeaderModeLegacy always treats the first offset field as final.
	HeaderModeLegacy HeaderMode = "legacy"
	// HeaderModeExtended requires the extended marker and superseding offset.
	HeaderModeExtended HeaderMode = "extended"
)

// DuplicatePolicy controls handling of repeated names in the index.
type DuplicatePolicy string

// Duplicate name policies.
const (
	// DuplicateLastWins keeps the last record for a repeated name at its first position.
	DuplicateLastWins DuplicatePolicy = "last_wins"
	// DuplicateReject fails open on any repeated name.
	DuplicateReject DuplicatePolicy = "reject"
)

// ChecksumMode controls which byte form adlr verification runs against.
type ChecksumMode string

// Checksum verification modes.
const (
	// ChecksumDecompressed verifies adlr against reconstructed entry bytes.
	ChecksumDecompressed ChecksumMode = "decompressed"
	// ChecksumStored verifies adlr against concatenated stored segment bytes.
	ChecksumStored ChecksumMode = "stored"
	// ChecksumOff disables adlr verification.
	ChecksumOff ChecksumMode = "off"
)

// ReaderOptions configures reader parse and verification behavior.
type ReaderOptions struct {
	// HeaderMode controls legacy/extended index offset resolution.
	HeaderMode HeaderMode `json:"header_mode,omitempty" yaml:"header_mode,omitempty"`
	// DuplicatePolicy controls repeated index names.
	DuplicatePolicy DuplicatePolicy `json:"duplicate_policy,omitempty" yaml:"duplicate_policy,omitempty"`
	// ChecksumMode selects the byte form used by VerifyEntry and extract verification.
	ChecksumMode ChecksumMode `json:"checksum_mode,omitempty" yaml:"checksum_mode,omitempty"`
	// MinEntryOriginalSize drops entries with smaller decompressed size from listing helpers.
	MinEntryOriginalSize uint64 `json:"min_entry_original_size,omitempty" yaml:"min_entry_original_size,omitempty"`
	// MinEntryStoredSize drops entries with smaller stored size from listing helpers.
	MinEntryStoredSize uint64 `json:"min_entry_stored_size,omitempty" yaml:"min_entry_stored_size,omitempty"`
	// EntryPathPrefix limits listing helpers to entries under the prefix.
	EntryPathPrefix string `json:"entry_path_prefix,omitempty" yaml:"entry_path_prefix,omitempty"`
	// SanitizeNames rewrites entry paths to filesystem-safe names for listing workflows.
	SanitizeNames bool `json:"sanitize_names,omitempty" yaml:"sanitize_names,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// OnIntegrityWarning is called for checksum mismatches; extraction continues.
	OnIntegrityWarning func(entry EntryInfo, err error) `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Entries limits extraction to selected metadata list; nil means all parsed entries.
	Entries []EntryInfo `json:"-" yaml:"-"`
	// Select defines ordered path rules limiting which entries are extracted.
	Select []pathrules.Rule `json:"select,omitempty" yaml:"select,omitempty"`
	// SelectMatcherOptions control select rule matching.
	SelectMatcherOptions pathrules.MatcherOptions `json:"select_matcher_options,omitzero" yaml:"select_matcher_options,omitzero"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// RawNames disables default path sanitization during extract.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
	// VerifyChecksums enables adlr verification per extracted entry.
	VerifyChecksums bool `json:"verify_checksums,omitempty" yaml:"verify_checksums,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeOverwriteSmart rewrites files in place and truncates only when existing file is larger.
	ExtractFileModeOverwriteSmart ExtractFileMode = "overwrite_smart"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// PackEntryProgress contains one completed entry write event from pack flow.
type PackEntryProgress struct {
	// Path is entry name written to archive.
	Path string `json:"path" yaml:"path"`
	// OriginalSize is total source bytes consumed for this entry.
	OriginalSize uint64 `json:"original_size" yaml:"original_size"`
	// StoredSize is total payload bytes written for this entry.
	StoredSize uint64 `json:"stored_size" yaml:"stored_size"`
	// Segments is number of payload segments written.
	Segments int `json:"segments" yaml:"segments"`
	// CompressionCandidate reports whether compression path was selected for this input entry.
	CompressionCandidate bool `json:"compression_candidate,omitempty" yaml:"compression_candidate,omitempty"`
	// Compressed reports whether deflated payload was actually written.
	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// PackOptions configures pack behavior.
type PackOptions struct {
	// OnEntryDone is called after one entry is fully written to archive payload.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Compress defines ordered path rules for compression candidate selection.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions control compression path rule matching.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitzero"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// MinCompressSize disables compression for entries smaller than this size.
	// Default is 512 bytes.
	MinCompressSize uint64 `json:"min_compress_size,omitempty" yaml:"min_compress_size,omitempty"`
	// MaxCompressSize disables compression for entries larger than this size.
	// Default is 16 MiB and also bounds known-size in-memory compression path.
	MaxCompressSize uint64 `json:"max_compress_size,omitempty" yaml:"max_compress_size,omitempty"`
	// SegmentSplitSize splits payloads into independent segments of this size (zero disables).
	SegmentSplitSize uint64 `json:"segment_split_size,omitempty" yaml:"segment_split_size,omitempty"`
	// StoreIndexRaw writes the metadata index uncompressed.
	StoreIndexRaw bool `json:"store_index_raw,omitempty" yaml:"store_index_raw,omitempty"`
	// SkipChecksums disables adlr chunk emission.
	SkipChecksums bool `json:"skip_checksums,omitempty" yaml:"skip_checksums,omitempty"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	// WrittenEntries is number of entries written to archive.
	WrittenEntries int `json:"written_entries" yaml:"written_entries"`
	// DataSize is total payload bytes written.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// IndexSize is total index bytes written including its mini-header.
	IndexSize int64 `json:"index_size" yaml:"index_size"`
	// RawBytes is total bytes written for uncompressed payload segments.
	RawBytes int64 `json:"raw_bytes,omitempty" yaml:"raw_bytes,omitempty"`
	// CompressedBytes is total bytes written for deflated payload segments.
	CompressedBytes int64 `json:"compressed_bytes,omitempty" yaml:"compressed_bytes,omitempty"`
	// CompressedEntries is number of entries written with at least one deflated segment.
	CompressedEntries int `json:"compressed_entries,omitempty" yaml:"compressed_entries,omitempty"`
	// SkippedCompressionEntries is number of compression candidates stored as raw payload.
	SkippedCompressionEntries int `json:"skipped_compression_entries,omitempty" yaml:"skipped_compression_entries,omitempty"`
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *ReaderOptions) applyDefaults() {
	if opts.HeaderMode == "" {
		opts.HeaderMode = HeaderModeAuto
	}

	if opts.DuplicatePolicy == "" {
		opts.DuplicatePolicy = DuplicateLastWins
	}

	if opts.ChecksumMode == "" {
		opts.ChecksumMode = ChecksumDecompressed
	}
}

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.MinCompressSize == 0 {
		opts.MinCompressSize = DefaultMinCompressSize
	}

	if opts.MaxCompressSize == 0 || opts.MaxCompressSize <= opts.MinCompressSize {
		opts.MaxCompressSize = DefaultMaxCompressSize
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}
