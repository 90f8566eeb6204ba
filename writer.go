// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"io"
	"os"
	"sort"
	"unicode/utf16"
)

// packCopyChunkSize bounds one read of a raw-streamed payload.
const packCopyChunkSize = 256 * 1024

// writtenEntry stores concrete entry values produced during payload write.
type writtenEntry struct {
	path                 string
	segments             []Segment
	originalSize         uint64
	storedSize           uint64
	checksum             uint32
	compressionCandidate bool
	compressed           bool
}

// Pack writes an XP3 archive to out from the given inputs.
// Inputs are sorted by path for deterministic output. The output seeker is
// required because the header's index offset field is patched after payloads.
func Pack(ctx context.Context, out io.WriteSeeker, inputs []Input, opts PackOptions) (*PackResult, error) {
	if out == nil {
		return nil, ErrNilWriter
	}

	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	matcher, err := newCompressMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("compile compress rules: %w", err)
	}

	plan, err := preparePackPlan(inputs)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriterSize(out, opts.WriterBufferSize)

	header := make([]byte, legacyHeaderSize)
	copy(header, signature)
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	res := &PackResult{}
	written := make([]writtenEntry, 0, len(plan))
	currentOffset := uint64(legacyHeaderSize)

	for i := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := writeInputPayload(w, &plan[i], opts, matcher, currentOffset)
		if err != nil {
			return nil, err
		}

		written = append(written, record)
		currentOffset += record.storedSize
		res.DataSize += int64(record.storedSize)

		for _, seg := range record.segments {
			if seg.Compressed {
				res.CompressedBytes += int64(seg.StoredSize)
			} else {
				res.RawBytes += int64(seg.StoredSize)
			}
		}

		if record.compressed {
			res.CompressedEntries++
		} else if record.compressionCandidate {
			res.SkippedCompressionEntries++
		}

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(PackEntryProgress{
				Path:                 record.path,
				OriginalSize:         record.originalSize,
				StoredSize:           record.storedSize,
				Segments:             len(record.segments),
				CompressionCandidate: record.compressionCandidate,
				Compressed:           record.compressed,
			})
		}
	}

	indexSize, err := writeIndexBlock(w, written, opts)
	if err != nil {
		return nil, err
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush archive: %w", err)
	}

	// Patch index offset in the fixed header.
	var offsetField [8]byte
	binary.LittleEndian.PutUint64(offsetField[:], currentOffset)
	if _, err := out.Seek(signatureSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to header offset field: %w", err)
	}

	if _, err := out.Write(offsetField[:]); err != nil {
		return nil, fmt.Errorf("patch index offset: %w", err)
	}

	if _, err := out.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("seek to archive end: %w", err)
	}

	res.WrittenEntries = len(written)
	res.IndexSize = indexSize
	return res, nil
}

// PackFile writes an XP3 archive to outPath.
func PackFile(ctx context.Context, outPath string, inputs []Input, opts PackOptions) (*PackResult, error) {
	f, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create XP3 file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	res, err := Pack(ctx, f, inputs, opts)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync XP3 file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close XP3 file: %w", err)
	}
	f = nil

	return res, nil
}

// preparePackPlan normalizes and sorts pack inputs for deterministic output.
func preparePackPlan(inputs []Input) ([]Input, error) {
	sorted := make([]Input, len(inputs))
	copy(sorted, inputs)

	for i := range sorted {
		normalizedPath, err := normalizeArchiveEntryPath(sorted[i].Path)
		if err != nil {
			return nil, err
		}

		// The info chunk stores name length as a 16-bit code unit count, and
		// the reader caps names at maxNameChars.
		if units := len(utf16.Encode([]rune(normalizedPath))); units > maxNameChars {
			return nil, fmt.Errorf("%w: name of %d UTF-16 code units", ErrInvalidEntryPath, units)
		}

		sorted[i].Path = normalizedPath
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Path == sorted[i-1].Path {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateInputPath, sorted[i].Path)
		}
	}

	return sorted, nil
}

// openInputReader opens source stream for one input.
func openInputReader(in *Input) (io.ReadCloser, error) {
	if in.Open == nil {
		return nil, fmt.Errorf("input %s: Open is nil", in.Path)
	}

	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", in.Path, err)
	}

	return rc, nil
}

// writeInputPayload writes one entry payload and returns its written record.
// Payloads are cut into segments of SegmentSplitSize (one unbounded segment
// when zero); each segment is independently deflated when the path matches
// the compression rules, its size fits the bounds, and deflate actually wins.
func writeInputPayload(
	w *bufio.Writer,
	in *Input,
	opts PackOptions,
	matcher *compressMatcher,
	startOffset uint64,
) (writtenEntry, error) {
	record := writtenEntry{
		path:                 in.Path,
		compressionCandidate: matcher.Match(in.Path),
	}

	rc, err := openInputReader(in)
	if err != nil {
		return record, err
	}
	defer func() { _ = rc.Close() }()

	chunkSize := opts.SegmentSplitSize
	split := chunkSize > 0
	if !split || chunkSize > opts.MaxCompressSize {
		// Unsplit candidates are compressed in memory only up to the bound.
		chunkSize = opts.MaxCompressSize
	}

	bufLen, err := checkedUint64ToInt(chunkSize)
	if err != nil {
		return record, fmt.Errorf("%w: segment size %d", ErrSizeOverflow, chunkSize)
	}

	h := adler32.New()
	offset := startOffset
	buf := make([]byte, bufLen)

	for {
		n, readErr := io.ReadFull(rc, buf)
		if readErr == io.ErrUnexpectedEOF {
			readErr = io.EOF
		}
		if readErr != nil && readErr != io.EOF {
			return record, fmt.Errorf("read input %s: %w", in.Path, readErr)
		}

		if n > 0 {
			chunk := buf[:n]
			_, _ = h.Write(chunk)

			// Oversized unsplit payloads continue as one raw segment.
			if !split && readErr == nil {
				seg, err := streamRawSegment(w, in.Path, chunk, rc, h, offset)
				if err != nil {
					return record, err
				}

				record.segments = append(record.segments, seg)
				record.originalSize += seg.OriginalSize
				record.storedSize += seg.StoredSize
				offset += seg.StoredSize
				break
			}

			seg, err := writeSegmentChunk(w, in.Path, chunk, opts, record.compressionCandidate, offset)
			if err != nil {
				return record, err
			}

			if seg.Compressed {
				record.compressed = true
			}

			record.segments = append(record.segments, seg)
			record.originalSize += seg.OriginalSize
			record.storedSize += seg.StoredSize
			offset += seg.StoredSize
		}

		if readErr == io.EOF {
			break
		}
	}

	// Empty inputs still get one stored zero-length segment so the entry
	// remains addressable.
	if len(record.segments) == 0 {
		record.segments = append(record.segments, Segment{Offset: startOffset})
	}

	record.checksum = h.Sum32()
	return record, nil
}

// writeSegmentChunk writes one in-memory chunk as a stored or deflated segment.
func writeSegmentChunk(
	w *bufio.Writer,
	path string,
	chunk []byte,
	opts PackOptions,
	candidate bool,
	offset uint64,
) (Segment, error) {
	seg := Segment{
		Offset:       offset,
		OriginalSize: uint64(len(chunk)),
	}

	payload := chunk
	if candidate && shouldCompressBySize(opts, uint64(len(chunk))) {
		compressed, err := deflate(chunk)
		if err != nil {
			return seg, fmt.Errorf("compress input %s: %w", path, err)
		}

		// Compression is kept only when it actually wins.
		if len(compressed) < len(chunk) {
			payload = compressed
			seg.Compressed = true
		}
	}

	seg.StoredSize = uint64(len(payload))
	if _, err := w.Write(payload); err != nil {
		return seg, fmt.Errorf("write payload %s: %w", path, err)
	}

	return seg, nil
}

// streamRawSegment writes the buffered head plus the remaining source stream
// as a single stored segment of initially unknown size.
func streamRawSegment(
	w *bufio.Writer,
	path string,
	head []byte,
	rc io.Reader,
	h io.Writer,
	offset uint64,
) (Segment, error) {
	seg := Segment{Offset: offset}

	if _, err := w.Write(head); err != nil {
		return seg, fmt.Errorf("write payload %s: %w", path, err)
	}

	n, err := io.CopyBuffer(w, io.TeeReader(rc, h), make([]byte, packCopyChunkSize))
	if err != nil {
		return seg, fmt.Errorf("write payload %s: %w", path, err)
	}

	seg.OriginalSize = uint64(len(head)) + uint64(n)
	seg.StoredSize = seg.OriginalSize
	return seg, nil
}

// writeIndexBlock builds the metadata index, optionally deflates it, and
// writes the index mini-header plus payload. Returns total index bytes.
func writeIndexBlock(w *bufio.Writer, written []writtenEntry, opts PackOptions) (int64, error) {
	index := buildIndex(written, opts)

	if opts.StoreIndexRaw {
		var mini [1 + 8]byte
		mini[0] = indexStored
		binary.LittleEndian.PutUint64(mini[1:], uint64(len(index)))
		if _, err := w.Write(mini[:]); err != nil {
			return 0, fmt.Errorf("write index header: %w", err)
		}

		if _, err := w.Write(index); err != nil {
			return 0, fmt.Errorf("write index: %w", err)
		}

		return int64(len(mini) + len(index)), nil
	}

	compressed, err := deflate(index)
	if err != nil {
		return 0, fmt.Errorf("compress index: %w", err)
	}

	var mini [1 + 16]byte
	mini[0] = 0x01
	binary.LittleEndian.PutUint64(mini[1:9], uint64(len(index)))
	binary.LittleEndian.PutUint64(mini[9:17], uint64(len(compressed)))
	if _, err := w.Write(mini[:]); err != nil {
		return 0, fmt.Errorf("write index header: %w", err)
	}

	if _, err := w.Write(compressed); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}

	return int64(len(mini) + len(compressed)), nil
}

// buildIndex serializes File records for all written entries.
func buildIndex(written []writtenEntry, opts PackOptions) []byte {
	var index []byte
	for i := range written {
		record := buildFileRecord(&written[i], opts)
		index = appendChunk(index, TagFile, record)
	}

	return index
}

// buildFileRecord serializes info, segm, and adlr sub-chunks for one entry.
func buildFileRecord(record *writtenEntry, opts PackOptions) []byte {
	name := utf16.Encode([]rune(record.path))

	info := make([]byte, 0, 4+8+8+2+len(name)*2)
	info = binary.LittleEndian.AppendUint32(info, 0)
	info = binary.LittleEndian.AppendUint64(info, record.originalSize)
	info = binary.LittleEndian.AppendUint64(info, record.storedSize)
	info = binary.LittleEndian.AppendUint16(info, uint16(len(name)))
	for _, unit := range name {
		info = binary.LittleEndian.AppendUint16(info, unit)
	}

	segm := make([]byte, 0, len(record.segments)*segmentRecordSize)
	for _, seg := range record.segments {
		var flags uint32
		if seg.Compressed {
			flags = 1
		}

		segm = binary.LittleEndian.AppendUint32(segm, flags)
		segm = binary.LittleEndian.AppendUint64(segm, seg.Offset)
		segm = binary.LittleEndian.AppendUint64(segm, seg.OriginalSize)
		segm = binary.LittleEndian.AppendUint64(segm, seg.StoredSize)
	}

	var body []byte
	body = appendChunk(body, TagInfo, info)
	body = appendChunk(body, TagSegm, segm)
	if !opts.SkipChecksums {
		adlr := binary.LittleEndian.AppendUint32(nil, record.checksum)
		body = appendChunk(body, TagAdlr, adlr)
	}

	return body
}

// appendChunk appends one (tag, length, body) chunk to dst.
func appendChunk(dst []byte, tag ChunkTag, body []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(tag))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(len(body)))
	return append(dst, body...)
}
