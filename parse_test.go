package xp3

import (
	"bytes"
	"encoding/binary"
	"hash/adler32"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"
)

// testSegment describes one payload segment for hand-built archives.
type testSegment struct {
	data       []byte
	compressed bool
	// pad inserts zero bytes before the segment payload to control offsets.
	pad int
	// originalOverride replaces the segm record original size (for mismatch cases).
	originalOverride *uint64
}

// testFile describes one entry for hand-built archives.
type testFile struct {
	name     string
	segments []testSegment
	// nameBytes overrides the UTF-16LE encoded name (for bad-name cases).
	nameBytes []byte
	// extraChunks are appended raw inside the File record.
	extraChunks [][]byte
	// declaredOriginal overrides the info chunk original size.
	declaredOriginal *uint64
	// checksumOverride replaces the computed adlr value.
	checksumOverride *uint32
	omitInfo         bool
	omitSegm         bool
	omitAdlr         bool
}

// testArchiveConfig controls container-level layout of hand-built archives.
type testArchiveConfig struct {
	// rawIndex stores the index uncompressed (flag byte 0).
	rawIndex bool
	// extended emits a junk first offset plus marker and superseding offset.
	extended bool
	// indexPrefix is injected raw before the first File record.
	indexPrefix []byte
	// indexSuffix is injected raw after the last File record.
	indexSuffix []byte
}

// tchunk builds one (tag, length, body) chunk with a literal ASCII tag.
func tchunk(tag string, body []byte) []byte {
	out := make([]byte, 0, 12+len(body))
	out = append(out, tag...)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(body)))
	return append(out, body...)
}

// utf16leBytes encodes a string as UTF-16LE.
func utf16leBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = binary.LittleEndian.AppendUint16(out, u)
	}

	return out
}

// zlibCompress deflates data the way archive producers do.
func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	return buf.Bytes()
}

// buildTestArchive assembles a complete archive image from file specs.
func buildTestArchive(t *testing.T, files []testFile, cfg testArchiveConfig) []byte {
	t.Helper()

	headerSize := legacyHeaderSize
	if cfg.extended {
		headerSize = extendedHeaderSize
	}

	var data bytes.Buffer
	emptyIndexOffset := -1
	if cfg.extended {
		// Decoy target for the first offset field: an empty stored index.
		emptyIndexOffset = headerSize + data.Len()
		data.WriteByte(0x00)
		data.Write(make([]byte, 8))
	}

	var records [][]byte
	for _, file := range files {
		var original []byte
		var segm []byte
		var storedTotal uint64

		for _, seg := range file.segments {
			if seg.pad > 0 {
				data.Write(make([]byte, seg.pad))
			}

			stored := seg.data
			if seg.compressed {
				stored = zlibCompress(t, seg.data)
			}

			offset := uint64(headerSize + data.Len())
			data.Write(stored)

			var flags uint32
			if seg.compressed {
				flags = 1
			}

			segOriginal := uint64(len(seg.data))
			if seg.originalOverride != nil {
				segOriginal = *seg.originalOverride
			}

			segm = binary.LittleEndian.AppendUint32(segm, flags)
			segm = binary.LittleEndian.AppendUint64(segm, offset)
			segm = binary.LittleEndian.AppendUint64(segm, segOriginal)
			segm = binary.LittleEndian.AppendUint64(segm, uint64(len(stored)))

			original = append(original, seg.data...)
			storedTotal += uint64(len(stored))
		}

		originalSize := uint64(len(original))
		if file.declaredOriginal != nil {
			originalSize = *file.declaredOriginal
		}

		nameBytes := file.nameBytes
		if nameBytes == nil {
			nameBytes = utf16leBytes(file.name)
		}

		var info []byte
		info = binary.LittleEndian.AppendUint32(info, 0)
		info = binary.LittleEndian.AppendUint64(info, originalSize)
		info = binary.LittleEndian.AppendUint64(info, storedTotal)
		info = binary.LittleEndian.AppendUint16(info, uint16(len(nameBytes)/2))
		info = append(info, nameBytes...)

		var record []byte
		if !file.omitInfo {
			record = append(record, tchunk("info", info)...)
		}
		if !file.omitSegm {
			record = append(record, tchunk("segm", segm)...)
		}
		if !file.omitAdlr {
			sum := adler32.Checksum(original)
			if file.checksumOverride != nil {
				sum = *file.checksumOverride
			}

			record = append(record, tchunk("adlr", binary.LittleEndian.AppendUint32(nil, sum))...)
		}
		for _, extra := range file.extraChunks {
			record = append(record, extra...)
		}

		records = append(records, tchunk("File", record))
	}

	var index []byte
	index = append(index, cfg.indexPrefix...)
	for _, record := range records {
		index = append(index, record...)
	}
	index = append(index, cfg.indexSuffix...)

	indexOffset := uint64(headerSize + data.Len())

	var block []byte
	if cfg.rawIndex {
		block = append(block, 0x00)
		block = binary.LittleEndian.AppendUint64(block, uint64(len(index)))
		block = append(block, index...)
	} else {
		compressed := zlibCompress(t, index)
		block = append(block, 0x01)
		block = binary.LittleEndian.AppendUint64(block, uint64(len(index)))
		block = binary.LittleEndian.AppendUint64(block, uint64(len(compressed)))
		block = append(block, compressed...)
	}

	archive := make([]byte, 0, headerSize+data.Len()+len(block))
	archive = append(archive, signature...)
	if cfg.extended {
		archive = binary.LittleEndian.AppendUint64(archive, uint64(emptyIndexOffset))
		archive = append(archive, extendedMarker)
		archive = binary.LittleEndian.AppendUint64(archive, indexOffset)
	} else {
		archive = binary.LittleEndian.AppendUint64(archive, indexOffset)
	}

	archive = append(archive, data.Bytes()...)
	archive = append(archive, block...)
	return archive
}

// writeTestArchive writes an archive image to a temp file and returns its path.
func writeTestArchive(t *testing.T, image []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.xp3")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	return path
}

// openTestArchive builds, writes, and opens an archive in one step.
func openTestArchive(t *testing.T, files []testFile, cfg testArchiveConfig) *Reader {
	t.Helper()

	r, err := Open(writeTestArchive(t, buildTestArchive(t, files, cfg)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	return r
}
