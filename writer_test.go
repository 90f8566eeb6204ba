package xp3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/pathrules"
)

// bytesInput builds a pack input backed by an in-memory payload.
func bytesInput(path string, data []byte) Input {
	return Input{
		Path:     path,
		SizeHint: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// noisePayload returns n pseudo-random bytes that deflate poorly.
func noisePayload(n int) []byte {
	out := make([]byte, n)
	state := uint32(0x2545F491)
	for i := range out {
		state = state*1664525 + 1013904223
		out[i] = byte(state >> 24)
	}

	return out
}

// compressKS marks script files as compression candidates.
func compressKS() []pathrules.Rule {
	return []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "*.ks"}}
}

// TestPack_RoundTrip verifies packed archives open cleanly with intact
// content, ordering, and checksums.
func TestPack_RoundTrip(t *testing.T) {
	script := compressiblePayload(20000)
	image := noisePayload(4096)
	note := []byte("short note")

	inputs := []Input{
		bytesInput("script/main.ks", script),
		bytesInput("bg/room1.tlg", image),
		bytesInput("readme.txt", note),
	}

	outPath := filepath.Join(t.TempDir(), "out.xp3")
	res, err := PackFile(context.Background(), outPath, inputs, PackOptions{Compress: compressKS()})
	if err != nil {
		t.Fatalf("PackFile: %v", err)
	}
	if res.WrittenEntries != 3 {
		t.Fatalf("WrittenEntries = %d, want 3", res.WrittenEntries)
	}

	r, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open packed archive: %v", err)
	}
	defer func() { _ = r.Close() }()

	// Inputs are sorted by path on pack.
	want := []string{"bg/room1.tlg", "readme.txt", "script/main.ks"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("unexpected listing %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("listing[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for name, payload := range map[string][]byte{
		"script/main.ks": script,
		"bg/room1.tlg":   image,
		"readme.txt":     note,
	} {
		data, err := r.ReadEntry(name)
		if err != nil {
			t.Fatalf("ReadEntry(%s): %v", name, err)
		}
		if !bytes.Equal(data, payload) {
			t.Fatalf("payload mismatch for %s", name)
		}

		if err := r.VerifyEntry(name); err != nil {
			t.Fatalf("VerifyEntry(%s): %v", name, err)
		}
	}

	ks, _ := r.Entry("script/main.ks")
	if !ks.IsCompressed() {
		t.Fatal("expected script entry deflated")
	}

	bg, _ := r.Entry("bg/room1.tlg")
	if bg.IsCompressed() {
		t.Fatal("expected image entry stored raw")
	}
}

// TestPack_CompressionOnlyWhenItWins verifies incompressible candidates fall
// back to raw storage.
func TestPack_CompressionOnlyWhenItWins(t *testing.T) {
	noise := noisePayload(8192)

	outPath := filepath.Join(t.TempDir(), "out.xp3")
	res, err := PackFile(context.Background(), outPath, []Input{
		bytesInput("noise.ks", noise),
	}, PackOptions{Compress: compressKS()})
	if err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	if res.CompressedEntries != 0 {
		t.Fatalf("CompressedEntries = %d, want 0", res.CompressedEntries)
	}
	if res.SkippedCompressionEntries != 1 {
		t.Fatalf("SkippedCompressionEntries = %d, want 1", res.SkippedCompressionEntries)
	}

	r, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	e, ok := r.Entry("noise.ks")
	if !ok || e.IsCompressed() {
		t.Fatalf("expected raw stored entry, got %+v ok=%v", e, ok)
	}

	data, err := r.ReadEntry("noise.ks")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !bytes.Equal(data, noise) {
		t.Fatal("payload mismatch")
	}
}

// TestPack_SplitSegments verifies segment splitting and reconstruction.
func TestPack_SplitSegments(t *testing.T) {
	payload := compressiblePayload(3000)

	outPath := filepath.Join(t.TempDir(), "out.xp3")
	if _, err := PackFile(context.Background(), outPath, []Input{
		bytesInput("split/data.ks", payload),
	}, PackOptions{
		Compress:         compressKS(),
		SegmentSplitSize: 1024,
	}); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	r, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	e, ok := r.Entry("split/data.ks")
	if !ok {
		t.Fatal("entry not found")
	}
	if len(e.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(e.Segments))
	}
	if e.OriginalSize != 3000 {
		t.Fatalf("OriginalSize = %d, want 3000", e.OriginalSize)
	}

	data, err := r.ReadEntry("split/data.ks")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("payload mismatch")
	}

	if err := r.VerifyEntry("split/data.ks"); err != nil {
		t.Fatalf("VerifyEntry: %v", err)
	}
}

// TestPack_RawIndex verifies archives with an uncompressed index open.
func TestPack_RawIndex(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.xp3")
	if _, err := PackFile(context.Background(), outPath, []Input{
		bytesInput("a.txt", []byte("raw index archive")),
	}, PackOptions{StoreIndexRaw: true}); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	r, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	data, err := r.ReadEntry("a.txt")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(data) != "raw index archive" {
		t.Fatalf("unexpected payload %q", data)
	}
}

// TestPack_EmptyEntry verifies zero-length inputs stay addressable.
func TestPack_EmptyEntry(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.xp3")
	if _, err := PackFile(context.Background(), outPath, []Input{
		bytesInput("empty.dat", nil),
		bytesInput("full.dat", []byte("x")),
	}, PackOptions{}); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	r, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	e, ok := r.Entry("empty.dat")
	if !ok {
		t.Fatal("empty entry not found")
	}
	if e.OriginalSize != 0 || len(e.Segments) != 1 {
		t.Fatalf("unexpected empty entry %+v", e)
	}

	data, err := r.ReadEntry("empty.dat")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(data))
	}

	if err := r.VerifyEntry("empty.dat"); err != nil {
		t.Fatalf("VerifyEntry: %v", err)
	}
}

// TestPack_SkipChecksums verifies adlr chunks are omitted on request.
func TestPack_SkipChecksums(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.xp3")
	if _, err := PackFile(context.Background(), outPath, []Input{
		bytesInput("a.txt", []byte("no checksum")),
	}, PackOptions{SkipChecksums: true}); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	r, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	e, _ := r.Entry("a.txt")
	if e.HasChecksum {
		t.Fatal("expected no adlr chunk")
	}
}

// TestPack_InputValidation verifies pack input error cases.
func TestPack_InputValidation(t *testing.T) {
	ctx := context.Background()
	outPath := filepath.Join(t.TempDir(), "out.xp3")

	if _, err := PackFile(ctx, outPath, nil, PackOptions{}); !errors.Is(err, ErrEmptyInputs) {
		t.Fatalf("expected ErrEmptyInputs, got %v", err)
	}

	_, err := PackFile(ctx, outPath, []Input{
		bytesInput("dir/a.txt", []byte("one")),
		bytesInput(`dir\a.txt`, []byte("two")),
	}, PackOptions{})
	if !errors.Is(err, ErrDuplicateInputPath) {
		t.Fatalf("expected ErrDuplicateInputPath, got %v", err)
	}

	_, err = PackFile(ctx, outPath, []Input{
		bytesInput("   ", []byte("nameless")),
	}, PackOptions{})
	if !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("expected ErrInvalidEntryPath, got %v", err)
	}

	if _, err := Pack(ctx, nil, []Input{bytesInput("a", nil)}, PackOptions{}); !errors.Is(err, ErrNilWriter) {
		t.Fatalf("expected ErrNilWriter, got %v", err)
	}

	// Names longer than the reader's code unit cap never make it into an
	// archive this package would then refuse to open.
	long := "dir/" + strings.Repeat("x", maxNameChars) + ".dat"
	_, err = PackFile(ctx, outPath, []Input{
		bytesInput(long, []byte("too long")),
	}, PackOptions{})
	if !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("expected ErrInvalidEntryPath for oversized name, got %v", err)
	}
}

// TestPack_Cancelled verifies context cancellation aborts packing.
func TestPack_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outPath := filepath.Join(t.TempDir(), "out.xp3")
	_, err := PackFile(ctx, outPath, []Input{
		bytesInput("a.txt", []byte("never written")),
	}, PackOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// TestPack_PathNormalization verifies entry paths are normalized to forward
// slashes on pack.
func TestPack_PathNormalization(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.xp3")
	if _, err := PackFile(context.Background(), outPath, []Input{
		bytesInput(`.\data\sub\file.bin`, []byte("payload")),
	}, PackOptions{}); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	r, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if _, ok := r.Entry("data/sub/file.bin"); !ok {
		t.Fatalf("normalized entry not found, listing %v", r.List())
	}
}

// TestPack_OnEntryDone verifies progress callbacks fire per written entry.
func TestPack_OnEntryDone(t *testing.T) {
	var events []PackEntryProgress
	outPath := filepath.Join(t.TempDir(), "out.xp3")
	if _, err := PackFile(context.Background(), outPath, []Input{
		bytesInput("b.ks", compressiblePayload(4000)),
		bytesInput("a.txt", []byte("x")),
	}, PackOptions{
		Compress: compressKS(),
		OnEntryDone: func(entry PackEntryProgress) {
			events = append(events, entry)
		},
	}); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 progress events, got %d", len(events))
	}
	if events[0].Path != "a.txt" || events[1].Path != "b.ks" {
		t.Fatalf("unexpected event order %+v", events)
	}
	if !events[1].Compressed || !events[1].CompressionCandidate {
		t.Fatalf("expected compressed script event, got %+v", events[1])
	}
}
