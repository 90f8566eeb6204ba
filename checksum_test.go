package xp3

import (
	"bytes"
	"errors"
	"hash/adler32"
	"testing"
)

// TestVerifyEntry_Match verifies checksum verification on sound entries.
func TestVerifyEntry_Match(t *testing.T) {
	r := openTestArchive(t, []testFile{
		{name: "plain.txt", segments: []testSegment{{data: []byte("plain payload")}}},
		{name: "packed.bin", segments: []testSegment{{data: compressiblePayload(4000), compressed: true}}},
	}, testArchiveConfig{})

	for _, name := range []string{"plain.txt", "packed.bin"} {
		if err := r.VerifyEntry(name); err != nil {
			t.Fatalf("VerifyEntry(%s): %v", name, err)
		}
	}
}

// TestVerifyEntry_Mismatch verifies a wrong adlr value is reported as a
// checksum mismatch while the entry itself stays readable.
func TestVerifyEntry_Mismatch(t *testing.T) {
	bad := uint32(0xDEADBEEF)
	r := openTestArchive(t, []testFile{
		{
			name:             "tampered.bin",
			segments:         []testSegment{{data: []byte("actual content")}},
			checksumOverride: &bad,
		},
	}, testArchiveConfig{})

	if err := r.VerifyEntry("tampered.bin"); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}

	data, err := r.ReadEntry("tampered.bin")
	if err != nil {
		t.Fatalf("ReadEntry after mismatch: %v", err)
	}
	if string(data) != "actual content" {
		t.Fatalf("unexpected payload %q", data)
	}
}

// TestVerifyEntry_StoredMode verifies checksum verification against the
// on-disk byte form instead of the reconstructed payload.
func TestVerifyEntry_StoredMode(t *testing.T) {
	payload := compressiblePayload(3000)
	storedSum := adler32.Checksum(zlibCompress(t, payload))

	image := buildTestArchive(t, []testFile{
		{
			name:             "stored-sum.bin",
			segments:         []testSegment{{data: payload, compressed: true}},
			checksumOverride: &storedSum,
		},
	}, testArchiveConfig{})
	path := writeTestArchive(t, image)

	r, err := OpenWithOptions(path, ReaderOptions{ChecksumMode: ChecksumStored})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if err := r.VerifyEntry("stored-sum.bin"); err != nil {
		t.Fatalf("VerifyEntry stored mode: %v", err)
	}

	// The same value cannot match the decompressed form.
	rd, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = rd.Close() }()

	if err := rd.VerifyEntry("stored-sum.bin"); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch in decompressed mode, got %v", err)
	}
}

// TestVerifyEntry_Off verifies disabled verification ignores bad checksums.
func TestVerifyEntry_Off(t *testing.T) {
	bad := uint32(0x12345678)
	image := buildTestArchive(t, []testFile{
		{
			name:             "ignored.bin",
			segments:         []testSegment{{data: []byte("whatever")}},
			checksumOverride: &bad,
		},
	}, testArchiveConfig{})

	r, err := OpenWithOptions(writeTestArchive(t, image), ReaderOptions{ChecksumMode: ChecksumOff})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if err := r.VerifyEntry("ignored.bin"); err != nil {
		t.Fatalf("VerifyEntry with verification off: %v", err)
	}
}

// TestVerifyEntry_NoChecksum verifies entries without an adlr chunk verify clean.
func TestVerifyEntry_NoChecksum(t *testing.T) {
	r := openTestArchive(t, []testFile{
		{name: "bare.bin", segments: []testSegment{{data: []byte("no adlr")}}, omitAdlr: true},
	}, testArchiveConfig{})

	e, ok := r.Entry("bare.bin")
	if !ok || e.HasChecksum {
		t.Fatalf("unexpected entry state %+v ok=%v", e, ok)
	}

	if err := r.VerifyEntry("bare.bin"); err != nil {
		t.Fatalf("VerifyEntry without adlr: %v", err)
	}
}

// TestVerifyEntry_MultiSegment verifies the checksum covers the concatenated
// payload across segments.
func TestVerifyEntry_MultiSegment(t *testing.T) {
	payload := compressiblePayload(9000)
	r := openTestArchive(t, []testFile{
		{
			name: "multi.bin",
			segments: []testSegment{
				{data: payload[:2500], compressed: true},
				{data: payload[2500:7000]},
				{data: payload[7000:], compressed: true},
			},
		},
	}, testArchiveConfig{})

	if err := r.VerifyEntry("multi.bin"); err != nil {
		t.Fatalf("VerifyEntry: %v", err)
	}

	data, err := r.ReadEntry("multi.bin")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("payload mismatch")
	}
}
