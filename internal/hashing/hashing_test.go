package hashing_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/raysh454/threatcheck/internal/hashing"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestSHA256Hex_Deterministic(t *testing.T) {
	t.Parallel()
	data := []byte("the quick brown fox")
	a := hashing.SHA256Hex(data)
	b := hashing.SHA256Hex(append([]byte(nil), data...))
	if a != b {
		t.Errorf("same bytes produced %s and %s", a, b)
	}
	if !hexDigest.MatchString(a) {
		t.Errorf("digest %q is not 64 lowercase hex chars", a)
	}
}

func TestSHA256Hex_DifferentInputs(t *testing.T) {
	t.Parallel()
	if hashing.SHA256Hex([]byte("a")) == hashing.SHA256Hex([]byte("b")) {
		t.Errorf("different inputs produced the same digest")
	}
}

func TestSHA256Hex_Empty(t *testing.T) {
	t.Parallel()
	if got := hashing.SHA256Hex(nil); got != hashing.EmptySHA256 {
		t.Errorf("nil input: got %s", got)
	}
	if got := hashing.SHA256Hex([]byte{}); got != hashing.EmptySHA256 {
		t.Errorf("empty input: got %s", got)
	}
}

func TestSHA256Hex_KnownVector(t *testing.T) {
	t.Parallel()
	const abc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := hashing.SHA256Hex([]byte("abc")); got != abc {
		t.Errorf("sha256(abc) = %s", got)
	}
}

func TestSHA256Reader_MatchesBytes(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("0123456789"), 10_000)
	got, err := hashing.SHA256Reader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("SHA256Reader: %v", err)
	}
	if got != hashing.SHA256Hex(data) {
		t.Errorf("streamed digest differs from in-memory digest")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestSHA256Reader_PropagatesError(t *testing.T) {
	t.Parallel()
	if _, err := hashing.SHA256Reader(failingReader{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSHA256File(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := hashing.SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File: %v", err)
	}
	if got != hashing.SHA256Hex([]byte("abc")) {
		t.Errorf("file digest mismatch: %s", got)
	}

	if _, err := hashing.SHA256File(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
