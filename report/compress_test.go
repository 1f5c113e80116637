package report

import (
	"bytes"
	"testing"
)

func TestCompressDecompressRoundTrips(t *testing.T) {
	original := []byte(`{"run_id":"abc","cost":1.5,"design":[{"collection":"orders"}]}`)

	compressed, err := Compress(original)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) == 0 {
		t.Fatalf("Compress produced empty output")
	}

	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, original) {
		t.Fatalf("Decompress(Compress(x)) != x:\ngot  %s\nwant %s", decompressed, original)
	}
}

func TestCompressHandlesEmptyInput(t *testing.T) {
	compressed, err := Compress(nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(decompressed) != 0 {
		t.Fatalf("Decompress(Compress(nil)) = %v, want empty", decompressed)
	}
}
