package miniaudio

import "testing"

func TestFillChunkAdvancesThroughBuffer(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	out := make([]byte, 4)

	offset := fillChunk(out, pcm, 0)
	if offset != 4 {
		t.Fatalf("expected offset 4, got %d", offset)
	}
	if string(out) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("expected first chunk [1 2 3 4], got %v", out)
	}
}

func TestFillChunkZeroesTailOfFinalChunk(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	out := []byte{9, 9, 9, 9}

	offset := fillChunk(out, pcm, 4)
	if offset != 6 {
		t.Fatalf("expected offset 6, got %d", offset)
	}
	if string(out) != string([]byte{5, 6, 0, 0}) {
		t.Fatalf("expected the unused tail to be silenced, got %v", out)
	}
}
