package kfmt

import (
	"bytes"
	"io"
	"testing"
)

func TestRingBufferReadWrite(t *testing.T) {
	var rb ringBuffer

	if _, err := rb.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("expected reading an empty buffer to return io.EOF; got %v", err)
	}

	payload := []byte("the quick brown fox jumps over the lazy dog")
	if n, err := rb.Write(payload); n != len(payload) || err != nil {
		t.Fatalf("expected write to return (%d, nil); got (%d, %v)", len(payload), n, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, &rb); err != nil {
		t.Fatal(err)
	}

	if got := buf.String(); got != string(payload) {
		t.Fatalf("expected to read back %q; got %q", payload, got)
	}
}

func TestRingBufferOverwritesOldestData(t *testing.T) {
	var rb ringBuffer

	// Fill the buffer twice over with a recognizable pattern; only the
	// most recent data should survive.
	for i := 0; i < 2*earlyBufferSize; i++ {
		rb.Write([]byte{byte(i % 251)})
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, &rb); err != nil {
		t.Fatal(err)
	}

	out := buf.Bytes()
	if len(out) >= earlyBufferSize {
		t.Fatalf("expected drained data to be smaller than the buffer size %d; got %d", earlyBufferSize, len(out))
	}

	for i := 1; i < len(out); i++ {
		if exp := byte((int(out[i-1]) + 1) % 251); out[i] != exp {
			t.Fatalf("expected byte %d to be %d; got %d", i, exp, out[i])
		}
	}
}
