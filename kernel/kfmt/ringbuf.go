package kfmt

import "io"

// earlyBufferSize defines the size of the early boot output buffer. It must
// be a power of 2 and defaults to enough space for a full 80x25 text-mode
// screen of output.
const earlyBufferSize = 2048

// ringBuffer is a fixed-size circular buffer that stores Printf output
// generated before an output sink is registered. When the buffer fills up,
// the oldest data is overwritten.
type ringBuffer struct {
	data           [earlyBufferSize]byte
	rIndex, wIndex int
}

// Write appends p to the buffer, overwriting the oldest data if the buffer
// is full. It never fails.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.data[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (earlyBufferSize - 1)
		if rb.rIndex == rb.wIndex {
			rb.rIndex = (rb.rIndex + 1) & (earlyBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read copies up to len(p) buffered bytes into p, returning io.EOF once the
// buffer has been fully drained.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	var n int

	switch {
	case rb.rIndex < rb.wIndex:
		n = rb.wIndex - rb.rIndex
		if len(p) < n {
			n = len(p)
		}

		copy(p, rb.data[rb.rIndex:rb.rIndex+n])
		rb.rIndex += n
		return n, nil
	case rb.rIndex > rb.wIndex:
		// The unread data wraps around the end of the buffer; serve
		// the tail end first.
		n = earlyBufferSize - rb.rIndex
		if len(p) < n {
			n = len(p)
		}

		copy(p, rb.data[rb.rIndex:rb.rIndex+n])
		rb.rIndex = (rb.rIndex + n) & (earlyBufferSize - 1)
		return n, nil
	default:
		return 0, io.EOF
	}
}
