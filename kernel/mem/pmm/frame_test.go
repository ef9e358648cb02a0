package pmm

import (
	"testing"

	"github.com/weclaw1/weclaw-os/kernel"
	"github.com/weclaw1/weclaw-os/kernel/mem"
)

func TestFrameMethods(t *testing.T) {
	for frameIndex := uint64(0); frameIndex < 128; frameIndex++ {
		frame := Frame(frameIndex)

		if !frame.Valid() {
			t.Errorf("expected frame %d to be valid", frameIndex)
		}

		if exp, got := uintptr(frameIndex<<mem.PageShift), frame.Address(); got != exp {
			t.Errorf("expected frame (%d, index: %d) call to Address() to return %x; got %x", frame, frameIndex, exp, got)
		}
	}

	invalidFrame := InvalidFrame
	if invalidFrame.Valid() {
		t.Error("expected InvalidFrame.Valid() to return false")
	}
}

func TestFrameFromAddress(t *testing.T) {
	specs := []struct {
		physAddr uintptr
		expFrame Frame
	}{
		{0, Frame(0)},
		{4095, Frame(0)},
		{4096, Frame(1)},
		{4097, Frame(1)},
		{0x9f000, Frame(0x9f)},
		{0x9fc00, Frame(0x9f)},
		{0x100000, Frame(0x100)},
	}

	for specIndex, spec := range specs {
		if got := FrameFromAddress(spec.physAddr); got != spec.expFrame {
			t.Errorf("[spec %d] expected frame for address 0x%x to be %d; got %d", specIndex, spec.physAddr, spec.expFrame, got)
		}
	}
}

type stubAllocator struct {
	allocCalls, freeCalls int
}

func (a *stubAllocator) AllocFrame() (Frame, *kernel.Error) {
	a.allocCalls++
	return Frame(42), nil
}

func (a *stubAllocator) FreeFrame(_ Frame) *kernel.Error {
	a.freeCalls++
	return nil
}

func TestFrameAllocatorRegistration(t *testing.T) {
	defer SetFrameAllocator(nil)

	var stub stubAllocator
	SetFrameAllocator(&stub)

	frame, err := AllocFrame()
	if err != nil {
		t.Fatal(err)
	}

	if exp := Frame(42); frame != exp {
		t.Fatalf("expected AllocFrame to return frame %d; got %d", exp, frame)
	}

	if err = FreeFrame(frame); err != nil {
		t.Fatal(err)
	}

	if stub.allocCalls != 1 || stub.freeCalls != 1 {
		t.Fatalf("expected the registered allocator to receive 1 alloc and 1 free call; got %d and %d", stub.allocCalls, stub.freeCalls)
	}
}
