package pmm

import "github.com/weclaw1/weclaw-os/kernel"

// FrameAllocator is implemented by components that can hand out free
// physical frames and reclaim previously allocated ones. The rest of the
// memory subsystem depends only on this capability and not on the internals
// of any particular allocator.
type FrameAllocator interface {
	// AllocFrame reserves the next available free frame and returns it.
	AllocFrame() (Frame, *kernel.Error)

	// FreeFrame releases a frame that was previously reserved via a call
	// to AllocFrame.
	FreeFrame(Frame) *kernel.Error
}

// frameAllocator points to the FrameAllocator instance registered using
// SetFrameAllocator.
var frameAllocator FrameAllocator

// SetFrameAllocator registers the frame allocator instance that serves the
// package-level AllocFrame and FreeFrame calls.
func SetFrameAllocator(alloc FrameAllocator) { frameAllocator = alloc }

// AllocFrame reserves a frame using the currently active frame allocator.
func AllocFrame() (Frame, *kernel.Error) { return frameAllocator.AllocFrame() }

// FreeFrame releases a frame using the currently active frame allocator.
func FreeFrame(frame Frame) *kernel.Error { return frameAllocator.FreeFrame(frame) }
