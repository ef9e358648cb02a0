package allocator

import (
	"github.com/weclaw1/weclaw-os/kernel"
	"github.com/weclaw1/weclaw-os/kernel/hal/multiboot"
	"github.com/weclaw1/weclaw-os/kernel/mem/pmm"
)

var (
	errBitmapAllocOutOfMemory     = &kernel.Error{Module: "bitmap_alloc", Message: "out of memory"}
	errBitmapAllocFrameNotManaged = &kernel.Error{Module: "bitmap_alloc", Message: "frame not managed by this allocator"}

	// The following function variables are used by the allocation scan to
	// query the bitmap and can be swapped out by tests that need to
	// instrument bitmap accesses.
	frameUsedFn = (*FrameBitmap).isUsed
	blockFullFn = (*FrameBitmap).blockIsFull
)

// BitmapFrameAllocator hands out physical frames during early boot, tracking
// the state of every frame below the 4Gb ceiling in a borrowed FrameBitmap.
//
// The allocator is constructed over the memory map supplied by the
// bootloader: the holes between the reported usable regions, the kernel
// image and the bootloader information structure are all marked reserved up
// front and whatever remains unmarked is free for allocation. Allocation
// scans the bitmap one word at a time, skipping fully reserved words, and
// wraps around once before reporting that memory is exhausted.
type BitmapFrameAllocator struct {
	// bitmap is borrowed by the allocator for its entire lifetime. No
	// other component may read or write it while the allocator is live.
	bitmap *FrameBitmap

	// nextFrame is the next candidate frame examined by the allocation
	// scan. It only moves forward within a pass.
	nextFrame pmm.Frame

	// lastFrame is the highest frame considered in bounds. It is derived
	// from the topmost usable region reported by the bootloader and acts
	// as the upper bound of every scan pass.
	lastFrame pmm.Frame

	// secondScan tracks whether the current pass is the wraparound retry
	// that revisits frames freed behind the original cursor position.
	secondScan bool
}

// init sets up the allocator state over the given bitmap and reserves the
// memory map holes, the kernel image extent and the bootloader information
// structure extent. Re-marking an already reserved frame is a no-op, so the
// three ranges may freely overlap.
func (alloc *BitmapFrameAllocator) init(bitmap *FrameBitmap, kernelStart, kernelEnd, bootInfoStart, bootInfoEnd uintptr) {
	alloc.bitmap = bitmap
	alloc.nextFrame = 0
	alloc.lastFrame = 0
	alloc.secondScan = false

	alloc.mapMemoryRegions()
	alloc.mapKernel(kernelStart, kernelEnd)
	alloc.mapBootInfo(bootInfoStart, bootInfoEnd)
}

// mapMemoryRegions determines the highest frame tracked by the allocator and
// reserves every frame falling in a hole between two consecutive usable
// regions. Non-usable regions are not visited; the ranges they cover are
// exactly the holes between the usable ones.
//
// The bootloader is expected to report regions sorted by base address. A
// pair that violates that order (or overlaps) contributes no hole instead of
// reserving usable memory.
func (alloc *BitmapFrameAllocator) mapMemoryRegions() {
	var maxAddr uint64
	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		if region.Type != multiboot.MemAvailable {
			return true
		}

		if end := region.PhysAddress + region.Length; end > maxAddr {
			maxAddr = end
		}
		return true
	})

	alloc.lastFrame = clampFrame(pmm.FrameFromAddress(uintptr(maxAddr)))

	// The topmost frame may extend past the end of the last usable
	// region, so guard it against ever being handed out.
	alloc.bitmap.setUsed(uint64(alloc.lastFrame), true)

	var (
		prevEnd  uint64
		havePrev bool
	)
	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		if region.Type != multiboot.MemAvailable {
			return true
		}

		if havePrev && region.PhysAddress > 0 && region.PhysAddress >= prevEnd {
			alloc.markRangeUsed(
				pmm.FrameFromAddress(uintptr(prevEnd)),
				pmm.FrameFromAddress(uintptr(region.PhysAddress-1)),
			)
		}

		if end := region.PhysAddress + region.Length; !havePrev || end > prevEnd {
			prevEnd = end
		}
		havePrev = true
		return true
	})
}

// mapKernel reserves the frames occupied by the kernel image.
func (alloc *BitmapFrameAllocator) mapKernel(kernelStart, kernelEnd uintptr) {
	alloc.markRangeUsed(pmm.FrameFromAddress(kernelStart), pmm.FrameFromAddress(kernelEnd))
}

// mapBootInfo reserves the frames backing the bootloader information
// structure; the memory map this allocator was built from lives inside it.
func (alloc *BitmapFrameAllocator) mapBootInfo(bootInfoStart, bootInfoEnd uintptr) {
	alloc.markRangeUsed(pmm.FrameFromAddress(bootInfoStart), pmm.FrameFromAddress(bootInfoEnd))
}

// markRangeUsed reserves every frame in the inclusive range [from, to]. The
// range may be empty (from > to) and is clamped to the bitmap ceiling.
func (alloc *BitmapFrameAllocator) markRangeUsed(from, to pmm.Frame) {
	to = clampFrame(to)
	for frame := from; frame <= to; frame++ {
		alloc.bitmap.setUsed(uint64(frame), true)
	}
}

// AllocFrame finds the lowest-indexed free frame at or after the scan
// cursor, marks it as used and returns it.
//
// When the cursor reaches lastFrame the scan wraps around once so that
// frames freed behind the original cursor position are reused before memory
// is declared exhausted. Exhaustion is an expected outcome, reported as
// errBitmapAllocOutOfMemory, and leaves the allocator ready for future
// calls.
func (alloc *BitmapFrameAllocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	for {
		switch {
		case alloc.nextFrame < alloc.lastFrame:
			if frame, ok := alloc.findFreeFrameInBlock(blockForFrame(alloc.nextFrame)); ok {
				return frame, nil
			}
		case !alloc.secondScan:
			alloc.secondScan = true
			alloc.nextFrame = 0
		default:
			alloc.secondScan = false
			return pmm.InvalidFrame, errBitmapAllocOutOfMemory
		}
	}
}

// findFreeFrameInBlock looks for a free frame between the scan cursor and
// the end of the given block. A fully used block is dismissed with a single
// word comparison by advancing the cursor to the start of the next block.
// The bit scan never examines frames at or past lastFrame; when the block is
// exhausted without a hit the cursor has moved past it and the caller
// re-evaluates.
func (alloc *BitmapFrameAllocator) findFreeFrameInBlock(block uint64) (pmm.Frame, bool) {
	if blockFullFn(alloc.bitmap, block) {
		alloc.nextFrame = firstFrameInBlock(block + 1)
		return pmm.InvalidFrame, false
	}

	for alloc.nextFrame <= lastFrameInBlock(block) && alloc.nextFrame < alloc.lastFrame {
		if frameUsedFn(alloc.bitmap, uint64(alloc.nextFrame)) {
			alloc.nextFrame++
			continue
		}

		frame := alloc.nextFrame
		alloc.bitmap.setUsed(uint64(frame), true)
		alloc.nextFrame = frame + 1
		return frame, true
	}

	return pmm.InvalidFrame, false
}

// FreeFrame releases a previously allocated frame, making it available to a
// future scan pass. The scan cursor is not moved backwards; a frame freed
// behind it is only rediscovered once the scan wraps around.
//
// Frames at or past lastFrame are not managed by this allocator. Attempting
// to free one indicates a caller bug and is rejected with
// errBitmapAllocFrameNotManaged, leaving the bitmap untouched.
func (alloc *BitmapFrameAllocator) FreeFrame(frame pmm.Frame) *kernel.Error {
	if frame >= alloc.lastFrame {
		return errBitmapAllocFrameNotManaged
	}

	alloc.bitmap.setUsed(uint64(frame), false)
	return nil
}

// blockForFrame returns the index of the bitmap word tracking the frame.
func blockForFrame(frame pmm.Frame) uint64 {
	return uint64(frame) / bitsPerBlock
}

// firstFrameInBlock returns the first frame tracked by the given block.
func firstFrameInBlock(block uint64) pmm.Frame {
	return pmm.Frame(block * bitsPerBlock)
}

// lastFrameInBlock returns the last frame tracked by the given block.
func lastFrameInBlock(block uint64) pmm.Frame {
	return pmm.Frame(block*bitsPerBlock + bitsPerBlock - 1)
}

// clampFrame bounds a frame to the highest index the bitmap can represent.
func clampFrame(frame pmm.Frame) pmm.Frame {
	if uint64(frame) >= frameCount {
		return pmm.Frame(frameCount - 1)
	}
	return frame
}
