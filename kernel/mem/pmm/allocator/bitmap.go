package allocator

import (
	"github.com/weclaw1/weclaw-os/kernel"
	"github.com/weclaw1/weclaw-os/kernel/mem"
	"github.com/weclaw1/weclaw-os/kernel/sync"
)

const (
	// maxMemSize is the highest physical address that the bitmap frame
	// allocator is able to track. Regions reported above this ceiling
	// are clamped to it.
	maxMemSize = 4 * mem.Gb

	// frameCount is the number of frames required to cover maxMemSize.
	frameCount = uint64(maxMemSize) >> mem.PageShift

	// bitsPerBlock is the number of frames tracked by one bitmap word.
	bitsPerBlock = 64

	// BitmapLen is the number of words backing a FrameBitmap.
	BitmapLen = frameCount / bitsPerBlock

	// fullBlock is the bit pattern of a block with no free frames left.
	fullBlock = ^uint64(0)
)

// FrameBitmap is a flat bit vector over every physical frame index below the
// maxMemSize ceiling. Word w, bit b (counting from the least significant
// bit) tracks frame w*bitsPerBlock + b; a set bit marks the frame as
// reserved or allocated, a clear bit as free.
//
// The bitmap performs no locking and no bounds checking of its own. The
// allocator that borrows it serializes all accesses and only derives indices
// from the bounded address space ceiling.
type FrameBitmap [BitmapLen]uint64

// setUsed marks the frame with the given index as used (true) or free
// (false). Marking a frame with its current state is a no-op.
func (bm *FrameBitmap) setUsed(index uint64, used bool) {
	if used {
		bm[index/bitsPerBlock] |= 1 << (index % bitsPerBlock)
	} else {
		bm[index/bitsPerBlock] &^= 1 << (index % bitsPerBlock)
	}
}

// isUsed returns true if the frame with the given index is marked as used.
func (bm *FrameBitmap) isUsed(index uint64) bool {
	return bm[index/bitsPerBlock]&(1<<(index%bitsPerBlock)) != 0
}

// blockIsFull returns true if the given block contains no free frames. This
// allows the allocation scan to dismiss bitsPerBlock frames with a single
// comparison instead of testing each bit individually.
func (bm *FrameBitmap) blockIsFull(block uint64) bool {
	return bm[block] == fullBlock
}

var (
	// staticBitmap is the process-wide storage backing the kernel's
	// bitmap frame allocator. It lives in the kernel image so that it is
	// usable before any heap exists, starts out all zeroes (every frame
	// assumed free) and is never deallocated.
	staticBitmap FrameBitmap

	// staticBitmapLock guards the exclusive borrow of staticBitmap. Boot
	// initialization is single threaded and only one allocator instance
	// may be live at a time, so the lock is expected to be uncontended.
	staticBitmapLock sync.Spinlock

	errBitmapBorrowed = &kernel.Error{Module: "bitmap_alloc", Message: "frame bitmap is already borrowed"}
)

// BorrowStaticBitmap hands out an exclusive reference to the static frame
// bitmap. The borrow lasts until a matching call to ReleaseStaticBitmap; a
// second borrow while the first one is live fails with errBitmapBorrowed.
func BorrowStaticBitmap() (*FrameBitmap, *kernel.Error) {
	if !staticBitmapLock.TryToAcquire() {
		return nil, errBitmapBorrowed
	}

	return &staticBitmap, nil
}

// ReleaseStaticBitmap returns the borrow handed out by BorrowStaticBitmap.
// The bitmap contents are left untouched so a replacement allocator can take
// over the existing reservations.
func ReleaseStaticBitmap() {
	staticBitmapLock.Release()
}
