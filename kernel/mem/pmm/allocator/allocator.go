// Package allocator implements the physical frame allocator used while the
// kernel boots. It reconciles the sparse memory map supplied by the
// bootloader with a dense, statically allocated bitmap over the physical
// address space and hands out free frames one at a time.
package allocator

import (
	"github.com/weclaw1/weclaw-os/kernel"
	"github.com/weclaw1/weclaw-os/kernel/hal/multiboot"
	"github.com/weclaw1/weclaw-os/kernel/kfmt"
	"github.com/weclaw1/weclaw-os/kernel/mem"
	"github.com/weclaw1/weclaw-os/kernel/mem/pmm"
)

// bitmapAllocator is the allocator instance that serves frame requests
// during early boot. It is statically allocated since no heap is available
// at the point where it gets initialized.
var bitmapAllocator BitmapFrameAllocator

// Init sets up the boot-time physical frame allocator and registers it as
// the system frame allocator.
//
// Init borrows the static frame bitmap, reserves the memory map holes, the
// kernel image extent and the multiboot information structure, and prints
// out the system memory map. It must be called exactly once, after the
// multiboot info pointer has been set.
func Init(kernelStart, kernelEnd uintptr) *kernel.Error {
	bitmap, err := BorrowStaticBitmap()
	if err != nil {
		return err
	}

	bootInfoStart, bootInfoEnd := multiboot.InfoRegion()
	bitmapAllocator.init(bitmap, kernelStart, kernelEnd, bootInfoStart, bootInfoEnd)
	printMemoryMap(kernelStart, kernelEnd)

	pmm.SetFrameAllocator(&bitmapAllocator)
	return nil
}

// printMemoryMap logs the memory map reported by the bootloader together
// with the kernel image placement.
func printMemoryMap(kernelStart, kernelEnd uintptr) {
	kfmt.Printf("[bitmap_alloc] system memory map:\n")

	var totalFree mem.Size
	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.PhysAddress, region.PhysAddress+region.Length, region.Length, region.Type.String())

		if region.Type == multiboot.MemAvailable {
			totalFree += mem.Size(region.Length)
		}
		return true
	})

	kfmt.Printf("[bitmap_alloc] available memory: %dKb\n", uint64(totalFree/mem.Kb))
	kfmt.Printf("[bitmap_alloc] kernel loaded at 0x%x - 0x%x\n", kernelStart, kernelEnd)
}
