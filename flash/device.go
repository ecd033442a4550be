// Package flash implements the byte-addressable FlashDevice abstraction
// required by SimpleFS and HostLink: page-program, block-erase,
// chip-erase and busy-poll primitives over either a real NOR flash
// chip (Chip, reached over SPI) or a host-side disk image (Image,
// backed by a file). Both satisfy the Device interface, so upper
// layers never need to know which backend they are driving.
package flash

import "time"

// Geometry of the supported flash chip (W25Q64FV-class, 8 MiB NOR),
// taken from the original firmware's simplefs.h.
const (
	PageSize     = 256
	BlockSize    = 32 * 1024
	ChipSize     = 8 * 1024 * 1024
	MaxBlocks    = ChipSize / BlockSize // 256
	addrMax24Bit = 1<<24 - 1
)

// DefaultTimeout is the poll timeout used by WaitUntilFree when the
// caller doesn't have a more specific figure, taken from the original
// firmware's W25Q64FV_DEFAULT_TIMEOUT (milliseconds).
const DefaultTimeout = 5000 * time.Millisecond

// Device is the contract both backends implement.
type Device interface {
	// Open binds the device to its backing store and verifies presence.
	Open() error
	// ReadPage reads len(buf) bytes starting at addr. addr need not be
	// page-aligned.
	ReadPage(addr uint32, buf []byte) Status
	// WritePage programs exactly one page. addr must be page-aligned.
	// The target bytes must already be erased (0xFF); programming can
	// only clear bits from 1 to 0.
	WritePage(addr uint32, page [PageSize]byte) Status
	// EraseBlock32 erases the 32 KiB block containing addr. addr must
	// be block-aligned. When hold is true, blocks until not-busy or
	// DefaultTimeout elapses.
	EraseBlock32(addr uint32, hold bool) Status
	// EraseChip erases the entire device.
	EraseChip(hold bool) Status
	// Busy reports chip-level readiness.
	Busy() bool
	// WaitUntilFree polls Busy at ~1ms granularity until it clears or
	// timeout elapses, in which case it returns Timeout.
	WaitUntilFree(timeout time.Duration) Status
	// Close releases the backing resource.
	Close() error
}

// pollUntilFree is shared busy-poll logic used by both backends.
func pollUntilFree(busy func() bool, timeout time.Duration) Status {
	if !busy() {
		return Ok
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if !busy() {
			return Ok
		}
		if time.Now().After(deadline) {
			return Timeout
		}
	}
	return Timeout
}
