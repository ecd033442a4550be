package hostlink

import (
	"fmt"
	"io"

	"github.com/rc6502fd/flashdisk/flash"
)

// BulkTransfer reproduces the original firmware's BULK_TRANSFER
// escape hatch: a raw, whole-chip path that bypasses the nibble
// protocol entirely for imaging a device page by page. The original
// ties this to a dedicated UART framing; here it is expressed against
// io.Reader/io.Writer so callers can back it with any stream (a serial
// port, a pipe, a file) without BulkTransfer knowing which.
type BulkTransfer struct {
	dev flash.Device
}

// NewBulkTransfer returns a BulkTransfer operating on dev.
func NewBulkTransfer(dev flash.Device) *BulkTransfer {
	return &BulkTransfer{dev: dev}
}

// Erase erases the entire device and waits for it to report ready.
func (b *BulkTransfer) Erase() flash.Status {
	return b.dev.EraseChip(true)
}

// ReadAll streams size bytes starting at address 0 to w, one page at a
// time.
func (b *BulkTransfer) ReadAll(w io.Writer, size int64) error {
	var page [flash.PageSize]byte
	for addr := int64(0); addr < size; addr += flash.PageSize {
		n := int64(flash.PageSize)
		if size-addr < n {
			n = size - addr
		}
		if status := b.dev.ReadPage(uint32(addr), page[:n]); status != flash.Ok {
			return fmt.Errorf("hostlink: bulk read at %#x: %w", addr, status)
		}
		if _, err := w.Write(page[:n]); err != nil {
			return err
		}
	}
	return nil
}

// WriteAll streams size bytes from r into the device starting at
// address 0, one page at a time, padding a short final page with
// 0xFF. The device is assumed freshly erased.
func (b *BulkTransfer) WriteAll(r io.Reader, size int64) error {
	var page [flash.PageSize]byte
	for addr := int64(0); addr < size; addr += flash.PageSize {
		n, err := io.ReadFull(r, page[:])
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return err
		}
		for i := n; i < len(page); i++ {
			page[i] = 0xFF
		}
		if status := b.dev.WritePage(uint32(addr), page); status != flash.Ok {
			return fmt.Errorf("hostlink: bulk write at %#x: %w", addr, status)
		}
		if status := b.dev.WaitUntilFree(flash.DefaultTimeout); status != flash.Ok {
			return fmt.Errorf("hostlink: bulk write wait at %#x: %w", addr, status)
		}
	}
	return nil
}
