// Package simplefs implements the on-flash file directory described by
// the flash-disk layer's data model: one file per 32 KiB block, a
// 32-byte FileEntry header at the front of each block, and a linear
// scan over block headers in place of any in-memory index.
package simplefs

import (
	"fmt"
	"iter"

	"github.com/rc6502fd/flashdisk/flash"
)

// FS operates on top of a flash.Device. It is a value type: the
// in-progress page cursor used to thread multi-page read/write lives
// in the struct, not in a package-level global, so a caller can hold
// more than one FS (e.g. over two images) without the single-writer
// rule becoming ambiguous. A single FS value must still not be driven
// by more than one in-flight read-or-write at a time, per the spec's
// concurrency model.
type FS struct {
	dev    flash.Device
	blocks int // configured disk size, in 32 KiB blocks (<=256)

	next     uint32 // address of the next page for read/write continuation
	fileSize uint16 // total transfer size (header+payload) of the file last opened by ReadByName/ReadByBlock
}

// New returns an FS over dev, scanning at most `blocks` blocks
// (blocks<=flash.MaxBlocks).
func New(dev flash.Device, blocks int) *FS {
	if blocks <= 0 || blocks > flash.MaxBlocks {
		blocks = flash.MaxBlocks
	}
	return &FS{dev: dev, blocks: blocks}
}

// Init resizes/erases the image to exactly `blocks` blocks, all 0xFF.
// This only makes sense against an image backend; a real chip doesn't
// support resizing.
func (fs *FS) Init(blocks int) error {
	im, ok := fs.dev.(*flash.Image)
	if !ok {
		return fmt.Errorf("simplefs: init requires an image-backed device")
	}
	im.Blocks = blocks
	if err := im.Open(); err != nil {
		return err
	}
	fs.blocks = blocks
	return nil
}

// Reindex rewrites the Block field of every block header so that
// block k (physical) stores firstBlock+k in its two leading bytes.
// Only the first two bytes of each block are touched; payload is left
// bit-identical.
func (fs *FS) Reindex(firstBlock uint16) Status {
	for k := 0; k < fs.blocks; k++ {
		addr := blockAddr(uint16(k))
		var page [flash.PageSize]byte
		if status := fs.dev.ReadPage(addr, page[:]); status != flash.Ok {
			return statusFromFlash(status)
		}
		newIndex := firstBlock + uint16(k)
		page[0] = byte(newIndex)
		page[1] = byte(newIndex >> 8)
		if status := fs.dev.WritePage(addr, page); status != flash.Ok {
			return statusFromFlash(status)
		}
	}
	return Ok
}

// Scan reads the first EntrySize bytes of each block from `from`
// onward, in ascending order, yielding (block, entry) for every block
// up to the configured disk size. This is the sole search primitive:
// List, CreateEntry's free-block search, ReadByName and DeleteByName
// are all predicates composed on top of it, replacing the original
// C's function-pointer-plus-context pattern with a plain closure.
func (fs *FS) Scan(from uint16) iter.Seq2[uint16, FileEntry] {
	return func(yield func(uint16, FileEntry) bool) {
		var buf [EntrySize]byte
		for block := from; int(block) < fs.blocks; block++ {
			if status := fs.dev.ReadPage(blockAddr(block), buf[:]); status != flash.Ok {
				return
			}
			if !yield(block, UnmarshalFileEntry(buf[:])) {
				return
			}
		}
	}
}

// firstFree returns the lowest-indexed free block at or after from.
func (fs *FS) firstFree(from uint16) (uint16, bool) {
	for block, entry := range fs.Scan(from) {
		if entry.Free() {
			return block, true
		}
	}
	return 0, false
}

func statusFromFlash(s flash.Status) Status {
	// Every FlashDevice failure (CommunicationFail, Busy, Timeout,
	// NotValid) becomes BlockIsNotValid; which flash status it was is
	// not kept.
	if s == flash.Ok {
		return Ok
	}
	return BlockIsNotValid
}

// List starts scanning at *cursor and returns the first live entry
// whose name begins with prefix (case-insensitive over len(prefix)
// bytes; empty prefix matches every live entry). On a match, *cursor
// is set to the matching block and buf holds the matching FileEntry.
// On exhaustion, returns FileEntryNotFound.
func (fs *FS) List(buf []byte, cursor *uint16, prefix string) Status {
	for block, entry := range fs.Scan(*cursor) {
		if entry.Free() {
			continue
		}
		if !nameHasPrefix(entry.Name, prefix) {
			continue
		}
		entry.Marshal(buf)
		*cursor = block
		return Ok
	}
	return FileEntryNotFound
}

// CreateSpec is the caller-supplied (name, start, stop) tuple for
// CreateEntry.
type CreateSpec struct {
	Name  string
	Start uint16
	Stop  uint16
}

// CreateEntry finds the lowest-indexed free block from *block onward,
// prepares (but does not flash) the FileEntry header plus a
// zero-initialized page buffer. The caller must follow with exactly
// ceil(*sizeOut/256) calls to WriteFile.
func (fs *FS) CreateEntry(buf []byte, spec CreateSpec, block *uint16, sizeOut *uint16) Status {
	if spec.Start > spec.Stop {
		return InvalidData
	}
	if spec.Name == "" {
		return InvalidData
	}

	found, ok := fs.firstFree(*block)
	if !ok {
		return FileEntryNotFound
	}

	for i := range buf[:min(len(buf), flash.PageSize)] {
		buf[i] = 0
	}
	size := spec.Stop - spec.Start
	entry := FileEntry{Block: found, Start: spec.Start, Size: size}
	setName(&entry.Name, spec.Name)
	entry.Marshal(buf)

	*block = found
	*sizeOut = EntrySize + size
	fs.next = blockAddr(found)
	return Ok
}

// WriteFile programs the next page for the file under construction
// (begun by CreateEntry) and advances the saved cursor by one page.
// The caller must invoke this exactly ceil(sizeOut/256) times.
func (fs *FS) WriteFile(buf []byte) Status {
	var page [flash.PageSize]byte
	copy(page[:], buf)
	if status := fs.dev.WritePage(fs.next, page); status != flash.Ok {
		return statusFromFlash(status)
	}
	fs.dev.WaitUntilFree(flash.DefaultTimeout)
	fs.next += flash.PageSize
	return Ok
}

// ReadByName scans for a live entry whose name case-folds equal to
// name over len(entry.Name) bytes (see entry.go's documented
// asymmetry). On match, reads the file's first page into buf, reports
// the total transfer size (header+payload) via sizeOut, and remembers
// the address of the next page for ReadNextPage.
func (fs *FS) ReadByName(buf []byte, name string, sizeOut *uint16) Status {
	for block, entry := range fs.Scan(0) {
		if entry.Free() || !nameMatchesQuery(entry.Name, name) {
			continue
		}
		fs.next = blockAddr(block)
		*sizeOut = EntrySize + entry.Size
		fs.fileSize = *sizeOut
		if status := fs.dev.ReadPage(fs.next, buf[:min(len(buf), flash.PageSize)]); status != flash.Ok {
			return statusFromFlash(status)
		}
		return Ok
	}
	return FileEntryNotFound
}

// ReadByBlock reads the header of the given block; if the header's
// own Block field matches, proceeds as ReadByName. Otherwise returns
// BlockIsNotValid.
func (fs *FS) ReadByBlock(buf []byte, block uint16, sizeOut *uint16) Status {
	var hdr [EntrySize]byte
	if status := fs.dev.ReadPage(blockAddr(block), hdr[:]); status != flash.Ok {
		return statusFromFlash(status)
	}
	entry := UnmarshalFileEntry(hdr[:])
	if entry.Block != block {
		return BlockIsNotValid
	}
	fs.next = blockAddr(block)
	*sizeOut = EntrySize + entry.Size
	fs.fileSize = *sizeOut
	return statusFromFlash(fs.dev.ReadPage(fs.next, buf[:min(len(buf), flash.PageSize)]))
}

// ReadNextPage advances the saved address by one page and reads it.
// The caller must not invoke this beyond the file's page count.
func (fs *FS) ReadNextPage(buf []byte) Status {
	fs.next += flash.PageSize
	return statusFromFlash(fs.dev.ReadPage(fs.next, buf[:min(len(buf), flash.PageSize)]))
}

// DeleteByName scans for a live entry matching name and erases its
// containing block.
func (fs *FS) DeleteByName(buf []byte, name string) Status {
	for block, entry := range fs.Scan(0) {
		if entry.Free() || !nameMatchesQuery(entry.Name, name) {
			continue
		}
		return statusFromFlash(fs.dev.EraseBlock32(blockAddr(block), true))
	}
	return FileEntryNotFound
}

// DeleteByBlock reads the header of block; if it matches, erases the
// block. Otherwise returns BlockIsNotValid. Deletion is always a 32
// KiB erase — there is no 64 KiB variant (design note 9(b)).
func (fs *FS) DeleteByBlock(buf []byte, block uint16) Status {
	region := buf[:min(len(buf), EntrySize)]
	if status := fs.dev.ReadPage(blockAddr(block), region); status != flash.Ok {
		return statusFromFlash(status)
	}
	entry := UnmarshalFileEntry(region)
	if entry.Block != block {
		return BlockIsNotValid
	}
	return statusFromFlash(fs.dev.EraseBlock32(blockAddr(block), true))
}

// ForceDeleteByBlock erases block without checking its header first.
// It is a debug aid only; callers needing the documented semantics
// must use DeleteByBlock.
func (fs *FS) ForceDeleteByBlock(block uint16) Status {
	return statusFromFlash(fs.dev.EraseBlock32(blockAddr(block), true))
}
