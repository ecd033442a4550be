package flash

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Image is a host-side byte-exact stand-in for a flash chip, backed by
// a plain file. It simulates a freshly erased chip by filling unused
// space with 0xFF and never reports busy, matching
// original_source/software/fdutil/w25q64fv.c.
type Image struct {
	Path   string
	Blocks int // number of 32 KiB blocks the image should hold

	f *os.File
}

// NewImage constructs an Image for path, sized to blocks*BlockSize
// once Open is called.
func NewImage(path string, blocks int) *Image {
	return &Image{Path: path, Blocks: blocks}
}

// Open binds to the backing file, creating it if absent. If the file
// is shorter than Blocks*BlockSize it is extended with 0xFF; if
// longer, it is rewritten as Blocks*BlockSize bytes of 0xFF, so its
// previous contents are not kept. A zero Blocks leaves an existing file's
// size untouched (used when opening an image whose geometry is
// already on disk, e.g. for list/read/write/delete commands that
// don't know the block count up front).
func (im *Image) Open() error {
	f, err := os.OpenFile(im.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("flash: open image: %w", err)
	}
	im.f = f

	if im.Blocks <= 0 {
		return nil
	}
	required := int64(im.Blocks) * BlockSize
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("flash: stat image: %w", err)
	}
	switch {
	case info.Size() < required:
		if err := im.extend(info.Size(), required); err != nil {
			return err
		}
	case info.Size() > required:
		if err := im.truncateFill(required); err != nil {
			return err
		}
	}
	return nil
}

func (im *Image) extend(from, to int64) error {
	if _, err := im.f.Seek(from, io.SeekStart); err != nil {
		return err
	}
	fill := make([]byte, 64*1024)
	for i := range fill {
		fill[i] = 0xFF
	}
	remaining := to - from
	for remaining > 0 {
		n := int64(len(fill))
		if remaining < n {
			n = remaining
		}
		if _, err := im.f.Write(fill[:n]); err != nil {
			return fmt.Errorf("flash: extend image: %w", err)
		}
		remaining -= n
	}
	return nil
}

// truncateFill rewrites the file to exactly `size` bytes of 0xFF,
// mirroring the original's "manually truncate by overwriting" approach
// (os.Truncate alone would zero-fill instead of 0xFF-fill any reused
// tail, so the image is rebuilt explicitly).
func (im *Image) truncateFill(size int64) error {
	if err := im.f.Truncate(0); err != nil {
		return fmt.Errorf("flash: truncate image: %w", err)
	}
	return im.extend(0, size)
}

// ReadPage reads len(buf) bytes starting at addr.
func (im *Image) ReadPage(addr uint32, buf []byte) Status {
	if im.f == nil {
		return NotValid
	}
	n, err := im.f.ReadAt(buf, int64(addr))
	if err != nil && err != io.EOF {
		return CommunicationFail
	}
	if n < len(buf) {
		return NotValid
	}
	return Ok
}

// WritePage programs exactly one page at a page-aligned address.
func (im *Image) WritePage(addr uint32, page [PageSize]byte) Status {
	if im.f == nil {
		return NotValid
	}
	if addr%PageSize != 0 {
		return NotValid
	}
	if _, err := im.f.WriteAt(page[:], int64(addr)); err != nil {
		return CommunicationFail
	}
	return Ok
}

// EraseBlock32 resets a 32 KiB block to 0xFF.
func (im *Image) EraseBlock32(addr uint32, hold bool) Status {
	if im.f == nil {
		return NotValid
	}
	if addr%BlockSize != 0 {
		return NotValid
	}
	fill := make([]byte, BlockSize)
	for i := range fill {
		fill[i] = 0xFF
	}
	if _, err := im.f.WriteAt(fill, int64(addr)); err != nil {
		return CommunicationFail
	}
	return Ok
}

// EraseChip resets the entire image to 0xFF.
func (im *Image) EraseChip(hold bool) Status {
	if im.f == nil {
		return NotValid
	}
	info, err := im.f.Stat()
	if err != nil {
		return CommunicationFail
	}
	return im.EraseBlock32WholeFile(info.Size())
}

// EraseBlock32WholeFile fills the first size bytes of the image with
// 0xFF; it is EraseChip's helper and works for any size, whether or
// not it is a whole number of blocks.
func (im *Image) EraseBlock32WholeFile(size int64) Status {
	fill := make([]byte, 64*1024)
	for i := range fill {
		fill[i] = 0xFF
	}
	var off int64
	for off < size {
		n := int64(len(fill))
		if size-off < n {
			n = size - off
		}
		if _, err := im.f.WriteAt(fill[:n], off); err != nil {
			return CommunicationFail
		}
		off += n
	}
	return Ok
}

// Busy always reports false: an image backend is never busy.
func (im *Image) Busy() bool { return false }

// WaitUntilFree always succeeds immediately for an image backend.
func (im *Image) WaitUntilFree(timeout time.Duration) Status { return Ok }

// Close releases the backing file.
func (im *Image) Close() error {
	if im.f == nil {
		return nil
	}
	return im.f.Close()
}

var _ Device = (*Image)(nil)
var _ Device = (*Chip)(nil)
