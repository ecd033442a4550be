package main

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/rc6502fd/flashdisk/flash"
)

// writeCmd programs a raw file onto the chip page by page, starting at
// -addr, padding the final short page with 0xFF. It erases the
// containing 32 KiB blocks first only when -erase is given; otherwise
// the caller is expected to have erased the target block, the same
// division of responsibility SimpleFS observes between CreateEntry and
// WriteFile.
func writeCmd(args []string) {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	addr := fs.String("addr", "0", "start address (hex)")
	erase := fs.Bool("erase", false, "erase the containing 32KiB blocks first")
	in := fs.String("in", "", "input file")
	fs.Parse(args)

	if *in == "" {
		fatalf("write: -in is required")
	}
	start, err := strconv.ParseUint(*addr, 16, 32)
	if err != nil {
		fatalf("write: bad -addr: %v", err)
	}
	if start%flash.PageSize != 0 {
		fatalf("write: -addr must be page-aligned (%d bytes)", flash.PageSize)
	}
	data, err := os.ReadFile(*in)
	if err != nil {
		fatalf("write: %v", err)
	}

	chip := openChip()
	defer chip.Close()

	if *erase {
		for a := uint32(start) &^ (flash.BlockSize - 1); a < uint32(start)+uint32(len(data)); a += flash.BlockSize {
			if status := chip.EraseBlock32(a, true); status != flash.Ok {
				fatalf("write: erase at %#x: %v", a, status)
			}
		}
	}

	for off := 0; off < len(data); off += flash.PageSize {
		var page [flash.PageSize]byte
		for i := range page {
			page[i] = 0xFF
		}
		copy(page[:], data[off:])

		addr := uint32(start) + uint32(off)
		if status := chip.WaitUntilFree(2 * time.Second); status != flash.Ok {
			fatalf("write: page at %#x: %v", addr, status)
		}
		if status := chip.WritePage(addr, page); status != flash.Ok {
			fatalf("write: page at %#x: %v", addr, status)
		}
	}
	if status := chip.WaitUntilFree(2 * time.Second); status != flash.Ok {
		fatalf("write: final wait: %v", status)
	}
}
