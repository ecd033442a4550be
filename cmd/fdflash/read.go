package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/rc6502fd/flashdisk/flash"
)

// readCmd dumps a byte range straight off the chip into a file,
// bypassing SimpleFS entirely.
func readCmd(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	addr := fs.String("addr", "0", "start address (hex)")
	size := fs.Int("size", flash.PageSize, "number of bytes to read")
	out := fs.String("out", "", "output file")
	fs.Parse(args)

	if *out == "" {
		fatalf("read: -out is required")
	}
	start, err := strconv.ParseUint(*addr, 16, 32)
	if err != nil {
		fatalf("read: bad -addr: %v", err)
	}

	chip := openChip()
	defer chip.Close()

	buf := make([]byte, *size)
	if status := chip.ReadPage(uint32(start), buf); status != flash.Ok {
		fatalf("read: %v", status)
	}
	if err := os.WriteFile(*out, buf, 0o644); err != nil {
		fatalf("read: %v", err)
	}
}
