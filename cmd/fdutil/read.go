package main

import (
	"fmt"
	"os"

	"github.com/rc6502fd/flashdisk/flash"
	"github.com/rc6502fd/flashdisk/simplefs"
)

func readCmd(imagePath, arg string, args []string) {
	if len(args) < 1 {
		fatalf("read: missing <file>")
	}

	im, fs := openExisting(imagePath)
	defer im.Close()

	var buf [flash.PageSize]byte
	var size uint16
	var status simplefs.Status
	if block, ok := parseBlockArg(arg); ok {
		status = fs.ReadByBlock(buf[:], block, &size)
	} else {
		status = fs.ReadByName(buf[:], arg, &size)
	}
	if !status.IsOk() {
		fatalf("read: %v", status)
	}

	out, err := os.Create(args[0])
	if err != nil {
		fatalf("read: %v", err)
	}
	defer out.Close()

	payload := int(size) - simplefs.EntrySize
	n := min(payload, flash.PageSize-simplefs.EntrySize)
	if _, err := out.Write(buf[simplefs.EntrySize : simplefs.EntrySize+n]); err != nil {
		fatalf("read: %v", err)
	}
	remaining := payload - n

	for remaining > 0 {
		if status := fs.ReadNextPage(buf[:]); !status.IsOk() {
			fatalf("read: %v", status)
		}
		chunk := min(remaining, flash.PageSize)
		if _, err := out.Write(buf[:chunk]); err != nil {
			fatalf("read: %v", err)
		}
		remaining -= chunk
	}
	fmt.Printf("read %q to %s (%d bytes)\n", arg, args[0], payload)
}
