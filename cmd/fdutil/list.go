package main

import (
	"fmt"

	"github.com/rc6502fd/flashdisk/simplefs"
)

func listCmd(imagePath, prefix string) {
	im, fs := openExisting(imagePath)
	defer im.Close()

	fmt.Printf("%-6s %-6s %-6s %-6s %s\n", "Start", "Stop", "Size", "Blck", "Name")

	var buf [simplefs.EntrySize]byte
	var cursor uint16
	for {
		status := fs.List(buf[:], &cursor, prefix)
		if !status.IsOk() {
			break
		}
		entry := simplefs.UnmarshalFileEntry(buf[:])
		fmt.Printf("%-6d %-6d %-6d %-6d %s\n",
			entry.Start, entry.Start+entry.Size, entry.Size, entry.Block, entry.NameString())
		cursor++
	}
}
