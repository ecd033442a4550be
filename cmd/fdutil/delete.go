package main

import (
	"fmt"

	"github.com/rc6502fd/flashdisk/flash"
	"github.com/rc6502fd/flashdisk/simplefs"
)

func deleteCmd(imagePath, arg string) {
	im, fs := openExisting(imagePath)
	defer im.Close()

	var buf [flash.PageSize]byte
	var status simplefs.Status
	if block, ok := parseBlockArg(arg); ok {
		status = fs.DeleteByBlock(buf[:], block)
	} else {
		status = fs.DeleteByName(buf[:], arg)
	}
	if !status.IsOk() {
		fatalf("delete: %v", status)
	}
	fmt.Printf("deleted %q\n", arg)
}
