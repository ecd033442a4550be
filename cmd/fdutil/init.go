package main

import (
	"fmt"
	"strconv"

	"github.com/rc6502fd/flashdisk/flash"
	"github.com/rc6502fd/flashdisk/simplefs"
)

func initCmd(imagePath, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		fatalf("init: invalid block count %q", arg)
	}

	im := flash.NewImage(imagePath, n)
	fs := simplefs.New(im, n)
	if err := fs.Init(n); err != nil {
		fatalf("init: %v", err)
	}
	fmt.Printf("initialized %s: %d blocks\n", imagePath, n)
}
