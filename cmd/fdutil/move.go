package main

import (
	"fmt"
	"strconv"
)

func moveCmd(imagePath, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		fatalf("move: invalid first-block number %q", arg)
	}

	im, fs := openExisting(imagePath)
	defer im.Close()
	if status := fs.Reindex(uint16(n)); !status.IsOk() {
		fatalf("move: %v", status)
	}
	fmt.Printf("reindexed %s starting at block %d\n", imagePath, n)
}
