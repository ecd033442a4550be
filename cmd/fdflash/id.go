package main

import "fmt"

// idCmd reads back the chip's JEDEC ID and prints it alongside the
// recognized part name, if any — the first thing to run against a
// freshly wired-up chip before trusting anything else.
func idCmd() {
	chip := openChip()
	defer chip.Close()

	id, name := chip.ID()
	if name == "" {
		name = "unrecognized"
	}
	fmt.Printf("%02X %02X %02X  %s\n", id[0], id[1], id[2], name)
}
