package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rc6502fd/flashdisk/flash"
	"github.com/rc6502fd/flashdisk/simplefs"
)

// parseWriteArg parses "name#hexstart#hexstop", matching the original
// fdutil's parseWriteFileInput.
func parseWriteArg(arg string) (name string, start, stop uint16, err error) {
	first := strings.IndexByte(arg, '#')
	if first < 0 {
		return "", 0, 0, errors.New("missing '#' in write spec")
	}
	name = arg[:first]
	rest := arg[first+1:]

	second := strings.IndexByte(rest, '#')
	if second < 0 {
		return "", 0, 0, errors.New("missing second '#' in write spec")
	}
	s, err := strconv.ParseUint(rest[:second], 16, 16)
	if err != nil {
		return "", 0, 0, err
	}
	e, err := strconv.ParseUint(rest[second+1:], 16, 16)
	if err != nil {
		return "", 0, 0, err
	}
	return name, uint16(s), uint16(e), nil
}

func writeCmd(imagePath, arg string, args []string) {
	if len(args) < 1 {
		fatalf("write: missing <file>")
	}
	name, start, stop, err := parseWriteArg(arg)
	if err != nil {
		fatalf("write: %v", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fatalf("write: %v", err)
	}

	im, fs := openExisting(imagePath)
	defer im.Close()

	var buf [flash.PageSize]byte
	var block, size uint16
	spec := simplefs.CreateSpec{Name: name, Start: start, Stop: stop}
	if status := fs.CreateEntry(buf[:], spec, &block, &size); !status.IsOk() {
		fatalf("write: %v", status)
	}

	remaining := data
	for written := 0; written < int(size); written += flash.PageSize {
		offset := 0
		if written == 0 {
			offset = simplefs.EntrySize
		} else {
			for i := range buf {
				buf[i] = 0
			}
		}
		n := copy(buf[offset:], remaining)
		remaining = remaining[n:]
		if status := fs.WriteFile(buf[:]); !status.IsOk() {
			fatalf("write: %v", status)
		}
	}
	fmt.Printf("wrote %s as %q (block %d, %d bytes)\n", args[0], name, block, len(data))
}
