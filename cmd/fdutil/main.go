// Command fdutil manipulates a SimpleFS disk image file from the
// host, without going through the HostLink wire protocol: the same
// operations a real 6502 host would perform over the bus, run
// directly against the image.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rc6502fd/flashdisk/flash"
	"github.com/rc6502fd/flashdisk/simplefs"
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	fdutil <image> i<N>                        initialize image of N blocks
	fdutil <image> m<F>                        reindex blocks starting at F
	fdutil <image> l[prefix]                   list live entries
	fdutil <image> w<name>#<start>#<stop> <file>  import file as <name>
	fdutil <image> r<name|#block> <file>       export file
	fdutil <image> d<name|#block>              delete entry
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}
	imagePath := os.Args[1]
	cmd := os.Args[2]
	args := os.Args[3:]

	switch {
	case cmd == "":
		usage()
	case cmd[0] == 'i':
		initCmd(imagePath, cmd[1:])
	case cmd[0] == 'm':
		moveCmd(imagePath, cmd[1:])
	case cmd[0] == 'l':
		listCmd(imagePath, cmd[1:])
	case cmd[0] == 'w':
		writeCmd(imagePath, cmd[1:], args)
	case cmd[0] == 'r':
		readCmd(imagePath, cmd[1:], args)
	case cmd[0] == 'd':
		deleteCmd(imagePath, cmd[1:])
	default:
		usage()
	}
}

// openExisting opens imagePath at whatever size it already is,
// reporting its geometry in blocks.
func openExisting(imagePath string) (*flash.Image, *simplefs.FS) {
	im := flash.NewImage(imagePath, 0)
	if err := im.Open(); err != nil {
		fatalf("%v", err)
	}
	info, err := os.Stat(imagePath)
	if err != nil {
		fatalf("%v", err)
	}
	blocks := int(info.Size() / flash.BlockSize)
	return im, simplefs.New(im, blocks)
}

func parseBlockArg(arg string) (uint16, bool) {
	if !strings.HasPrefix(arg, "#") {
		return 0, false
	}
	n, err := strconv.Atoi(arg[1:])
	if err != nil || n < 0 {
		fatalf("invalid block number %q", arg)
	}
	return uint16(n), true
}
