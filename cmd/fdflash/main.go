// Command fdflash is a low-level bring-up tool for the W25Q64FV chip
// itself, bypassing SimpleFS and HostLink entirely: raw ID query,
// byte-range reads, and whole-file writes, for bench-testing a chip
// wired to an FT2232H before trusting the filesystem layer on top of
// it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/rc6502fd/flashdisk/flash"
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	fdflash <command> [arguments]

Commands:
	id	 print the chip's JEDEC ID
	read	 read raw bytes from the chip
	write	 write a raw file to the chip
`)
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	switch cmd := flag.Arg(0); cmd {
	case "id":
		idCmd()
	case "read":
		readCmd(flag.Args()[1:])
	case "write":
		writeCmd(flag.Args()[1:])
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %q\n", cmd)
		usage()
	}
}

// openChip finds the FT2232H bridge, as the teacher's bring-up tool
// does, and hands the resulting SPI port and CS pin to flash.Chip.
func openChip() *flash.Chip {
	ft, err := openFT2232H()
	if err != nil {
		fatalf("open FT2232H: %v", err)
	}
	port, err := ft.SPI()
	if err != nil {
		fatalf("spi port: %v", err)
	}
	chip := flash.NewChip(port, ft.D4) // ADBUS4 -> CS
	if err := chip.Open(); err != nil {
		fatalf("flash: %v", err)
	}
	return chip
}

func openFT2232H() (*ftdi.FT232H, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	const (
		vendorID  = 0x0403
		productID = 0x6010
	)
	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			return ft, nil
		}
	}
	return nil, errors.New("FT2232H not found")
}
