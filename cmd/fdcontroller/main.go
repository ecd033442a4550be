// Command fdcontroller runs the HostLink controller against a flash
// backend, either a real chip over SPI/GPIO (the default) or, with
// -sim, a stdin/stdout Transport a test harness can drive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/rc6502fd/flashdisk/flash"
	"github.com/rc6502fd/flashdisk/hostlink"
	"github.com/rc6502fd/flashdisk/simplefs"
	"github.com/rc6502fd/flashdisk/trace"
)

// stdioLink is a Transport over the process's own stdin/stdout, so a
// test harness can drive the controller as a subprocess without any
// GPIO hardware: one byte in on stdin produces one byte out on
// stdout, exactly as the wire protocol specifies.
type stdioLink struct {
	r *bufio.Reader
	w *bufio.Writer
}

func newStdioLink() *stdioLink {
	return &stdioLink{r: bufio.NewReader(os.Stdin), w: bufio.NewWriter(os.Stdout)}
}

func (s *stdioLink) ReadByte() (byte, error) { return s.r.ReadByte() }

func (s *stdioLink) WriteByte(out byte) error {
	if err := s.w.WriteByte(out); err != nil {
		return err
	}
	return s.w.Flush()
}

var _ hostlink.Transport = (*stdioLink)(nil)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func main() {
	var (
		imagePath string
		blocks    int
		sim       bool
		debug     bool
		spiPort   string
		csPin     string
		strobePin string
		readyPin  string
		dataPins  string
	)
	flag.StringVar(&imagePath, "image", "", "use a disk image instead of a real chip")
	flag.IntVar(&blocks, "blocks", flash.MaxBlocks, "image geometry, in 32 KiB blocks")
	flag.BoolVar(&sim, "sim", false, "speak the protocol over stdin/stdout instead of real GPIO (for test harnesses)")
	flag.BoolVar(&debug, "debug", false, "enable protocol trace output on stderr")
	flag.StringVar(&spiPort, "spi", "", "SPI port name (periph.io spireg), e.g. /dev/spidev0.0")
	flag.StringVar(&csPin, "cs", "", "chip-select GPIO pin name")
	flag.StringVar(&strobePin, "strobe", "", "host-strobe GPIO pin name")
	flag.StringVar(&readyPin, "ready", "", "controller-ready GPIO pin name")
	flag.StringVar(&dataPins, "data", "", "comma-separated D0..D7 GPIO pin names")
	flag.Parse()

	// spireg and gpioreg only know the ports and pins that host.Init
	// registers.
	if _, err := host.Init(); err != nil {
		fatalf("host init: %v", err)
	}

	dev, closeDev := openDevice(imagePath, blocks, spiPort, csPin)
	defer closeDev()

	fs := simplefs.New(dev, blocks)
	ctrl := hostlink.NewController(fs)

	if debug {
		tr := trace.New(os.Stderr)
		tr.Enable()
		ctrl.SetTrace(tr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sim {
		if err := ctrl.Run(ctx, newStdioLink()); err != nil && ctx.Err() == nil {
			fatalf("controller stopped: %v", err)
		}
		return
	}

	link, err := newGPIOLink(strobePin, readyPin, dataPins)
	if err != nil {
		fatalf("%v", err)
	}
	if err := link.Open(); err != nil {
		fatalf("%v", err)
	}
	if err := ctrl.Run(ctx, link); err != nil && ctx.Err() == nil {
		fatalf("controller stopped: %v", err)
	}
}

func openDevice(imagePath string, blocks int, spiPort, csPin string) (flash.Device, func()) {
	if imagePath != "" {
		im := flash.NewImage(imagePath, blocks)
		if err := im.Open(); err != nil {
			fatalf("%v", err)
		}
		return im, func() { im.Close() }
	}

	port, err := spireg.Open(spiPort)
	if err != nil {
		fatalf("spi: %v", err)
	}
	cs := gpioreg.ByName(csPin)
	if cs == nil {
		fatalf("gpio: chip-select pin %q not found", csPin)
	}
	chip := flash.NewChip(port, cs)
	if err := chip.Open(); err != nil {
		fatalf("flash: %v", err)
	}
	return chip, func() { chip.Close() }
}

func newGPIOLink(strobePin, readyPin, dataPinsCSV string) (*hostlink.GPIOLink, error) {
	names := splitCSV(dataPinsCSV)
	if len(names) != 8 {
		return nil, fmt.Errorf("fdcontroller: -data must name exactly 8 pins, got %d", len(names))
	}
	link := &hostlink.GPIOLink{
		Strobe: gpioreg.ByName(strobePin),
		Ready:  gpioreg.ByName(readyPin),
	}
	for i, name := range names {
		link.Data[i] = gpioreg.ByName(name)
	}
	return link, nil
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
