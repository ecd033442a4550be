// Command fdconsole is a raw pass-through terminal for the
// controller's debug UART (see trace.Logger): it relays the
// controller's trace output to the screen and keystrokes back to the
// port, the way a developer watches print_status/print_msg output
// from the original firmware over a serial monitor.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"
	"unsafe"
)

func main() {
	path := flag.String("port", "/dev/cu.usbserial-2101", "debug UART device")
	baud := flag.Int("baud", syscall.B9600, "baud rate (termios speed constant)")
	flag.Parse()

	fd, err := syscall.Open(*path, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_CLOEXEC, 0)
	if err != nil {
		log.Fatal(err)
	}
	defer syscall.Close(fd)

	term := getTerm(fd)
	term.Ispeed = uint64(*baud)
	term.Ospeed = uint64(*baud)
	term.Cc[syscall.VMIN] = 1
	term.Cc[syscall.VTIME] = 0
	setTerm(fd, term)

	file := os.NewFile(uintptr(fd), "fdconsole")
	if file == nil {
		log.Fatal("failed to wrap UART file descriptor")
	}
	defer file.Close()

	go relayKeystrokes(file)

	buf := make([]byte, 64)
	for {
		n, err := file.Read(buf)
		if err != nil {
			log.Println("uart read:", err)
			return
		}
		fmt.Print(string(buf[:n]))
	}
}

// relayKeystrokes puts stdin into raw/cbreak mode and forwards every
// byte typed straight to the UART, so commands sent by a human reach
// the controller exactly as HostLink would send them.
func relayKeystrokes(file *os.File) {
	stdin := getTerm(syscall.Stdin)
	stdin.Lflag &^= syscall.ICANON | syscall.ECHO
	stdin.Cc[syscall.VMIN] = 1
	stdin.Cc[syscall.VTIME] = 0
	setTerm(syscall.Stdin, stdin)

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			log.Println("stdin read:", err)
			return
		}
		file.Write(buf[:n])
	}
}

func getTerm(fd int) syscall.Termios {
	term := syscall.Termios{}
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), syscall.TIOCGETA, uintptr(unsafe.Pointer(&term)))
	if errno != 0 {
		log.Fatal("get terminal attributes: ", errno)
	}
	return term
}

func setTerm(fd int, term syscall.Termios) {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), syscall.TIOCSETA, uintptr(unsafe.Pointer(&term)))
	if errno != 0 {
		log.Fatal("set terminal attributes: ", errno)
	}
}
