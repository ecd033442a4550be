package hostlink

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// GPIOLink is the physical-layer Transport for real hardware: an
// 8-bit parallel data bus plus a host-driven strobe line and a
// controller-driven ready line, addressed through periph.io's gpio
// package. It replaces the original firmware's direct port-register
// access (PORTB/PIND) and INT0 vector with periph.io's edge-waiting
// API.
type GPIOLink struct {
	Data   [8]gpio.PinIO // D0 (LSB) .. D7 (MSB)
	Strobe gpio.PinIO    // host -> controller: edge means a byte is ready on Data
	Ready  gpio.PinIO    // controller -> host: edge means a reply is ready on Data
}

// Open configures Strobe for falling-edge detection, matching the
// original firmware's INT0 setup (ISC01 set, ISC00 clear): a host
// byte is latched on the strobe's falling edge. Data and Ready are
// driven as outputs lazily, on first use, since their direction
// depends on which side is talking.
func (g *GPIOLink) Open() error {
	if g.Strobe == nil || g.Ready == nil {
		return errors.New("hostlink: GPIOLink requires Strobe and Ready pins")
	}
	return g.Strobe.In(gpio.PullDown, gpio.FallingEdge)
}

// ReadByte blocks until Strobe edges, then samples the data bus.
func (g *GPIOLink) ReadByte() (byte, error) {
	if !g.Strobe.WaitForEdge(-1) {
		return 0, errors.New("hostlink: strobe wait interrupted")
	}
	var b byte
	for i, pin := range g.Data {
		if pin.Read() == gpio.High {
			b |= 1 << uint(i)
		}
	}
	return b, nil
}

// WriteByte drives out onto the data bus and pulses Ready low for at
// least 1 ms, signalling the host that a fresh reply is available.
func (g *GPIOLink) WriteByte(out byte) error {
	for i, pin := range g.Data {
		level := gpio.Low
		if out&(1<<uint(i)) != 0 {
			level = gpio.High
		}
		if err := pin.Out(level); err != nil {
			return err
		}
	}
	if err := g.Ready.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(time.Millisecond)
	return g.Ready.Out(gpio.High)
}

var _ Transport = (*GPIOLink)(nil)
