package flash

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
)

// SPI command bytes, from original_source/software/firmware/w25q64fv.h
// and cross-checked against the teacher's own flashCmd* constants.
const (
	cmdReleasePowerDown = 0xAB
	cmdPowerDown        = 0xB9
	cmdReadJEDECID      = 0x9F
	cmdRead             = 0x03
	cmdWriteEnable      = 0x06
	cmdPageProgram      = 0x02
	cmdBlockErase32KB   = 0x52
	cmdBlockErase64KB   = 0xD8
	cmdChipErase        = 0xC7
	cmdReadStatusReg1   = 0x05
)

// Chip drives a real NOR flash chip over SPI, addressed through a
// chip-select GPIO pin. It implements Device.
type Chip struct {
	Port spi.PortCloser // unopened SPI port; Open() connects it
	CS   gpio.PinIO     // chip-select line

	conn   spi.Conn
	id     [3]byte
	params *chipParams
}

// NewChip constructs a Chip bound to an already-located SPI port and
// chip-select pin (see cmd/fdflash for how the teacher's own FTDI
// bring-up path locates both).
func NewChip(port spi.PortCloser, cs gpio.PinIO) *Chip {
	return &Chip{Port: port, CS: cs}
}

// Open connects the SPI bus at the chip's rated clock, releases it
// from power-down, and reads back its JEDEC ID to confirm presence.
// The ID must be non-zero, matching the spec's "verify presence"
// requirement for a real chip.
func (c *Chip) Open() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("flash: host init: %w", err)
	}
	if c.Port == nil || c.CS == nil {
		return errors.New("flash: chip requires a connected SPI port and CS pin")
	}
	conn, err := c.Port.Connect(30*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return fmt.Errorf("flash: spi connect: %w", err)
	}
	c.conn = conn

	if err := c.releasePowerDown(); err != nil {
		return err
	}
	id, err := c.readJEDECID()
	if err != nil {
		return err
	}
	if id == ([3]byte{}) {
		return errors.New("flash: chip not present (zero JEDEC ID)")
	}
	c.id = id
	if p, ok := knownChips[id]; ok {
		c.params = &p
	}
	return nil
}

// tx wraps one SPI transaction with chip-select assertion, mirroring
// the teacher's Flash.tx.
func (c *Chip) tx(buf []byte) (err error) {
	if err = c.CS.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := c.CS.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	return c.conn.Tx(buf, buf)
}

func (c *Chip) releasePowerDown() error {
	if err := c.tx([]byte{cmdReleasePowerDown}); err != nil {
		return err
	}
	time.Sleep(c.paramOrMax(func(p *chipParams) time.Duration { return p.tRES1 }))
	return nil
}

func (c *Chip) readJEDECID() ([3]byte, error) {
	buf := []byte{cmdReadJEDECID, 0, 0, 0}
	if err := c.tx(buf); err != nil {
		return [3]byte{}, err
	}
	return [3]byte(buf[1:]), nil
}

// ReadPage reads len(buf) bytes starting at addr in a single SPI read
// transaction, whatever the length of buf (callers of the Device
// interface never ask for more than one page at a time).
func (c *Chip) ReadPage(addr uint32, buf []byte) Status {
	req := make([]byte, 4+len(buf))
	req[0] = cmdRead
	req[1] = byte(addr >> 16)
	req[2] = byte(addr >> 8)
	req[3] = byte(addr)
	if err := c.tx(req); err != nil {
		return CommunicationFail
	}
	copy(buf, req[4:])
	return Ok
}

func (c *Chip) writeEnable() error {
	return c.tx([]byte{cmdWriteEnable})
}

// WritePage programs exactly one page. The caller — not WritePage —
// is responsible for polling WaitUntilFree afterward; SimpleFS batches
// multiple page writes and waits between them, so an implicit wait
// here would double-wait.
func (c *Chip) WritePage(addr uint32, page [PageSize]byte) Status {
	if addr%PageSize != 0 {
		return NotValid
	}
	if addr > addrMax24Bit {
		return NotValid
	}
	if c.Busy() {
		return Busy
	}
	if err := c.writeEnable(); err != nil {
		return CommunicationFail
	}
	buf := make([]byte, 4+PageSize)
	buf[0] = cmdPageProgram
	buf[1] = byte(addr >> 16)
	buf[2] = byte(addr >> 8)
	buf[3] = byte(addr)
	copy(buf[4:], page[:])
	if err := c.tx(buf); err != nil {
		return CommunicationFail
	}
	return Ok
}

func (c *Chip) eraseAt(cmd byte, addr uint32) Status {
	if err := c.writeEnable(); err != nil {
		return CommunicationFail
	}
	buf := []byte{cmd, byte(addr >> 16), byte(addr >> 8), byte(addr)}
	if err := c.tx(buf); err != nil {
		return CommunicationFail
	}
	return Ok
}

// EraseBlock32 erases the 32 KiB block containing addr.
func (c *Chip) EraseBlock32(addr uint32, hold bool) Status {
	if addr%BlockSize != 0 {
		return NotValid
	}
	if status := c.eraseAt(cmdBlockErase32KB, addr); status != Ok {
		return status
	}
	if hold {
		return c.WaitUntilFree(DefaultTimeout)
	}
	return Ok
}

// EraseChip bulk-erases the entire device.
func (c *Chip) EraseChip(hold bool) Status {
	if err := c.writeEnable(); err != nil {
		return CommunicationFail
	}
	if err := c.tx([]byte{cmdChipErase}); err != nil {
		return CommunicationFail
	}
	if hold {
		return c.WaitUntilFree(c.paramOrMax(func(p *chipParams) time.Duration { return p.tEraseChip }))
	}
	return Ok
}

// StatusRegister mirrors the teacher's own bit layout doc.
type StatusRegister byte

func (sr StatusRegister) Busy() bool { return sr&(1<<0) != 0 }

func (c *Chip) readStatusRegister() (StatusRegister, error) {
	buf := []byte{cmdReadStatusReg1, 0}
	if err := c.tx(buf); err != nil {
		return 0, err
	}
	return StatusRegister(buf[1]), nil
}

// Busy reports chip-level readiness by reading the status register.
// A communication failure is reported as busy, erring toward caution.
func (c *Chip) Busy() bool {
	sr, err := c.readStatusRegister()
	if err != nil {
		return true
	}
	return sr.Busy()
}

// WaitUntilFree polls Busy at ~1ms granularity until it clears, or
// returns Timeout once timeout has elapsed.
func (c *Chip) WaitUntilFree(timeout time.Duration) Status {
	return pollUntilFree(c.Busy, timeout)
}

// Close releases the SPI port.
func (c *Chip) Close() error {
	if c.Port == nil {
		return nil
	}
	return c.Port.Close()
}

// ID returns the chip's JEDEC ID and, when recognized, its name.
func (c *Chip) ID() (id [3]byte, name string) {
	if c.params != nil {
		return c.id, c.params.name
	}
	return c.id, ""
}
