package hostlink

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rc6502fd/flashdisk/flash"
	"github.com/rc6502fd/flashdisk/simplefs"
)

// Machine is the controller-side protocol state machine, split per
// design note 9 into an ISR-equivalent half (Step, pure, no flash
// access) and a main-loop-equivalent half (Service, touches flash via
// a simplefs.FS). It replaces the original firmware's file-scope
// `volatile` globals with an explicit owner struct; a Machine is not
// safe for concurrent use without external synchronization (see
// Controller for the mutex-guarded deployment).
type Machine struct {
	state    State
	command  byte
	msNibble byte // 0, or the pending upper nibble/send-phase flag

	buf    [flash.PageSize]byte // shared scratch buffer (the original's `buff`)
	bufIdx int
	bufMax int

	aux string // received command argument, copied out of buf at EODT (the original's `buff_aux`)

	block          uint16
	fileSize       uint16
	handleDiskData bool
}

// NewMachine returns a Machine in the IDLE state.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State reports the machine's current protocol state.
func (m *Machine) State() State { return m.state }

// Command reports the command selector byte of the in-progress or
// most recently completed exchange.
func (m *Machine) Command() byte { return m.command }

// BufIdx and BufMax report the scratch buffer's current fill and
// target length, for debug tracing (mirroring the firmware's
// print_status call sites).
func (m *Machine) BufIdx() int { return m.bufIdx }
func (m *Machine) BufMax() int { return m.bufMax }

// FileSize reports the bytes remaining to stream for the file under
// transfer.
func (m *Machine) FileSize() uint16 { return m.fileSize }

func (m *Machine) reset() {
	m.state = StateIdle
	m.command = 0
	m.msNibble = 0
	m.bufMax = 0
	m.bufIdx = 0
	m.handleDiskData = false
	m.fileSize = 0
	m.block = 0
	m.aux = ""
}

// Step processes one host-to-controller byte and returns the
// controller's immediate reply, mirroring the AVR firmware's
// ISR(INT0_vect). It never touches flash: when the incoming byte
// requires disk service, Step sets the internal handleDiskData flag,
// leaves a transient busy byte as the immediate reply (as the real
// ISR does by pre-setting MCU_OUT = BSY_FLAG before any branch can
// overwrite it), and the caller must drain Pending()/Service calls to
// get the real follow-up reply — see Controller.Exchange for the
// synchronous convenience that does this for a single host byte.
func (m *Machine) Step(in byte) byte {
	out := bsyFlag

	if in&datFlag != 0 {
		if m.state == StateReceiveCmd || m.state == StateReceiveData {
			if m.bufIdx < len(m.buf) {
				if m.msNibble != 0 {
					m.buf[m.bufIdx] = ((m.msNibble & 0x0f) << 4) | (in & 0x0f)
					m.bufIdx++
					m.msNibble = 0
					if m.bufIdx >= len(m.buf) {
						m.handleDiskData = true
					}
				} else {
					m.msNibble = in
				}
			}
			if !m.handleDiskData {
				out = ACK
			}
		}
		return out
	}

	switch in {
	case CmdReset:
		m.reset()
		out = ACK

	case CmdList, CmdRead, CmdWrite, CmdDelete:
		m.command = in
		m.state = StateReceiveCmd
		m.bufMax = MaxNameSize
		m.bufIdx = 0
		m.msNibble = 0
		m.handleDiskData = false
		out = ACK

	case BODT:
		out = ACK

	case EODT:
		switch {
		case m.state == StateReceiveCmd:
			m.aux = string(m.buf[:m.bufIdx])
			m.state = StateProcessCmd
			// out stays the busy placeholder: PROCESS_CMD's real reply
			// (BODT/ACK/NACK/EODT) comes from the next Service call.
		case m.command == CmdWrite && m.state == StateReceiveData:
			m.state = StateFinish
			out = ACK
			m.handleDiskData = true
		}

	case ACK:
		switch m.command {
		case CmdList, CmdRead:
			if m.state == StateSendData {
				if m.bufIdx < m.bufMax {
					out = m.sendNibble()
				} else {
					m.handleDiskData = true
				}
			}
		}
		if m.state == StateFinish {
			m.reset()
			out = 0x00
		}
		out &^= bsyFlag

	case NACK:
		m.reset()
		out = 0x00

	default:
		// Unexpected control byte: per the error-handling policy, the
		// controller returns to IDLE and clears its output, forcing
		// the host to retry.
		m.reset()
		out = 0x00
	}

	return out
}

// sendNibble emits the next nibble of buf[bufIdx], advancing bufIdx
// once both nibbles of a byte have gone out. msNibble is reused here
// as a send-phase flag (0 = high nibble next), exactly as the
// original overloads the same field for both directions, which is
// safe because the protocol is strictly half-duplex.
func (m *Machine) sendNibble() byte {
	if m.msNibble == 0 {
		out := rdyFlag | datFlag | ((m.buf[m.bufIdx] >> 4) & 0x0f)
		m.msNibble = datFlag
		return out
	}
	out := rdyFlag | datFlag | (m.buf[m.bufIdx] & 0x0f)
	m.msNibble = 0
	m.bufIdx++
	return out
}

// Pending reports whether the main-loop half has work to do before
// the controller's reply is final.
func (m *Machine) Pending() bool {
	switch m.state {
	case StateProcessCmd:
		return true
	case StateSendData, StateReceiveData, StateFinish:
		return m.handleDiskData
	default:
		return false
	}
}

// Service performs one quantum of main-loop work against fs: dispatch
// a freshly-assembled command, fetch the next LIST entry or READ page,
// or flush one WRITE page. It returns the byte the controller should
// now present, and false if nothing was pending.
func (m *Machine) Service(fs *simplefs.FS) (byte, bool) {
	switch m.state {
	case StateProcessCmd:
		return m.serviceProcessCmd(fs), true

	case StateSendData:
		m.handleDiskData = false
		switch m.command {
		case CmdList:
			if m.handleCmdList(fs, false) {
				return m.sendNibble(), true
			}
		case CmdRead:
			if m.bufMax == flash.PageSize && m.fileSize > 0 && m.handleCmdRead(fs, false) {
				return m.sendNibble(), true
			}
		}
		m.state = StateFinish
		return EODT, true

	case StateReceiveData, StateFinish:
		if m.command != CmdWrite || !m.handleDiskData {
			return 0, false
		}
		m.handleDiskData = false
		if m.handleCmdWrite(fs, false) {
			out := byte(ACK)
			if m.bufMax == 0 {
				m.reset()
			}
			return out, true
		}
		return NACK, true
	}
	return 0, false
}

func (m *Machine) serviceProcessCmd(fs *simplefs.FS) byte {
	switch m.command {
	case CmdList:
		if m.handleCmdList(fs, true) {
			m.state = StateSendData
			return BODT
		}
		m.state = StateIdle
		return EODT

	case CmdRead:
		if m.handleCmdRead(fs, true) {
			m.state = StateSendData
			return BODT
		}
		m.state = StateIdle
		return EODT

	case CmdWrite:
		if m.handleCmdWrite(fs, true) {
			m.state = StateReceiveData
			return ACK
		}
		m.state = StateIdle
		return NACK

	case CmdDelete:
		ok := m.handleCmdDelete(fs)
		m.state = StateIdle
		if ok {
			return ACK
		}
		return NACK
	}
	m.state = StateIdle
	return NACK
}

func (m *Machine) handleCmdList(fs *simplefs.FS, initial bool) bool {
	m.bufMax = simplefs.EntrySize
	m.bufIdx = 0
	m.msNibble = 0
	if initial {
		m.block = 0
	} else {
		m.block++
	}
	status := fs.List(m.buf[:], &m.block, m.aux)
	if status != simplefs.Ok {
		m.bufMax = 0
	}
	return status == simplefs.Ok
}

func (m *Machine) handleCmdRead(fs *simplefs.FS, initial bool) bool {
	m.bufMax = flash.PageSize
	m.bufIdx = 0
	m.msNibble = 0

	var status simplefs.Status
	if initial {
		if strings.HasPrefix(m.aux, "#") {
			n, err := strconv.Atoi(m.aux[1:])
			if err != nil || n < 0 {
				return false
			}
			status = fs.ReadByBlock(m.buf[:], uint16(n), &m.fileSize)
		} else {
			status = fs.ReadByName(m.buf[:], m.aux, &m.fileSize)
		}
	} else {
		status = fs.ReadNextPage(m.buf[:])
	}

	if status == simplefs.Ok {
		m.bufMax = min(int(m.fileSize), flash.PageSize)
		m.fileSize -= uint16(m.bufMax)
	}
	return status == simplefs.Ok
}

func (m *Machine) handleCmdWrite(fs *simplefs.FS, initial bool) bool {
	var status simplefs.Status
	if initial {
		spec, err := parseWriteSpec(m.aux)
		if err != nil {
			return false
		}
		var block uint16
		status = fs.CreateEntry(m.buf[:], spec, &block, &m.fileSize)
		if status == simplefs.Ok {
			m.bufMax = min(int(m.fileSize), flash.PageSize)
			m.bufIdx = simplefs.EntrySize
			m.msNibble = 0
		}
		return status == simplefs.Ok
	}

	status = fs.WriteFile(m.buf[:])
	if uint16(m.bufMax) <= m.fileSize {
		m.fileSize -= uint16(m.bufMax)
	} else {
		m.fileSize = 0
	}
	m.bufMax = min(int(m.fileSize), flash.PageSize)
	m.bufIdx = 0
	return status == simplefs.Ok
}

func (m *Machine) handleCmdDelete(fs *simplefs.FS) bool {
	var status simplefs.Status
	if strings.HasPrefix(m.aux, "#") {
		n, err := strconv.Atoi(m.aux[1:])
		if err != nil || n < 0 {
			return false
		}
		status = fs.DeleteByBlock(m.buf[:], uint16(n))
	} else {
		status = fs.DeleteByName(m.buf[:], m.aux)
	}
	return status == simplefs.Ok
}

// parseWriteSpec parses "name#hexstart#hexstop", matching the
// original's parseWriteFileInput (strtoul base 16).
func parseWriteSpec(arg string) (simplefs.CreateSpec, error) {
	first := strings.IndexByte(arg, '#')
	if first < 0 {
		return simplefs.CreateSpec{}, errors.New("hostlink: missing '#' in write spec")
	}
	name := arg[:first]
	rest := arg[first+1:]

	second := strings.IndexByte(rest, '#')
	if second < 0 {
		return simplefs.CreateSpec{}, errors.New("hostlink: missing second '#' in write spec")
	}
	start, err := strconv.ParseUint(rest[:second], 16, 16)
	if err != nil {
		return simplefs.CreateSpec{}, err
	}
	stop, err := strconv.ParseUint(rest[second+1:], 16, 16)
	if err != nil {
		return simplefs.CreateSpec{}, err
	}
	return simplefs.CreateSpec{Name: name, Start: uint16(start), Stop: uint16(stop)}, nil
}
