package hostlink

import (
	"context"
	"sync"

	"github.com/rc6502fd/flashdisk/simplefs"
	"github.com/rc6502fd/flashdisk/trace"
)

// Transport carries single bytes between the controller and the host
// across whatever physical layer backs it. ReadByte blocks until the
// host has strobed in a byte; WriteByte presents the controller's
// reply for the host to pick up.
type Transport interface {
	ReadByte() (byte, error)
	WriteByte(out byte) error
}

// Controller wires a Machine to a simplefs.FS and drives it against a
// Transport. Its mutex is the explicit owner of the Machine's state
// that design note 9 calls for: Exchange collapses the ISR/main-loop
// split into one call under lock, which is correct as long as a
// Service quantum never blocks for longer than the host's retry
// window — true for both flash.Image and, per its rated program/erase
// timings, flash.Chip.
type Controller struct {
	mu    sync.Mutex
	m     *Machine
	fs    *simplefs.FS
	trace *trace.Logger
}

// NewController returns a Controller in the IDLE state, operating on
// fs.
func NewController(fs *simplefs.FS) *Controller {
	return &Controller{m: NewMachine(), fs: fs}
}

// SetTrace attaches a debug logger; nil detaches it. Tracing never
// delays the protocol: Logger.Status is a no-op unless debug level is
// enabled.
func (c *Controller) SetTrace(t *trace.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = t
}

// State reports the controller's current protocol state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m.State()
}

// Exchange feeds one host-to-controller byte through the state
// machine and, if it lands in a state needing disk service, drains
// Service calls until the reply settles. It returns that final reply.
func (c *Controller) Exchange(in byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.m.Step(in)
	for c.m.Pending() {
		next, ok := c.m.Service(c.fs)
		if !ok {
			break
		}
		out = next
	}
	if c.trace != nil {
		c.trace.Status(byte(c.m.State()), c.m.Command(), uint16(c.m.BufIdx()), uint16(c.m.BufMax()), c.m.FileSize())
	}
	return out
}

// Run reads host bytes from t and exchanges each one until ctx is
// cancelled or t returns an error.
func (c *Controller) Run(ctx context.Context, t Transport) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		in, err := t.ReadByte()
		if err != nil {
			return err
		}
		if err := t.WriteByte(c.Exchange(in)); err != nil {
			return err
		}
	}
}
