package hostlink

import "io"

// PipeLink is an in-memory Transport connecting a simulated host to a
// Controller without any physical layer, for tests. (The -sim mode of
// cmd/fdcontroller uses its own stdin/stdout Transport instead.)
type PipeLink struct {
	in  chan byte
	out chan byte
}

// NewPipeLink returns a ready-to-use PipeLink.
func NewPipeLink() *PipeLink {
	return &PipeLink{in: make(chan byte), out: make(chan byte)}
}

// ReadByte implements Transport, consuming a byte sent by Send.
func (p *PipeLink) ReadByte() (byte, error) {
	b, ok := <-p.in
	if !ok {
		return 0, io.EOF
	}
	return b, nil
}

// WriteByte implements Transport, publishing a byte for Recv.
func (p *PipeLink) WriteByte(out byte) error {
	p.out <- out
	return nil
}

// Send delivers a host-to-controller byte. It blocks until the
// Controller's Run loop calls ReadByte.
func (p *PipeLink) Send(b byte) { p.in <- b }

// Recv waits for the controller's reply to the most recent Send.
func (p *PipeLink) Recv() byte { return <-p.out }

// Close signals end of stream; a subsequent ReadByte returns io.EOF.
func (p *PipeLink) Close() { close(p.in) }

var _ Transport = (*PipeLink)(nil)
