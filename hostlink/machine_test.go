package hostlink

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rc6502fd/flashdisk/flash"
	"github.com/rc6502fd/flashdisk/simplefs"
)

func newTestController(t *testing.T, blocks int) *Controller {
	t.Helper()
	im := flash.NewImage(filepath.Join(t.TempDir(), "disk.img"), 0)
	fs := simplefs.New(im, blocks)
	require.NoError(t, fs.Init(blocks))
	return NewController(fs)
}

// sendData feeds each nibble-pair of data through Exchange, preceded
// by the high nibble then low nibble, matching how the real host
// drives the bus one nibble per strobe (each carrying the ACK that
// follows the previous byte, per the protocol's "ACK paces the
// stream" rule). This harness ACKs immediately, simulating a host
// with no latency.
func sendData(t *testing.T, c *Controller, data []byte) {
	t.Helper()
	for _, b := range data {
		out := c.Exchange(datFlag | (b >> 4))
		assert.Equal(t, byte(ACK), out, "high nibble of 0x%02x should be ACKed", b)
		out = c.Exchange(datFlag | (b & 0x0f))
		assert.Equal(t, byte(ACK), out, "low nibble of 0x%02x should be ACKed", b)
	}
}

// nextStreamByte reads one byte out of an active, ACK-paced SEND_DATA
// stream. ok is false when the controller ended the stream with EODT
// instead of a data nibble.
func nextStreamByte(c *Controller) (b byte, ok bool) {
	hi := c.Exchange(ACK)
	if hi == EODT {
		return 0, false
	}
	lo := c.Exchange(ACK)
	return (hi&0x0f)<<4 | (lo & 0x0f), true
}

func recvData(t *testing.T, c *Controller, n int) []byte {
	t.Helper()
	got := make([]byte, 0, n)
	for len(got) < n {
		b, ok := nextStreamByte(c)
		require.True(t, ok, "unexpected end of transfer at byte %d/%d", len(got), n)
		got = append(got, b)
	}
	return got
}

func drainStream(c *Controller) []byte {
	var all []byte
	for {
		b, ok := nextStreamByte(c)
		if !ok {
			return all
		}
		all = append(all, b)
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	c := newTestController(t, 2)
	assert.Equal(t, byte(ACK), c.Exchange(CmdReset))
	assert.Equal(t, StateIdle, c.State())
}

func TestUnknownByteResetsAndClearsOutput(t *testing.T) {
	c := newTestController(t, 2)
	out := c.Exchange(0x0F)
	assert.Equal(t, byte(0x00), out)
	assert.Equal(t, StateIdle, c.State())
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	c := newTestController(t, 2)
	name := "greeting.txt"
	content := []byte("hello, 6502")

	spec := []byte(name + "#0#" + hex16(len(content)))
	assert.Equal(t, byte(ACK), c.Exchange(CmdWrite))
	sendData(t, c, spec)
	assert.Equal(t, byte(ACK), c.Exchange(EODT))
	assert.Equal(t, StateReceiveData, c.State())

	sendData(t, c, content)
	assert.Equal(t, byte(ACK), c.Exchange(EODT))
	assert.Equal(t, StateIdle, c.State())

	assert.Equal(t, byte(ACK), c.Exchange(CmdRead))
	sendData(t, c, []byte(name))
	assert.Equal(t, byte(BODT), c.Exchange(EODT))
	assert.Equal(t, StateSendData, c.State())

	got := recvData(t, c, simplefs.EntrySize+len(content))
	assert.Equal(t, content, got[simplefs.EntrySize:])
	assert.Equal(t, byte(EODT), c.Exchange(ACK))
	assert.Equal(t, StateFinish, c.State())
	assert.Equal(t, byte(0x00), c.Exchange(ACK))
	assert.Equal(t, StateIdle, c.State())
}

func TestReadIsCaseInsensitive(t *testing.T) {
	c := newTestController(t, 2)
	content := []byte("hello, 6502")

	assert.Equal(t, byte(ACK), c.Exchange(CmdWrite))
	sendData(t, c, []byte("hello#0#"+hex16(len(content))))
	assert.Equal(t, byte(ACK), c.Exchange(EODT))
	sendData(t, c, content)
	assert.Equal(t, byte(ACK), c.Exchange(EODT))
	assert.Equal(t, StateIdle, c.State())

	assert.Equal(t, byte(ACK), c.Exchange(CmdRead))
	sendData(t, c, []byte("HELLO"))
	assert.Equal(t, byte(BODT), c.Exchange(EODT))

	got := recvData(t, c, simplefs.EntrySize+len(content))
	assert.Equal(t, content, got[simplefs.EntrySize:])
	assert.Equal(t, byte(EODT), c.Exchange(ACK))
	assert.Equal(t, byte(0x00), c.Exchange(ACK))
	assert.Equal(t, StateIdle, c.State())
}

func TestReadMissingFileEndsWithEODT(t *testing.T) {
	c := newTestController(t, 2)
	assert.Equal(t, byte(ACK), c.Exchange(CmdRead))
	sendData(t, c, []byte("nope.txt"))
	assert.Equal(t, byte(EODT), c.Exchange(EODT))
	assert.Equal(t, StateIdle, c.State())
}

func TestListEnumeratesWrittenFiles(t *testing.T) {
	c := newTestController(t, 3)
	for _, name := range []string{"a.txt", "b.txt"} {
		assert.Equal(t, byte(ACK), c.Exchange(CmdWrite))
		sendData(t, c, []byte(name+"#0#1"))
		assert.Equal(t, byte(ACK), c.Exchange(EODT))
		sendData(t, c, []byte{0x42})
		assert.Equal(t, byte(ACK), c.Exchange(EODT))
	}

	assert.Equal(t, byte(ACK), c.Exchange(CmdList))
	require.Equal(t, byte(BODT), c.Exchange(EODT))

	raw := drainStream(c)
	require.Equal(t, 2*simplefs.EntrySize, len(raw))

	var names []string
	for i := 0; i < len(raw); i += simplefs.EntrySize {
		names = append(names, simplefs.UnmarshalFileEntry(raw[i:i+simplefs.EntrySize]).NameString())
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
	assert.Equal(t, StateFinish, c.State())
	assert.Equal(t, byte(0x00), c.Exchange(ACK))
	assert.Equal(t, StateIdle, c.State())
}

func TestDeleteByNameThenReadFails(t *testing.T) {
	c := newTestController(t, 2)
	assert.Equal(t, byte(ACK), c.Exchange(CmdWrite))
	sendData(t, c, []byte("x.bin#0#1"))
	assert.Equal(t, byte(ACK), c.Exchange(EODT))
	sendData(t, c, []byte{0x01})
	assert.Equal(t, byte(ACK), c.Exchange(EODT))

	assert.Equal(t, byte(ACK), c.Exchange(CmdDelete))
	sendData(t, c, []byte("x.bin"))
	assert.Equal(t, byte(ACK), c.Exchange(EODT))

	assert.Equal(t, byte(ACK), c.Exchange(CmdRead))
	sendData(t, c, []byte("x.bin"))
	assert.Equal(t, byte(EODT), c.Exchange(EODT))
}

func TestPipeLinkRoundTrip(t *testing.T) {
	c := newTestController(t, 2)
	link := NewPipeLink()
	defer link.Close()

	go c.Run(t.Context(), link)

	link.Send(CmdReset)
	assert.Equal(t, byte(ACK), link.Recv())
}

func hex16(n int) string {
	const digits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n&0x0f]
		n >>= 4
	}
	return string(buf[i:])
}
