package hostlink

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rc6502fd/flashdisk/flash"
)

func newBulkTestImage(t *testing.T, blocks int) *flash.Image {
	t.Helper()
	im := flash.NewImage(filepath.Join(t.TempDir(), "disk.img"), blocks)
	require.NoError(t, im.Open())
	t.Cleanup(func() { im.Close() })
	return im
}

func TestBulkTransferWriteThenReadAllRoundTrip(t *testing.T) {
	im := newBulkTestImage(t, 1)
	b := NewBulkTransfer(im)

	size := int64(3 * flash.PageSize)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}

	require.NoError(t, b.WriteAll(bytes.NewReader(data), size))

	var out bytes.Buffer
	require.NoError(t, b.ReadAll(&out, size))
	assert.Equal(t, data, out.Bytes())
}

func TestBulkTransferWriteAllPadsShortFinalPage(t *testing.T) {
	im := newBulkTestImage(t, 1)
	b := NewBulkTransfer(im)

	// One full page plus a short final page.
	size := int64(flash.PageSize) + 10
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(0x11)
	}

	require.NoError(t, b.WriteAll(bytes.NewReader(data), size))

	var out bytes.Buffer
	require.NoError(t, b.ReadAll(&out, int64(2*flash.PageSize)))
	got := out.Bytes()

	assert.Equal(t, data, got[:size])
	want := bytes.Repeat([]byte{0xFF}, 2*flash.PageSize-int(size))
	assert.Equal(t, want, got[size:])
}

func TestBulkTransferErase(t *testing.T) {
	im := newBulkTestImage(t, 1)
	b := NewBulkTransfer(im)

	var page [flash.PageSize]byte
	for i := range page {
		page[i] = 0x42
	}
	require.Equal(t, flash.Ok, im.WritePage(0, page))

	assert.Equal(t, flash.Ok, b.Erase())

	got := make([]byte, flash.PageSize)
	require.Equal(t, flash.Ok, im.ReadPage(0, got))
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, flash.PageSize), got)
}
