package flash

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImage(t *testing.T, blocks int) *Image {
	t.Helper()
	im := NewImage(filepath.Join(t.TempDir(), "disk.img"), blocks)
	require.NoError(t, im.Open())
	t.Cleanup(func() { im.Close() })
	return im
}

func TestImageOpenFillsErased(t *testing.T) {
	im := newTestImage(t, 2)
	buf := make([]byte, BlockSize*2)
	require.Equal(t, Ok, im.ReadPage(0, buf))
	assert.True(t, bytes.Equal(buf, bytes.Repeat([]byte{0xFF}, len(buf))))
}

func TestImageWriteReadPage(t *testing.T) {
	im := newTestImage(t, 1)
	var page [PageSize]byte
	for i := range page {
		page[i] = byte(i)
	}
	require.Equal(t, Ok, im.WritePage(0, page))

	got := make([]byte, PageSize)
	require.Equal(t, Ok, im.ReadPage(0, got))
	assert.Equal(t, page[:], got)
}

func TestImageWritePageRejectsUnaligned(t *testing.T) {
	im := newTestImage(t, 1)
	var page [PageSize]byte
	assert.Equal(t, NotValid, im.WritePage(1, page))
}

func TestImageEraseBlock32(t *testing.T) {
	im := newTestImage(t, 1)
	var page [PageSize]byte
	for i := range page {
		page[i] = 0x42
	}
	require.Equal(t, Ok, im.WritePage(0, page))
	require.Equal(t, Ok, im.EraseBlock32(0, true))

	got := make([]byte, PageSize)
	require.Equal(t, Ok, im.ReadPage(0, got))
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, PageSize), got)
}

func TestImageEraseBlock32RejectsUnaligned(t *testing.T) {
	im := newTestImage(t, 1)
	assert.Equal(t, NotValid, im.EraseBlock32(PageSize, true))
}

func TestImageBusyNeverTrue(t *testing.T) {
	im := newTestImage(t, 1)
	assert.False(t, im.Busy())
	assert.Equal(t, Ok, im.WaitUntilFree(0))
}

func TestImageShrinkOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	im := NewImage(path, 4)
	require.NoError(t, im.Open())
	require.NoError(t, im.Close())

	im2 := NewImage(path, 1)
	require.NoError(t, im2.Open())
	defer im2.Close()

	buf := make([]byte, BlockSize)
	require.Equal(t, Ok, im2.ReadPage(0, buf))
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, BlockSize), buf)
}
