package simplefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rc6502fd/flashdisk/flash"
)

func newTestFS(t *testing.T, blocks int) *FS {
	t.Helper()
	im := flash.NewImage(filepath.Join(t.TempDir(), "disk.img"), 0)
	fs := New(im, blocks)
	require.NoError(t, fs.Init(blocks))
	return fs
}

// writeFile drives CreateEntry+WriteFile exactly as hostlink.Machine
// does, one page at a time, and returns the block the file landed on.
func writeFile(t *testing.T, fs *FS, name string, content []byte) uint16 {
	t.Helper()
	var buf [flash.PageSize]byte
	var block, size uint16
	spec := CreateSpec{Name: name, Start: 0, Stop: uint16(len(content))}
	require.Equal(t, Ok, fs.CreateEntry(buf[:], spec, &block, &size))

	remaining := content
	for pagesWritten := 0; pagesWritten*flash.PageSize < int(size); pagesWritten++ {
		for i := range buf {
			buf[i] = 0
		}
		offset := 0
		if pagesWritten == 0 {
			offset = EntrySize
			hdr := FileEntry{Block: block, Start: 0, Size: uint16(len(content))}
			setName(&hdr.Name, name)
			hdr.Marshal(buf[:])
		}
		n := copy(buf[offset:], remaining)
		remaining = remaining[n:]
		require.Equal(t, Ok, fs.WriteFile(buf[:]))
	}
	return block
}

func TestCreateAndReadSinglePageFile(t *testing.T) {
	fs := newTestFS(t, 4)
	content := []byte("hello world")
	writeFile(t, fs, "greeting.txt", content)

	var buf [flash.PageSize]byte
	var size uint16
	require.Equal(t, Ok, fs.ReadByName(buf[:], "greeting.txt", &size))
	assert.Equal(t, EntrySize+len(content), int(size))
	assert.Equal(t, content, buf[EntrySize:int(size)])
}

func TestCreateAndReadMultiPageFile(t *testing.T) {
	fs := newTestFS(t, 4)
	content := make([]byte, flash.PageSize+100)
	for i := range content {
		content[i] = byte(i)
	}
	writeFile(t, fs, "big.bin", content)

	var buf [flash.PageSize]byte
	var size uint16
	require.Equal(t, Ok, fs.ReadByName(buf[:], "big.bin", &size))
	got := append([]byte{}, buf[EntrySize:]...)

	require.Equal(t, Ok, fs.ReadNextPage(buf[:]))
	got = append(got, buf[:]...)

	assert.Equal(t, content, got[:len(content)])
}

func TestReadByBlockRejectsMismatchedHeader(t *testing.T) {
	fs := newTestFS(t, 4)
	writeFile(t, fs, "a.txt", []byte("x"))

	var buf [flash.PageSize]byte
	var size uint16
	assert.Equal(t, BlockIsNotValid, fs.ReadByBlock(buf[:], 3, &size))
}

func TestListPrefixMatch(t *testing.T) {
	fs := newTestFS(t, 4)
	writeFile(t, fs, "report1", []byte("a"))
	writeFile(t, fs, "report2", []byte("b"))
	writeFile(t, fs, "other", []byte("c"))

	var buf [EntrySize]byte
	var cursor uint16
	var names []string
	for {
		status := fs.List(buf[:], &cursor, "report")
		if status != Ok {
			break
		}
		names = append(names, UnmarshalFileEntry(buf[:]).NameString())
		cursor++
	}
	assert.ElementsMatch(t, []string{"report1", "report2"}, names)
}

func TestListEmptyPrefixMatchesEverything(t *testing.T) {
	fs := newTestFS(t, 4)
	writeFile(t, fs, "one", []byte("a"))
	writeFile(t, fs, "two", []byte("b"))

	var buf [EntrySize]byte
	var cursor uint16
	count := 0
	for {
		status := fs.List(buf[:], &cursor, "")
		if status != Ok {
			break
		}
		count++
		cursor++
	}
	assert.Equal(t, 2, count)
}

func TestDeleteByNameFreesBlock(t *testing.T) {
	fs := newTestFS(t, 2)
	writeFile(t, fs, "temp.txt", []byte("bye"))

	var buf [flash.PageSize]byte
	require.Equal(t, Ok, fs.DeleteByName(buf[:], "temp.txt"))

	var size uint16
	assert.Equal(t, FileEntryNotFound, fs.ReadByName(buf[:], "temp.txt", &size))
}

func TestDeleteByBlockValidatesHeader(t *testing.T) {
	fs := newTestFS(t, 2)
	block := writeFile(t, fs, "x.dat", []byte("z"))

	var buf [flash.PageSize]byte
	assert.Equal(t, Ok, fs.DeleteByBlock(buf[:], block))
}

func TestCreateEntryRejectsInvertedRange(t *testing.T) {
	fs := newTestFS(t, 2)
	var buf [flash.PageSize]byte
	var block, size uint16
	spec := CreateSpec{Name: "bad", Start: 10, Stop: 5}
	assert.Equal(t, InvalidData, fs.CreateEntry(buf[:], spec, &block, &size))
}

func TestCreateEntryFailsWhenDiskFull(t *testing.T) {
	fs := newTestFS(t, 1)
	writeFile(t, fs, "only.txt", []byte("x"))

	var buf [flash.PageSize]byte
	var block, size uint16
	spec := CreateSpec{Name: "overflow.txt", Start: 0, Stop: 1}
	assert.Equal(t, FileEntryNotFound, fs.CreateEntry(buf[:], spec, &block, &size))
}

func TestReindexRewritesBlockField(t *testing.T) {
	fs := newTestFS(t, 2)
	writeFile(t, fs, "a.txt", []byte("1"))
	writeFile(t, fs, "b.txt", []byte("2"))

	require.Equal(t, Ok, fs.Reindex(10))

	var buf [EntrySize]byte
	var cursor uint16
	count := 0
	for {
		status := fs.List(buf[:], &cursor, "")
		if status != Ok {
			break
		}
		entry := UnmarshalFileEntry(buf[:])
		assert.Equal(t, cursor+10, entry.Block)
		count++
		cursor++
	}
	assert.Equal(t, 2, count)
}
