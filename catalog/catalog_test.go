package catalog

import (
	"crypto/sha1"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/bmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "test.db"), log.New(ioutil.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
	})
	return c
}

func writeBitmap(t *testing.T, file string, mode uint8, bitCount uint16) string {
	t.Helper()
	m, err := bmp.New(mode, bitCount, 5, 3)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
	require.NoError(t, bmp.Save(m, file))

	b, err := ioutil.ReadFile(file)
	require.NoError(t, err)
	return fmt.Sprintf("%X", sha1.Sum(b))
}

func TestAddFind(t *testing.T) {
	c := newCatalog(t)
	dir := t.TempDir()

	sha := writeBitmap(t, filepath.Join(dir, "a.bmp"), 0x88, 4)

	id, err := c.Add(filepath.Join(dir, "a.bmp"))
	require.NoError(t, err)

	// Same file again is not duplicated
	again, err := c.Add(filepath.Join(dir, "a.bmp"))
	require.NoError(t, err)
	assert.Equal(t, id, again)

	m, err := c.Find(sha)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 5, m.Width())
	assert.Equal(t, uint16(4), m.BitCount())
	assert.Equal(t, bmp.Pixel{B: 0x88, G: 0x88, R: 0x88}, m.At(0, 0))

	m, err = c.Find("missing")
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestAddInvalid(t *testing.T) {
	c := newCatalog(t)
	dir := t.TempDir()

	file := filepath.Join(dir, "junk.bmp")
	require.NoError(t, ioutil.WriteFile(file, []byte("not a bitmap at all, not even close to one, nope"), 0644))

	_, err := c.Add(file)
	assert.True(t, skippable(err))

	_, err = c.Add(filepath.Join(dir, "missing.bmp"))
	assert.Error(t, err)
	assert.False(t, skippable(err))
}

func TestScan(t *testing.T) {
	c := newCatalog(t)
	dir := t.TempDir()

	a := writeBitmap(t, filepath.Join(dir, "a.bmp"), 1, 24)
	b := writeBitmap(t, filepath.Join(dir, "sub", "b.BMP"), 2, 8)
	writeBitmap(t, filepath.Join(dir, "sub", "copy.bmp"), 1, 24)
	writeBitmap(t, filepath.Join(dir, ".hidden", "c.bmp"), 3, 32)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "junk.bmp"), []byte("BM"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))

	require.NoError(t, c.Scan(dir, 3))

	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	bySHA := make(map[string]Entry)
	for _, e := range entries {
		bySHA[e.SHA1] = e
	}

	require.Contains(t, bySHA, a)
	assert.Equal(t, 2, bySHA[a].Files)
	assert.Equal(t, uint16(24), bySHA[a].BitCount)
	assert.Equal(t, 5, bySHA[a].Width)
	assert.Equal(t, 3, bySHA[a].Height)

	require.Contains(t, bySHA, b)
	assert.Equal(t, 1, bySHA[b].Files)
	assert.Equal(t, uint16(8), bySHA[b].BitCount)

	paths, err := c.Paths(a)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.bmp"), filepath.Join(dir, "sub", "copy.bmp")}, paths)
}

// Same pixels, different headers
func TestPixelCRC(t *testing.T) {
	m, err := bmp.New(9, 24, 3, 3)
	require.NoError(t, err)
	n := m.Clone()
	n.InfoHeader.XPelsPerMeter = 2835
	assert.Equal(t, pixelCRC(m), pixelCRC(n))

	n.Pix[4] = bmp.Pixel{}
	assert.NotEqual(t, pixelCRC(m), pixelCRC(n))
}
