package main

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/bmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	cli.OsExiter = func(int) {}
	t.Cleanup(func() {
		cli.OsExiter = os.Exit
	})

	app := newApp(dir)
	out := new(bytes.Buffer)
	app.Writer = out
	app.ErrWriter = ioutil.Discard

	err := app.Run(append([]string{"bmp"}, args...))
	return out.String(), err
}

func TestCreateInfo(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gray.bmp")

	_, err := run(t, dir, "create", "--mode", "136", "--depth", "4", "--width", "5", "--height", "3", file)
	require.NoError(t, err)

	m, err := bmp.Load(file)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), m.BitCount())
	assert.Equal(t, bmp.Pixel{B: 0x88, G: 0x88, R: 0x88}, m.At(4, 2))

	out, err := run(t, dir, "info", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Width:\t\t5 px\n")
	assert.Contains(t, out, "BitCount:\t4 bits\n")
	assert.Contains(t, out, "Palette:\t16 colors\n")
	assert.Contains(t, out, "Padding:\t1 bytes\n")
}

func TestCreateInvalid(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.bmp")

	_, err := run(t, dir, "create", "--depth", "16", "--width", "5", "--height", "3", file)
	assert.Error(t, err)

	_, err = run(t, dir, "create", "--mode", "256", "--width", "5", "--height", "3", file)
	assert.Error(t, err)

	// Values that do not fit the header fields are rejected, not truncated
	_, err = run(t, dir, "create", "--depth", "65560", "--width", "5", "--height", "3", file)
	assert.Error(t, err)

	_, err = run(t, dir, "create", "--width", "4294967296", "--height", "3", file)
	assert.Error(t, err)

	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bmp")
	dst := filepath.Join(dir, "dst.bmp")

	m, err := bmp.New(7, 32, 3, 2)
	require.NoError(t, err)
	m.Set(1, 1, bmp.Pixel{B: 1, G: 2, R: 3})
	require.NoError(t, bmp.Save(m, src))

	_, err = run(t, dir, "copy", src, dst)
	require.NoError(t, err)

	a, err := ioutil.ReadFile(src)
	require.NoError(t, err)
	b, err := ioutil.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.bmp")

	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{0xff, 0, 0, 0xff})
		}
	}
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	_, err = run(t, dir, "convert", "--depth", "8", "--resize", "4x0", src, dst)
	require.NoError(t, err)

	m, err := bmp.Load(dst)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Width())
	assert.Equal(t, 2, m.Height())
	assert.Equal(t, uint16(8), m.BitCount())
	assert.Equal(t, bmp.Pixel{R: 0xff}, m.At(0, 0))

	_, err = run(t, dir, "convert", "--resize", "big", src, dst)
	assert.Error(t, err)
}

func TestScanListExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "test.db")
	images := filepath.Join(dir, "images")
	require.NoError(t, os.Mkdir(images, 0755))

	m, err := bmp.New(0x40, 24, 2, 2)
	require.NoError(t, err)
	file := filepath.Join(images, "a.bmp")
	require.NoError(t, bmp.Save(m, file))

	b, err := ioutil.ReadFile(file)
	require.NoError(t, err)
	sha := fmt.Sprintf("%X", sha1.Sum(b))

	_, err = run(t, dir, "--db", db, "scan", "--workers", "2", images)
	require.NoError(t, err)

	out, err := run(t, dir, "--db", db, "list")
	require.NoError(t, err)
	assert.Contains(t, out, sha)
	assert.Contains(t, out, "2x2\t24 bits")

	exported := filepath.Join(dir, "exported.bmp")
	_, err = run(t, dir, "--db", db, "export", sha, exported)
	require.NoError(t, err)

	e, err := ioutil.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, b, e)

	_, err = run(t, dir, "--db", db, "export", "0000", exported)
	assert.Error(t, err)
}
