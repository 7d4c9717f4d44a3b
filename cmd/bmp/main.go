package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/ioutil"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/bodgit/bmp"
	"github.com/bodgit/bmp/catalog"
	bmpimage "github.com/bodgit/bmp/image"
	"github.com/disintegration/gift"
	"github.com/urfave/cli/v2"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const defaultDB = "bitmaps.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func bitCount(c *cli.Context) (uint16, error) {
	depth := c.Uint("depth")
	if depth > math.MaxUint16 {
		return 0, cli.NewExitError(fmt.Sprintf("unsupported depth %d", depth), 1)
	}
	return uint16(depth), nil
}

func info(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	file := c.Args().First()
	m, err := bmp.Load(file)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Filename:\t%s\n", file)
	fmt.Fprintf(w, "Filesize:\t%d bytes\n", m.FileHeader.Size)
	fmt.Fprintf(w, "Width:\t\t%d px\n", m.Width())
	fmt.Fprintf(w, "Height:\t\t%d px\n", m.Height())
	fmt.Fprintf(w, "BitCount:\t%d bits\n", m.BitCount())
	fmt.Fprintf(w, "PixelOffset:\t%d bytes\n", m.FileHeader.OffBits)
	fmt.Fprintf(w, "Palette:\t%d colors\n", len(m.Palette))
	fmt.Fprintf(w, "Stride:\t\t%d bytes\n", m.Stride())
	fmt.Fprintf(w, "Padding:\t%d bytes\n", m.Padding())

	return nil
}

func create(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	mode := c.Uint("mode")
	if mode > 0xff {
		return cli.NewExitError("mode must be between 0 and 255", 1)
	}

	depth, err := bitCount(c)
	if err != nil {
		return err
	}

	width, height := c.Uint("width"), c.Uint("height")
	if uint64(width) > math.MaxUint32 || uint64(height) > math.MaxUint32 {
		return cli.NewExitError("width and height must be between 0 and 4294967295", 1)
	}

	m, err := bmp.New(uint8(mode), depth, uint32(width), uint32(height))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	file := c.Args().First()
	if err := bmp.Save(m, file); err != nil {
		return cli.NewExitError(err, 1)
	}

	newLogger(c).Printf("Created \"%s\"\n", file)

	return nil
}

func copyBitmap(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	src, err := bmp.Load(c.Args().Get(0))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	if err := bmp.Save(src.Clone(), c.Args().Get(1)); err != nil {
		return cli.NewExitError(err, 1)
	}

	newLogger(c).Printf("Copied \"%s\" to \"%s\"\n", c.Args().Get(0), c.Args().Get(1))

	return nil
}

func decodeImage(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	return m, err
}

func resize(m image.Image, size string) (image.Image, error) {
	var width, height int
	if _, err := fmt.Sscanf(size, "%dx%d", &width, &height); err != nil || width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid size %q", size)
	}

	g := gift.New(gift.Resize(width, height, gift.LanczosResampling))
	dst := image.NewRGBA(g.Bounds(m.Bounds()))
	g.Draw(dst, m)

	return dst, nil
}

func convert(c *cli.Context) (err error) {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	depth, err := bitCount(c)
	if err != nil {
		return err
	}

	m, err := decodeImage(c.Args().Get(0))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	if size := c.String("resize"); size != "" {
		if m, err = resize(m, size); err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cli.NewExitError(cerr, 1)
		}
	}()

	if err := bmpimage.Encode(f, m, &bmpimage.Options{BitCount: depth}); err != nil {
		return cli.NewExitError(err, 1)
	}

	newLogger(c).Printf("Converted \"%s\" to \"%s\"\n", c.Args().Get(0), c.Args().Get(1))

	return nil
}

func scan(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cat, err := catalog.New(c.String("db"), newLogger(c))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer cat.Close()

	if err := cat.Scan(c.Args().First(), c.Int("workers")); err != nil {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func list(c *cli.Context) error {
	cat, err := catalog.New(c.String("db"), newLogger(c))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer cat.Close()

	entries, err := cat.List()
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	for _, e := range entries {
		fmt.Fprintf(c.App.Writer, "%s\t%dx%d\t%d bits\t%s\t%d file(s)\n", e.SHA1, e.Width, e.Height, e.BitCount, e.CRC, e.Files)
	}

	return nil
}

func export(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cat, err := catalog.New(c.String("db"), newLogger(c))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer cat.Close()

	m, err := cat.Find(c.Args().Get(0))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if m == nil {
		return cli.NewExitError(errors.New("no bitmap with that SHA-1"), 1)
	}

	if err := bmp.Save(m, c.Args().Get(1)); err != nil {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func depthFlag() cli.Flag {
	return &cli.UintFlag{
		Name:    "depth",
		Aliases: []string{"d"},
		Value:   24,
		Usage:   "bits per pixel; 1, 4, 8, 24 or 32",
	}
}

func newApp(cwd string) *cli.App {
	app := cli.NewApp()

	app.Name = "bmp"
	app.Usage = "Windows bitmap utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"BMP_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalog database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Show the headers of a bitmap",
			ArgsUsage: "FILE",
			Action:    info,
		},
		{
			Name:      "create",
			Usage:     "Create a bitmap filled with a single gray level",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.UintFlag{
					Name:  "mode",
					Usage: "gray level of every pixel",
				},
				depthFlag(),
				&cli.UintFlag{
					Name:     "width",
					Usage:    "width in pixels",
					Required: true,
				},
				&cli.UintFlag{
					Name:     "height",
					Usage:    "height in pixels",
					Required: true,
				},
			},
			Action: create,
		},
		{
			Name:      "copy",
			Usage:     "Copy a bitmap by decoding and re-encoding it",
			ArgsUsage: "SOURCE DESTINATION",
			Action:    copyBitmap,
		},
		{
			Name:      "convert",
			Usage:     "Convert a BMP, PNG, JPEG, GIF, TIFF or WebP image to a bitmap",
			ArgsUsage: "SOURCE DESTINATION",
			Flags: []cli.Flag{
				depthFlag(),
				&cli.StringFlag{
					Name:  "resize",
					Usage: "resize to WIDTHxHEIGHT first; zero keeps the aspect ratio",
				},
			},
			Action: convert,
		},
		{
			Name:      "scan",
			Usage:     "Scan a directory and add every bitmap to the catalog",
			ArgsUsage: "DIRECTORY",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "workers",
					EnvVars: []string{"BMP_WORKERS"},
					Value:   catalog.DefaultWorkers,
					Usage:   "number of files decoded concurrently",
				},
			},
			Action: scan,
		},
		{
			Name:   "list",
			Usage:  "List the bitmaps in the catalog",
			Action: list,
		},
		{
			Name:      "export",
			Usage:     "Write a catalogued bitmap to a file",
			ArgsUsage: "SHA1 FILE",
			Action:    export,
		},
	}

	return app
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	if err := newApp(cwd).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
