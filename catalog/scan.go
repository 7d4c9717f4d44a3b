package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of files decoded concurrently by Scan
const DefaultWorkers = 10

func findBitmaps(ctx context.Context, base string, out chan<- string) error {
	defer close(out)
	return filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
		if info.Name()[0] == '.' && file != base {
			if info.Mode().IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || !strings.EqualFold(filepath.Ext(file), ".bmp") {
			return nil
		}

		select {
		case out <- file:
		case <-ctx.Done():
			return ctx.Err()
		}

		return nil
	})
}

func (c *Catalog) bitmapWorker(in <-chan string) error {
	for file := range in {
		if _, err := c.Add(file); err != nil {
			if !skippable(err) {
				return err
			}
			c.logger.Printf("Skipping \"%s\": %s\n", file, err)
		}
	}
	return nil
}

// Scan walks the directory tree rooted at path and adds every .bmp file
// found. Files that are not valid bitmaps are logged and skipped, any other
// error stops the scan. workers less than one means DefaultWorkers.
func (c *Catalog) Scan(path string, workers int) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if workers < 1 {
		workers = DefaultWorkers
	}

	g, ctx := errgroup.WithContext(context.Background())

	files := make(chan string)
	g.Go(func() error {
		return findBitmaps(ctx, dir, files)
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return c.bitmapWorker(files)
		})
	}

	return g.Wait()
}
