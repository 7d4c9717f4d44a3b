/*
Package catalog maintains an index of bitmap files in a SQLite database.

Each distinct file is stored once, keyed by the SHA-1 of its contents, along
with its dimensions, bit depth and a CRC-32 of the decoded pixels so that
bitmaps which differ only in their headers or padding can be spotted. Every
path a bitmap was found at is recorded against it.
*/
package catalog

import (
	"bytes"
	"crypto/sha1"
	"database/sql"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/bodgit/bmp"
	_ "github.com/mattn/go-sqlite3"
)

// Catalog is the bitmap index
type Catalog struct {
	db     *sql.DB
	logger *log.Logger
}

// Entry describes one distinct bitmap in the catalog
type Entry struct {
	ID       int64
	SHA1     string
	CRC      string
	Width    int
	Height   int
	BitCount uint16
	Files    int
}

// New opens or creates the catalog database in file
func New(file string, logger *log.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS bitmap (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, crc TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, bit_count INTEGER NOT NULL, data BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS file (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, bitmap_id INTEGER NOT NULL, FOREIGN KEY(bitmap_id) REFERENCES bitmap(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the underlying database
func (c *Catalog) Close() error {
	return c.db.Close()
}

func pixelCRC(m *bmp.Image) string {
	h := crc32.NewIEEE()
	var tmp [3]byte
	for _, p := range m.Pix {
		tmp[0], tmp[1], tmp[2] = p.B, p.G, p.R
		h.Write(tmp[:])
	}
	return fmt.Sprintf("%.*X", crc32.Size<<1, h.Sum(nil))
}

// Add decodes the bitmap at path and records it in the catalog, returning
// the id of the bitmap. Adding the same contents again only records the
// additional path.
func (c *Catalog) Add(path string) (int64, error) {
	file, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := sha1.New()
	b, err := ioutil.ReadAll(io.TeeReader(f, h))
	if err != nil {
		return 0, err
	}
	sha := fmt.Sprintf("%X", h.Sum(nil))

	m, err := bmp.Decode(bytes.NewReader(b))
	if err != nil {
		return 0, err
	}

	id, err := c.addBitmap(sha, m, b)
	if err != nil {
		return 0, err
	}

	if _, err := c.db.Exec("INSERT OR REPLACE INTO file (path, bitmap_id) VALUES (?, ?)", file, id); err != nil {
		return 0, err
	}

	c.logger.Printf("Added \"%s\" as %s\n", file, sha)

	return id, nil
}

// Concurrent workers may race to add identical files, so rely on the
// unique constraint rather than checking first
func (c *Catalog) addBitmap(sha string, m *bmp.Image, b []byte) (int64, error) {
	if _, err := c.db.Exec("INSERT OR IGNORE INTO bitmap (sha1, crc, width, height, bit_count, data) VALUES (?, ?, ?, ?, ?, ?)", sha, pixelCRC(m), m.Width(), m.Height(), m.BitCount(), b); err != nil {
		return 0, err
	}

	var id int64
	if err := c.db.QueryRow("SELECT id FROM bitmap WHERE sha1 = ?", sha).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Find returns the bitmap with the given SHA-1, or nil if there isn't one
func (c *Catalog) Find(sha string) (*bmp.Image, error) {
	var b []byte
	switch err := c.db.QueryRow("SELECT data FROM bitmap WHERE sha1 = ?", sha).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return bmp.Decode(bytes.NewReader(b))
	default:
		return nil, err
	}
}

// List returns every bitmap in the catalog in the order they were added
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query("SELECT b.id, b.sha1, b.crc, b.width, b.height, b.bit_count, (SELECT COUNT(*) FROM file AS f WHERE f.bitmap_id = b.id) FROM bitmap AS b ORDER BY b.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SHA1, &e.CRC, &e.Width, &e.Height, &e.BitCount, &e.Files); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Paths returns every path the bitmap with the given SHA-1 was found at
func (c *Catalog) Paths(sha string) ([]string, error) {
	rows, err := c.db.Query("SELECT f.path FROM file AS f JOIN bitmap AS b ON f.bitmap_id = b.id WHERE b.sha1 = ? ORDER BY f.path", sha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

func skippable(err error) bool {
	return errors.Is(err, bmp.ErrBadMagic) ||
		errors.Is(err, bmp.ErrUnsupported) ||
		errors.Is(err, bmp.ErrFormat) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
