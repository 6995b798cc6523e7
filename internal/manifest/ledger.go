// Package manifest keeps a SQLite ledger of the worker bundles written to a
// cache directory. The ledger is informational: whether a bundle exists is
// always decided by looking at the file itself.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"
)

// FileName is the ledger's name inside the cache directory.
const FileName = "ledger.sqlite3"

const schema = `
CREATE TABLE IF NOT EXISTS bundles (
	filename    TEXT PRIMARY KEY,
	label       TEXT NOT NULL,
	entry       TEXT NOT NULL,
	size        INTEGER NOT NULL,
	checksum    TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	bundled_at  INTEGER NOT NULL
)`

// Entry is one bundling event.
type Entry struct {
	Filename  string
	Label     string
	Entry     string
	Size      int64
	Checksum  string
	Duration  time.Duration
	BundledAt time.Time
}

// Ledger records bundles by derived filename; a rebundle replaces the row.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger at {dir}/ledger.sqlite3.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, "creating cache directory: "+err.Error()), "path", dir)
	}
	path := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, "opening bundle ledger: "+err.Error()), "path", path)
	}
	// Dev server and build may share a cache directory.
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA busy_timeout=5000")
	return initLedger(db)
}

// OpenMemory returns a ledger that lives only as long as the process.
func OpenMemory() (*Ledger, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, zerr.Wrap(core.ErrIO, "opening in-memory ledger: "+err.Error())
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return initLedger(db)
}

func initLedger(db *sql.DB) (*Ledger, error) {
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, zerr.Wrap(core.ErrIO, "creating ledger schema: "+err.Error())
	}
	return &Ledger{db: db}, nil
}

// Record stores e, replacing any previous row for the same filename.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.BundledAt.IsZero() {
		e.BundledAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO bundles (filename, label, entry, size, checksum, duration_ns, bundled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Filename, e.Label, e.Entry, e.Size, e.Checksum, int64(e.Duration), e.BundledAt.UnixNano())
	if err != nil {
		return zerr.With(zerr.Wrap(core.ErrIO, "recording bundle: "+err.Error()), "file", e.Filename)
	}
	return nil
}

// List returns all rows, most recent first.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT filename, label, entry, size, checksum, duration_ns, bundled_at
		 FROM bundles ORDER BY bundled_at DESC, filename`)
	if err != nil {
		return nil, zerr.Wrap(core.ErrIO, "listing bundles: "+err.Error())
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var dur, at int64
		if err := rows.Scan(&e.Filename, &e.Label, &e.Entry, &e.Size, &e.Checksum, &dur, &at); err != nil {
			return nil, zerr.Wrap(core.ErrIO, "scanning bundle row: "+err.Error())
		}
		e.Duration = time.Duration(dur)
		e.BundledAt = time.Unix(0, at)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(core.ErrIO, "listing bundles: "+err.Error())
	}
	return out, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Checksum is the content digest stored with each row.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
