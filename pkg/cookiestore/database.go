package cookiestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/warpdl/cookiestore/internal/schema"
)

// fs is used for directory creation and raze file removal.
var fs afero.Fs = afero.NewOsFs()

// dbState is owned by the background sequence.
type dbState int

const (
	stateNotOpened dbState = iota
	stateOpen
	stateFailed
	stateClosed
)

// fileURI turns path into a SQLite URI filename. The path is escaped so
// '#', '?' and '%' in directory names reach SQLite verbatim.
func fileURI(path, query string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p, RawQuery: query}).String()
}

func dsn(path string) string {
	return fileURI(path, "_pragma=busy_timeout(5000)")
}

// openDatabase opens and migrates the database on first use. A failure is
// sticky. A corrupt file is razed and the open retried once.
func (b *Backend) openDatabase() bool {
	switch b.state {
	case stateOpen:
		return true
	case stateFailed, stateClosed:
		return false
	}

	err := b.tryOpen()
	if err != nil && isCorrupt(err) {
		b.m.corruptions.Inc()
		if !b.opts.KeepCorruptDatabase && !b.razed {
			b.log.Warning("cookie database %s is corrupt, razing: %v", b.opts.Path, err)
			b.razed = true
			b.m.razes.Inc()
			if rerr := removeDatabaseFiles(b.opts.Path); rerr != nil {
				b.log.Error("failed to remove corrupt cookie database: %v", rerr)
			} else {
				err = b.tryOpen()
			}
		}
	}
	if err != nil {
		b.state = stateFailed
		b.openErr = err
		b.log.Error("failed to open cookie database %s: %v", b.opts.Path, err)
		return false
	}
	b.state = stateOpen
	return true
}

func (b *Backend) tryOpen() error {
	ctx := context.Background()
	if err := fs.MkdirAll(filepath.Dir(b.opts.Path), 0o700); err != nil {
		return fmt.Errorf("create cookie directory: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(b.opts.Path))
	if err != nil {
		return fmt.Errorf("open cookie database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := b.schema.EnsureUpToDate(ctx, db); err != nil {
		db.Close()
		return err
	}
	if !b.opts.RestoreOldSessionCookies {
		res, err := db.ExecContext(ctx, `DELETE FROM cookies WHERE is_persistent != 1`)
		if err != nil {
			// Stale session cookies are harmless; loads skip them.
			b.log.Warning("failed to delete session cookies: %v", err)
		} else if n, _ := res.RowsAffected(); n > 0 {
			b.log.Debug("deleted %d session cookies", n)
		}
	}
	b.db = db
	return nil
}

// noteError inspects a database error and schedules recovery if it
// indicates corruption. Recovery runs at most once per Backend.
func (b *Backend) noteError(err error) {
	if !isCorrupt(err) {
		return
	}
	b.m.corruptions.Inc()
	if b.razed || b.razePending {
		return
	}
	b.razePending = true
	b.background.PostTask(b.recoverFromCorruption)
}

func (b *Backend) recoverFromCorruption() {
	b.razePending = false
	if b.state != stateOpen {
		return
	}
	b.razed = true
	b.closeDB()
	if b.opts.KeepCorruptDatabase {
		b.log.Error("cookie database %s is corrupt; store disabled", b.opts.Path)
		b.state = stateFailed
		return
	}
	b.log.Warning("cookie database %s is corrupt, razing and reopening", b.opts.Path)
	b.m.razes.Inc()
	if err := removeDatabaseFiles(b.opts.Path); err != nil {
		b.log.Error("failed to remove corrupt cookie database: %v", err)
		b.state = stateFailed
		return
	}
	b.state = stateNotOpened
	b.loads.reset()
	b.loads.taken = nil
	b.openDatabase()
}

func (b *Backend) closeDB() {
	if b.db == nil {
		return
	}
	if err := b.db.Close(); err != nil {
		b.log.Warning("closing cookie database: %v", err)
	}
	b.db = nil
}

func removeDatabaseFiles(path string) error {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func isCorrupt(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
		return true
	}
	return false
}

// SchemaVersion reports the (version, compatible version) pair stored in
// the database at path without migrating it.
func SchemaVersion(path string) (version, compatible int, err error) {
	if _, err := fs.Stat(path); err != nil {
		return 0, 0, err
	}
	db, err := sql.Open("sqlite", fileURI(path, "mode=ro"))
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()
	return schema.ReadVersion(context.Background(), db)
}
