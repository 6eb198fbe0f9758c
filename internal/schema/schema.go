// Package schema owns the on-disk layout of the cookie database: the meta
// table, the current cookies table and the migration ladder that moves old
// databases forward to the current version.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/warpdl/cookiestore/pkg/logger"
)

const (
	// CurrentVersion is the schema version written by this package.
	CurrentVersion = 10
	// CompatibleVersion is the oldest version that can read CurrentVersion.
	CompatibleVersion = 5
)

const (
	metaVersionKey    = "version"
	metaCompatibleKey = "last_compatible_version"
)

const createMetaSQL = `CREATE TABLE IF NOT EXISTS meta(
	key LONGVARCHAR NOT NULL UNIQUE PRIMARY KEY,
	value LONGVARCHAR)`

// CreateCookiesSQL is the definition of the current cookies table.
const CreateCookiesSQL = `CREATE TABLE cookies (
	creation_utc INTEGER NOT NULL,
	host_key TEXT NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	path TEXT NOT NULL,
	expires_utc INTEGER NOT NULL,
	is_secure INTEGER NOT NULL,
	is_httponly INTEGER NOT NULL,
	last_access_utc INTEGER NOT NULL,
	has_expires INTEGER NOT NULL DEFAULT 1,
	is_persistent INTEGER NOT NULL DEFAULT 1,
	priority INTEGER NOT NULL DEFAULT 1,
	encrypted_value BLOB DEFAULT '',
	firstpartyonly INTEGER NOT NULL DEFAULT 0,
	UNIQUE (host_key, name, path))`

var currentIndexes = []string{
	`CREATE INDEX IF NOT EXISTS domain ON cookies(host_key)`,
	`CREATE INDEX IF NOT EXISTS is_transient ON cookies(is_persistent) WHERE is_persistent != 1`,
}

// Manager brings a database to the current schema version.
type Manager struct {
	log logger.Logger
}

// NewManager returns a Manager logging to l (nil discards).
func NewManager(l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Manager{log: l}
}

// EnsureUpToDate initializes an empty database, or migrates an existing one
// one version at a time. Each step commits on its own, so a failed run
// resumes from the last recorded version next time. A database whose
// version is still stale after migrating is razed and recreated empty.
func (m *Manager) EnsureUpToDate(ctx context.Context, db *sql.DB) error {
	hasMeta, err := tableExists(ctx, db, "meta")
	if err != nil {
		return fmt.Errorf("probe meta table: %w", err)
	}
	if !hasMeta {
		m.log.Info("initializing cookie database at version %d", CurrentVersion)
		return initialize(ctx, db, true)
	}

	version, compatible, err := ReadVersion(ctx, db)
	if err != nil {
		return err
	}
	if compatible > CurrentVersion {
		return fmt.Errorf("%w: compatible version %d, supported %d", ErrTooNew, compatible, CurrentVersion)
	}

	for version >= 1 && version < CurrentVersion {
		step := migrations[version]
		if err := m.migrate(ctx, db, version, step); err != nil {
			return fmt.Errorf("migrate cookie database from version %d: %w", version, err)
		}
		version++
		m.log.Debug("cookie database migrated to version %d", version)
	}

	if version < CurrentVersion {
		m.log.Warning("cookie database at unusable version %d, recreating", version)
		return Raze(ctx, db)
	}
	return nil
}

func (m *Manager) migrate(ctx context.Context, db *sql.DB, from int, step func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := step(tx); err != nil {
		return err
	}
	to := from + 1
	if err := setMeta(tx, metaVersionKey, to); err != nil {
		return err
	}
	if err := setMeta(tx, metaCompatibleKey, min(to, CompatibleVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// ReadVersion returns the (version, compatible version) pair from the meta
// table. A missing key reads as 0.
func ReadVersion(ctx context.Context, db *sql.DB) (version, compatible int, err error) {
	ok, err := tableExists(ctx, db, "meta")
	if err != nil {
		return 0, 0, fmt.Errorf("probe meta table: %w", err)
	}
	if !ok {
		return 0, 0, ErrNoMeta
	}
	if version, err = readMeta(ctx, db, metaVersionKey); err != nil {
		return 0, 0, err
	}
	if compatible, err = readMeta(ctx, db, metaCompatibleKey); err != nil {
		return 0, 0, err
	}
	return version, compatible, nil
}

// Raze drops every table in db and recreates an empty current schema.
func Raze(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT type, name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("list schema objects: %w", err)
	}
	var drops []string
	for rows.Next() {
		var typ, name string
		if err := rows.Scan(&typ, &name); err != nil {
			rows.Close()
			return fmt.Errorf("list schema objects: %w", err)
		}
		drops = append(drops, fmt.Sprintf("DROP %s IF EXISTS %s", typ, strconv.Quote(name)))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list schema objects: %w", err)
	}
	for _, stmt := range drops {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("raze: %w", err)
		}
	}
	return initialize(ctx, db, false)
}

func initialize(ctx context.Context, db *sql.DB, dropCookies bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(createMetaSQL); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	if err := setMeta(tx, metaVersionKey, CurrentVersion); err != nil {
		return err
	}
	if err := setMeta(tx, metaCompatibleKey, CompatibleVersion); err != nil {
		return err
	}
	if dropCookies {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS cookies`); err != nil {
			return fmt.Errorf("drop stale cookies table: %w", err)
		}
	}
	if err := createCookies(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func createCookies(tx *sql.Tx) error {
	if _, err := tx.Exec(CreateCookiesSQL); err != nil {
		return fmt.Errorf("create cookies table: %w", err)
	}
	for _, stmt := range currentIndexes {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create cookies index: %w", err)
		}
	}
	return nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return n > 0, err
}

func readMeta(ctx context.Context, db *sql.DB, key string) (int, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read meta %s: %w", key, err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return v, nil
}

func setMeta(tx *sql.Tx, key string, value int) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, strconv.Itoa(value))
	if err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}
