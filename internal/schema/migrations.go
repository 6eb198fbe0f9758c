package schema

import (
	"database/sql"
	"fmt"
)

// unixEpochDeltaMicros is the distance between 1601-01-01 and 1970-01-01.
const unixEpochDeltaMicros = 11_644_473_600 * 1_000_000

// migrations[v] moves a database from version v to v+1 inside tx.
// Version 0 has no step: such a database is razed.
var migrations = map[int]func(*sql.Tx) error{
	1: execAll(
		`ALTER TABLE cookies ADD COLUMN httponly INTEGER DEFAULT 0`,
	),
	2: execAll(
		`ALTER TABLE cookies ADD COLUMN last_access_utc INTEGER DEFAULT 0`,
		`UPDATE cookies SET last_access_utc = creation_utc`,
	),
	3: renormalizeEpoch,
	4: execAll(
		`ALTER TABLE cookies ADD COLUMN has_expires INTEGER DEFAULT 1`,
		`ALTER TABLE cookies ADD COLUMN persistent INTEGER DEFAULT 1`,
	),
	5: execAll(
		`ALTER TABLE cookies ADD COLUMN priority INTEGER NOT NULL DEFAULT 1`,
	),
	6: execAll(
		`ALTER TABLE cookies ADD COLUMN encrypted_value BLOB DEFAULT ''`,
	),
	7: execAll(
		`ALTER TABLE cookies ADD COLUMN firstpartyonly INTEGER NOT NULL DEFAULT 0`,
	),
	8: execAll(
		`CREATE INDEX IF NOT EXISTS is_transient ON cookies(persistent) WHERE persistent != 1`,
	),
	9: rewriteWithIdentity,
}

func execAll(stmts ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// renormalizeEpoch shifts timestamps that were stored relative to the Unix
// epoch onto the 1601 epoch. Values already past the offset are left alone.
func renormalizeEpoch(tx *sql.Tx) error {
	for _, col := range []string{"creation_utc", "expires_utc", "last_access_utc"} {
		stmt := fmt.Sprintf(`UPDATE cookies SET %[1]s = %[1]s + %[2]d
			WHERE rowid IN (SELECT rowid FROM cookies WHERE %[1]s > 0 AND %[1]s < %[2]d)`,
			col, unixEpochDeltaMicros)
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rewriteWithIdentity rebuilds the table with renamed columns and a
// (host_key, name, path) uniqueness constraint. Rows are copied in creation
// order so the latest creation wins a conflict.
func rewriteWithIdentity(tx *sql.Tx) error {
	return execAll(
		`ALTER TABLE cookies RENAME TO cookies_old`,
		`DROP INDEX IF EXISTS domain`,
		`DROP INDEX IF EXISTS is_transient`,
		CreateCookiesSQL,
		`INSERT OR REPLACE INTO cookies
			(creation_utc, host_key, name, value, path, expires_utc, is_secure,
			 is_httponly, last_access_utc, has_expires, is_persistent, priority,
			 encrypted_value, firstpartyonly)
		SELECT creation_utc, host_key, name, value, path, expires_utc, secure,
			COALESCE(httponly, 0), COALESCE(last_access_utc, creation_utc),
			COALESCE(has_expires, 1), COALESCE(persistent, 1), COALESCE(priority, 1),
			COALESCE(encrypted_value, X''), COALESCE(firstpartyonly, 0)
		FROM cookies_old ORDER BY creation_utc ASC`,
		`DROP TABLE cookies_old`,
		currentIndexes[0],
		currentIndexes[1],
	)(tx)
}
