package schema

import "errors"

var (
	// ErrTooNew is returned when the database was last written by a version
	// whose compatible version is newer than this package supports. The file
	// is left untouched.
	ErrTooNew = errors.New("cookie database is too new")
	// ErrNoMeta is returned by ReadVersion when the meta table is missing.
	ErrNoMeta = errors.New("cookie database has no meta table")
)
