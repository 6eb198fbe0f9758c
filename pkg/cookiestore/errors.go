package cookiestore

import "errors"

var (
	// ErrStoreUnavailable is reported to load callbacks when the database
	// could not be opened or migrated. It is sticky for the Backend.
	ErrStoreUnavailable = errors.New("cookie store unavailable")
	// ErrClosed is reported to load callbacks that complete after Close.
	ErrClosed = errors.New("cookie store closed")
	// ErrInvalidOptions is returned by New for incomplete Options.
	ErrInvalidOptions = errors.New("invalid cookie store options")
)
