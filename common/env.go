// Package common holds names shared by the cookiestore command and its
// tests.
package common

// Environment variable names for configuration.
const (
	// DBPathEnv overrides the cookie database location.
	DBPathEnv = "COOKIESTORE_DB"

	// KeyEnv holds a hex encoded 32 byte AES key. When set the keyring is
	// not consulted.
	KeyEnv = "COOKIESTORE_KEY"

	// DebugEnv enables debug logging.
	DebugEnv = "COOKIESTORE_DEBUG"
)

// DefaultDBName is the database file name inside the config directory.
const DefaultDBName = "Cookies"
