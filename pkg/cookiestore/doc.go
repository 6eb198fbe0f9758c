// Package cookiestore persists an in-memory cookie jar to a SQLite database.
//
// A Backend queues mutations from the jar, coalesces them per cookie
// identity and writes them in batched transactions on a background
// sequence. Loading is split by registrable domain (eTLD+1) so the full
// load yields between groups and a single group can be loaded ahead of the
// rest with LoadForKey. Every database touch happens on the background
// sequence; every callback is delivered on the client sequence.
//
// Failures never cross the client/background boundary as panics. A store
// that cannot be opened reports empty loads with ErrStoreUnavailable and
// drops writes. A corrupt database is razed and reopened empty once per
// Backend unless Options.KeepCorruptDatabase is set.
package cookiestore
