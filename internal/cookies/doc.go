// Package cookies reads cookies out of foreign cookie stores so they can be
// imported into a cookie store: Chrome-family SQLite databases (including
// databases written by this module), Firefox moz_cookies databases and
// Netscape cookies.txt files.
//
// Cookie values are never logged. Encrypted Chrome values cannot be read
// and are skipped.
package cookies
