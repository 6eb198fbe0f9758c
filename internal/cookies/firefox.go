package cookies

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/warpdl/cookiestore/pkg/cookie"
)

// ParseFirefox reads a Firefox cookies.sqlite database. Expiry is in Unix
// seconds; creationTime and lastAccessed are Unix microseconds.
func (im *Importer) ParseFirefox(dbPath string) ([]*cookie.Canonical, error) {
	db, err := sql.Open("sqlite", fileURI(dbPath, "immutable=1"))
	if err != nil {
		return nil, fmt.Errorf("open Firefox cookie database: %w", err)
	}
	defer db.Close()

	cols, err := tableColumns(db, "moz_cookies")
	if err != nil {
		return nil, fmt.Errorf("inspect Firefox cookie database: %w", err)
	}
	optional := func(name string) string {
		if cols[name] {
			return name
		}
		return "0"
	}

	rows, err := db.Query(fmt.Sprintf(`SELECT name, value, host, path, expiry, isSecure, isHttpOnly,
		%s, %s, %s FROM moz_cookies ORDER BY host, name`,
		optional("creationTime"), optional("lastAccessed"), optional("sameSite")))
	if err != nil {
		return nil, fmt.Errorf("query Firefox cookies: %w", err)
	}
	defer rows.Close()

	now := im.now()
	var cookies []*cookie.Canonical
	for rows.Next() {
		var (
			name, value, host, path      string
			expiry, creation, lastAccess int64
			secure, httpOnly, site       int
		)
		if err := rows.Scan(&name, &value, &host, &path, &expiry, &secure, &httpOnly,
			&creation, &lastAccess, &site); err != nil {
			return nil, fmt.Errorf("scan Firefox cookie row: %w", err)
		}
		c := &cookie.Canonical{
			Name:       name,
			Value:      value,
			Domain:     host,
			Path:       path,
			Expiry:     time.Unix(expiry, 0).UTC(),
			Secure:     secure != 0,
			HttpOnly:   httpOnly != 0,
			SameSite:   sameSiteFromInt(site),
			Priority:   cookie.PriorityMedium,
			HasExpires: true,
			Persistent: true,
		}
		if creation > 0 {
			c.Creation = time.UnixMicro(creation).UTC()
		}
		if lastAccess > 0 {
			c.LastAccess = time.UnixMicro(lastAccess).UTC()
		}
		if im.accept(c, now) {
			cookies = append(cookies, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate Firefox cookie rows: %w", err)
	}
	return cookies, nil
}
