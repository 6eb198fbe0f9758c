package cookies

import (
	"database/sql"
	"fmt"

	"github.com/warpdl/cookiestore/pkg/cookie"
)

// ParseChrome reads a Chromium-family cookies database. Columns missing
// from older schemas take their defaults. Rows whose value is only held
// encrypted are skipped.
func (im *Importer) ParseChrome(dbPath string) ([]*cookie.Canonical, error) {
	db, err := sql.Open("sqlite", fileURI(dbPath, "immutable=1"))
	if err != nil {
		return nil, fmt.Errorf("open Chrome cookie database: %w", err)
	}
	defer db.Close()

	cols, err := tableColumns(db, "cookies")
	if err != nil {
		return nil, fmt.Errorf("inspect Chrome cookie database: %w", err)
	}
	optional := func(name, fallback string) string {
		if cols[name] {
			return name
		}
		return fallback
	}
	sameSite := "0"
	switch {
	case cols["samesite"]:
		sameSite = "samesite"
	case cols["firstpartyonly"]:
		sameSite = "firstpartyonly"
	}
	where := ""
	if cols["encrypted_value"] {
		where = `WHERE NOT (value = '' AND length(encrypted_value) > 0)`
	}

	query := fmt.Sprintf(`SELECT creation_utc, host_key, name, value, path, expires_utc,
		is_secure, is_httponly, %s, %s, %s, %s, %s FROM cookies %s ORDER BY creation_utc`,
		optional("last_access_utc", "0"),
		optional("has_expires", "1"),
		optional("is_persistent", "1"),
		optional("priority", "1"),
		sameSite,
		where)
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query Chrome cookies: %w", err)
	}
	defer rows.Close()

	now := im.now()
	var cookies []*cookie.Canonical
	for rows.Next() {
		var (
			creation, expires, lastAccess int64
			host, name, value, path       string
			secure, httpOnly              int
			hasExpires, persistent        int
			priority, site                int
		)
		if err := rows.Scan(&creation, &host, &name, &value, &path, &expires,
			&secure, &httpOnly, &lastAccess, &hasExpires, &persistent, &priority, &site); err != nil {
			return nil, fmt.Errorf("scan Chrome cookie row: %w", err)
		}
		c := &cookie.Canonical{
			Name:       name,
			Value:      value,
			Domain:     host,
			Path:       path,
			Creation:   cookie.FromStoreTime(creation),
			Expiry:     cookie.FromStoreTime(expires),
			LastAccess: cookie.FromStoreTime(lastAccess),
			Secure:     secure != 0,
			HttpOnly:   httpOnly != 0,
			SameSite:   sameSiteFromInt(site),
			Priority:   priorityFromInt(priority),
			HasExpires: hasExpires != 0,
			Persistent: persistent != 0,
		}
		if c.Expiry.IsZero() {
			c.HasExpires = false
			c.Persistent = false
		}
		if im.accept(c, now) {
			cookies = append(cookies, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate Chrome cookie rows: %w", err)
	}
	return cookies, nil
}

func sameSiteFromInt(v int) cookie.SameSite {
	switch v {
	case 1:
		return cookie.SameSiteLax
	case 2:
		return cookie.SameSiteStrict
	default:
		return cookie.SameSiteNoRestriction
	}
}

func priorityFromInt(v int) cookie.Priority {
	switch v {
	case 0:
		return cookie.PriorityLow
	case 2:
		return cookie.PriorityHigh
	default:
		return cookie.PriorityMedium
	}
}
