package cookiestore

import (
	"fmt"
	"time"

	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/logger"
)

// columns is the fixed column order shared by encode and decode.
const columns = `creation_utc, host_key, name, value, path, expires_utc, is_secure,
	is_httponly, last_access_utc, has_expires, is_persistent, priority,
	encrypted_value, firstpartyonly`

type scanner interface {
	Scan(dest ...any) error
}

type codec struct {
	crypto      *cryptoAdapter
	isCanonical func(*cookie.Canonical) bool
	log         logger.Logger
	m           *metrics
	now         func() time.Time
}

// encode returns the bind values for c in column order.
func (cd *codec) encode(c *cookie.Canonical) ([]any, error) {
	value, encrypted, err := cd.crypto.maybeEncrypt(c.Value)
	if err != nil {
		return nil, fmt.Errorf("encrypt %s: %w", describe(c), err)
	}
	return []any{
		cookie.ToStoreTime(c.Creation),
		c.Domain,
		c.Name,
		value,
		c.Path,
		cookie.ToStoreTime(c.Expiry),
		boolInt(c.Secure),
		boolInt(c.HttpOnly),
		cookie.ToStoreTime(c.LastAccess),
		boolInt(c.HasExpires),
		boolInt(c.Persistent),
		int(c.Priority),
		encrypted,
		int(c.SameSite),
	}, nil
}

// decode reads one row. It returns nil without error for rows that are
// dropped (undecryptable or not canonical); those are counted.
func (cd *codec) decode(row scanner) (*cookie.Canonical, error) {
	var (
		creation, expires, lastAccess int64
		host, name, value, path       string
		secure, httpOnly              int
		hasExpires, persistent        int
		priority, sameSite            int
		encrypted                     []byte
	)
	if err := row.Scan(&creation, &host, &name, &value, &path, &expires, &secure,
		&httpOnly, &lastAccess, &hasExpires, &persistent, &priority,
		&encrypted, &sameSite); err != nil {
		return nil, err
	}

	if len(encrypted) > 0 {
		pt, err := cd.crypto.maybeDecrypt(encrypted)
		if err != nil {
			cd.m.decryptFailures.Inc()
			cd.log.Warning("dropping cookie %s@%s%s: %v", name, host, path, err)
			return nil, nil
		}
		value = pt
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
		SameSite:   decodeSameSite(sameSite),
		Priority:   decodePriority(priority),
		HasExpires: hasExpires != 0,
		Persistent: persistent != 0,
	}
	if !cd.isCanonical(c) {
		cd.m.malformedRows.Inc()
		cd.log.Warning("dropping malformed cookie %s", describe(c))
		return nil, nil
	}
	if c.Creation.After(cd.now()) {
		cd.log.Warning("cookie %s has a creation time in the future", describe(c))
	}
	return c, nil
}

func decodeSameSite(v int) cookie.SameSite {
	switch s := cookie.SameSite(v); s {
	case cookie.SameSiteNoRestriction, cookie.SameSiteLax, cookie.SameSiteStrict:
		return s
	}
	return cookie.SameSiteNoRestriction
}

func decodePriority(v int) cookie.Priority {
	switch p := cookie.Priority(v); p {
	case cookie.PriorityLow, cookie.PriorityMedium, cookie.PriorityHigh:
		return p
	}
	return cookie.PriorityMedium
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// describe identifies c in log lines. It never includes the value.
func describe(c *cookie.Canonical) string {
	return c.Name + "@" + c.Domain + c.Path
}
