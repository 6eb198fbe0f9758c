// Package cookie defines the persisted HTTP cookie record shared by the
// cookie store, its importers and the maintenance CLI.
package cookie

import (
	"time"
)

// SameSite is the same-site restriction of a cookie.
type SameSite int

const (
	// SameSiteNoRestriction sends the cookie with cross-site requests.
	SameSiteNoRestriction SameSite = 0
	// SameSiteLax withholds the cookie on cross-site subresource requests.
	SameSiteLax SameSite = 1
	// SameSiteStrict withholds the cookie on all cross-site requests.
	SameSiteStrict SameSite = 2
)

func (s SameSite) String() string {
	switch s {
	case SameSiteLax:
		return "lax"
	case SameSiteStrict:
		return "strict"
	default:
		return "none"
	}
}

// Priority is the eviction priority of a cookie.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "medium"
	}
}

// Key is the identity of a cookie. At most one persisted cookie exists per Key.
type Key struct {
	Name   string
	Domain string
	Path   string
}

// Canonical is an HTTP cookie as held by the in-memory jar and persisted by
// the store.
// IMPORTANT: Value is SENSITIVE. It must never be logged or formatted into
// error messages; only Name, Domain and Path may appear in logs.
type Canonical struct {
	// Name is the cookie name.
	Name string
	// Value is the plaintext cookie value. SENSITIVE, never log.
	Value string
	// Domain is the host key (a leading dot marks a domain cookie).
	Domain string
	// Path is the cookie path scope.
	Path string

	Creation   time.Time
	Expiry     time.Time
	LastAccess time.Time

	Secure   bool
	HttpOnly bool
	SameSite SameSite
	Priority Priority

	// HasExpires reports whether the cookie carried an explicit expiry.
	HasExpires bool
	// Persistent reports whether the cookie outlives the browsing session.
	Persistent bool
}

// Key returns the identity of c.
func (c *Canonical) Key() Key {
	return Key{Name: c.Name, Domain: c.Domain, Path: c.Path}
}

// Clone returns a copy of c that shares no mutable state with it.
func (c *Canonical) Clone() *Canonical {
	cp := *c
	return &cp
}

// Equal reports whether c and o describe the same cookie, comparing
// timestamps with time.Time.Equal.
func (c *Canonical) Equal(o *Canonical) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Name == o.Name &&
		c.Value == o.Value &&
		c.Domain == o.Domain &&
		c.Path == o.Path &&
		c.Creation.Equal(o.Creation) &&
		c.Expiry.Equal(o.Expiry) &&
		c.LastAccess.Equal(o.LastAccess) &&
		c.Secure == o.Secure &&
		c.HttpOnly == o.HttpOnly &&
		c.SameSite == o.SameSite &&
		c.Priority == o.Priority &&
		c.HasExpires == o.HasExpires &&
		c.Persistent == o.Persistent
}

// IsDomainCookie reports whether the cookie applies to subdomains of its host.
func (c *Canonical) IsDomainCookie() bool {
	return len(c.Domain) > 0 && c.Domain[0] == '.'
}
