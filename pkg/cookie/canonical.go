package cookie

import "strings"

const (
	securePrefix = "__Secure-"
	hostPrefix   = "__Host-"
)

// IsCanonical reports whether c is well formed enough to be handed to the
// cookie jar. Records loaded from disk that fail this check are dropped.
func IsCanonical(c *Canonical) bool {
	if c == nil {
		return false
	}
	if c.Name == "" && c.Value == "" {
		return false
	}
	if !validToken(c.Name, true) || !validToken(c.Value, false) {
		return false
	}
	if !validDomain(c.Domain) {
		return false
	}
	if c.Path == "" || c.Path[0] != '/' || !validToken(c.Path, false) {
		return false
	}
	if c.Creation.IsZero() {
		return false
	}
	if c.Persistent && c.Expiry.IsZero() {
		return false
	}
	if strings.HasPrefix(c.Name, securePrefix) && !c.Secure {
		return false
	}
	if strings.HasPrefix(c.Name, hostPrefix) {
		if !c.Secure || c.Path != "/" || c.IsDomainCookie() {
			return false
		}
	}
	return true
}

func validDomain(d string) bool {
	d = strings.TrimPrefix(d, ".")
	if d == "" {
		return false
	}
	for i := 0; i < len(d); i++ {
		ch := d[i]
		if ch <= ' ' || ch == 0x7f || ch == '/' || ch == ';' {
			return false
		}
		if 'A' <= ch && ch <= 'Z' {
			return false
		}
	}
	return true
}

func validToken(s string, isName bool) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 0x20 && ch != '\t' || ch == 0x7f || ch == ';' {
			return false
		}
		if isName && ch == '=' {
			return false
		}
	}
	return true
}
