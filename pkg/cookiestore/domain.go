package cookiestore

import (
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// GroupKey returns the domain group a cookie host belongs to: its
// registrable domain (eTLD+1), or the bare host for IP addresses, public
// suffixes and hosts the public suffix list cannot place.
func GroupKey(host string) string {
	h := strings.TrimPrefix(host, ".")
	if net.ParseIP(h) != nil {
		return h
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(h); err == nil {
		return etld1
	}
	return h
}
