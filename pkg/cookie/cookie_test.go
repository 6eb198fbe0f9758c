package cookie

import (
	"testing"
	"time"
)

func validCookie() *Canonical {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Canonical{
		Name:       "sid",
		Value:      "abc123",
		Domain:     ".example.com",
		Path:       "/",
		Creation:   now,
		Expiry:     now.Add(24 * time.Hour),
		LastAccess: now,
		Secure:     true,
		HttpOnly:   true,
		SameSite:   SameSiteLax,
		Priority:   PriorityMedium,
		HasExpires: true,
		Persistent: true,
	}
}

func TestStoreTimeRoundTrip(t *testing.T) {
	ts := time.Date(2023, 11, 14, 22, 13, 20, 123456000, time.UTC)
	got := FromStoreTime(ToStoreTime(ts))
	if !got.Equal(ts) {
		t.Fatalf("round trip: want %v, got %v", ts, got)
	}
	if ToStoreTime(time.Time{}) != 0 {
		t.Fatal("zero time should encode to 0")
	}
	if !FromStoreTime(0).IsZero() {
		t.Fatal("0 should decode to zero time")
	}
}

func TestStoreTimeEpoch(t *testing.T) {
	// The Unix epoch sits exactly EpochOffsetMicros after 1601-01-01.
	if got := ToStoreTime(time.Unix(0, 0)); got != EpochOffsetMicros {
		t.Fatalf("expected %d, got %d", EpochOffsetMicros, got)
	}
}

func TestIsCanonical(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Canonical)
		want   bool
	}{
		{"valid", func(c *Canonical) {}, true},
		{"empty name and value", func(c *Canonical) { c.Name, c.Value = "", "" }, false},
		{"empty name only", func(c *Canonical) { c.Name = "" }, true},
		{"name with equals", func(c *Canonical) { c.Name = "a=b" }, false},
		{"value with semicolon", func(c *Canonical) { c.Value = "a;b" }, false},
		{"control char", func(c *Canonical) { c.Value = "a\x01" }, false},
		{"empty domain", func(c *Canonical) { c.Domain = "" }, false},
		{"bare dot domain", func(c *Canonical) { c.Domain = "." }, false},
		{"uppercase domain", func(c *Canonical) { c.Domain = "Example.com" }, false},
		{"relative path", func(c *Canonical) { c.Path = "foo" }, false},
		{"empty path", func(c *Canonical) { c.Path = "" }, false},
		{"zero creation", func(c *Canonical) { c.Creation = time.Time{} }, false},
		{"persistent without expiry", func(c *Canonical) { c.Expiry = time.Time{} }, false},
		{"session without expiry", func(c *Canonical) {
			c.Expiry = time.Time{}
			c.Persistent, c.HasExpires = false, false
		}, true},
		{"secure prefix insecure", func(c *Canonical) { c.Name = "__Secure-x"; c.Secure = false }, false},
		{"host prefix domain cookie", func(c *Canonical) { c.Name = "__Host-x" }, false},
		{"host prefix host cookie", func(c *Canonical) { c.Name = "__Host-x"; c.Domain = "example.com" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCookie()
			tt.mutate(c)
			if got := IsCanonical(c); got != tt.want {
				t.Fatalf("IsCanonical = %v, want %v", got, tt.want)
			}
		})
	}
	if IsCanonical(nil) {
		t.Fatal("nil cookie must not be canonical")
	}
}

func TestKeyAndClone(t *testing.T) {
	c := validCookie()
	k := c.Key()
	if k != (Key{Name: "sid", Domain: ".example.com", Path: "/"}) {
		t.Fatalf("unexpected key %+v", k)
	}
	cp := c.Clone()
	cp.Value = "other"
	if c.Value != "abc123" {
		t.Fatal("clone shares state with original")
	}
	if c.Equal(cp) {
		t.Fatal("expected clones with different values to differ")
	}
	cp.Value = c.Value
	if !c.Equal(cp) {
		t.Fatal("expected equal cookies")
	}
}

func TestEnumStrings(t *testing.T) {
	if SameSiteStrict.String() != "strict" || SameSite(9).String() != "none" {
		t.Fatal("unexpected SameSite strings")
	}
	if PriorityHigh.String() != "high" || Priority(-1).String() != "medium" {
		t.Fatal("unexpected Priority strings")
	}
}
