package cookies

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/logger"
)

// Importer reads cookies from foreign stores. The zero value imports every
// unexpired cookie.
type Importer struct {
	// Domain restricts results to the domain and its subdomains.
	Domain string
	Log    logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Import detects the format of path and parses it. SQLite databases are
// read from a temporary copy.
func (im *Importer) Import(path string) ([]*cookie.Canonical, *Source, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}
	source := &Source{Path: path, Format: format}

	var cookies []*cookie.Canonical
	switch format {
	case FormatFirefox:
		source.Browser = "Firefox"
		cookies, err = im.importSQLite(path, im.ParseFirefox)
	case FormatChrome:
		source.Browser = "Chrome"
		cookies, err = im.importSQLite(path, im.ParseChrome)
	case FormatNetscape:
		source.Browser = "Netscape"
		cookies, err = im.ParseNetscape(path)
	default:
		return nil, nil, fmt.Errorf("unsupported cookie file format at %s", path)
	}
	if err != nil {
		return nil, nil, err
	}
	im.logger().Debug("imported %d cookies from %s", len(cookies), source.Browser)
	return cookies, source, nil
}

func (im *Importer) importSQLite(path string, parse func(string) ([]*cookie.Canonical, error)) ([]*cookie.Canonical, error) {
	tempDir, cleanup, err := SafeCopy(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return parse(filepath.Join(tempDir, filepath.Base(path)))
}

func (im *Importer) now() time.Time {
	if im.Now != nil {
		return im.Now()
	}
	return time.Now()
}

func (im *Importer) logger() logger.Logger {
	if im.Log != nil {
		return im.Log
	}
	return logger.NewNopLogger()
}

// accept normalizes c and reports whether it should be imported.
func (im *Importer) accept(c *cookie.Canonical, now time.Time) bool {
	c.Domain = strings.ToLower(c.Domain)
	if !im.matchesDomain(c.Domain) {
		return false
	}
	if c.HasExpires && !c.Expiry.IsZero() && c.Expiry.Before(now) {
		return false
	}
	if c.Creation.IsZero() {
		c.Creation = now
	}
	if c.LastAccess.IsZero() {
		c.LastAccess = c.Creation
	}
	if !cookie.IsCanonical(c) {
		im.logger().Warning("skipping malformed cookie %s@%s", c.Name, c.Domain)
		return false
	}
	return true
}

// matchesDomain reports whether host is the filter domain, its dotted form
// or a subdomain of it.
func (im *Importer) matchesDomain(host string) bool {
	if im.Domain == "" {
		return true
	}
	domain := strings.ToLower(strings.TrimPrefix(im.Domain, "."))
	dotDomain := "." + domain
	return host == domain || host == dotDomain || strings.HasSuffix(host, dotDomain)
}
