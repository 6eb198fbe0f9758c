package cookies

// Format identifies the format of a foreign cookie store.
type Format int

const (
	FormatUnknown Format = iota
	// FormatFirefox is the moz_cookies SQLite schema.
	FormatFirefox
	// FormatChrome is the Chromium cookies SQLite schema, which this
	// module's own store also uses.
	FormatChrome
	// FormatNetscape is the tab-separated cookies.txt format.
	FormatNetscape
)

func (f Format) String() string {
	switch f {
	case FormatFirefox:
		return "firefox"
	case FormatChrome:
		return "chrome"
	case FormatNetscape:
		return "netscape"
	default:
		return "unknown"
	}
}

// Source describes where imported cookies came from.
type Source struct {
	Path   string
	Format Format
	// Browser is a display name ("Firefox", "Chrome", "Netscape").
	Browser string
}
