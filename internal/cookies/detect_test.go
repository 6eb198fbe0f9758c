package cookies

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		want    Format
		wantErr string
	}{
		{"firefox", execAll(t, filepath.Join(dir, "ff.sqlite"), `CREATE TABLE moz_cookies (id INTEGER)`), FormatFirefox, ""},
		{"chrome", execAll(t, filepath.Join(dir, "Cookies"), `CREATE TABLE cookies (id INTEGER)`), FormatChrome, ""},
		{"unknown schema", execAll(t, filepath.Join(dir, "other.db"), `CREATE TABLE other (id INTEGER)`), FormatUnknown, "unsupported cookie database schema"},
		{"netscape", writeFile(t, dir, "a.txt", "# Netscape HTTP Cookie File\n"), FormatNetscape, ""},
		{"netscape alt header", writeFile(t, dir, "b.txt", "# HTTP Cookie File\r\n.a.com\tTRUE\t/\tFALSE\t0\tn\tv\n"), FormatNetscape, ""},
		{"text", writeFile(t, dir, "c.txt", "hello"), FormatUnknown, "unsupported cookie file format"},
		{"empty", writeFile(t, dir, "d.txt", ""), FormatUnknown, "empty"},
		{"missing", filepath.Join(dir, "nope"), FormatUnknown, "not found"},
		{"directory", dir, FormatUnknown, "directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	for f, want := range map[Format]string{
		FormatFirefox: "firefox", FormatChrome: "chrome", FormatNetscape: "netscape", FormatUnknown: "unknown",
	} {
		if f.String() != want {
			t.Fatalf("%d.String() = %q, want %q", f, f.String(), want)
		}
	}
}
