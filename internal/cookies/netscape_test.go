package cookies

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/warpdl/cookiestore/pkg/logger"
)

func TestParseNetscape(t *testing.T) {
	future := fixedNow.Add(24 * time.Hour).Unix()
	content := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		"# a comment",
		"",
		fmt.Sprintf(".example.com\tTRUE\t/\tTRUE\t%d\tsid\tabc123", future),
		fmt.Sprintf("#HttpOnly_.example.com\tTRUE\t/\tFALSE\t%d\th\tv\r", future),
		".example.com\tTRUE\t/\tFALSE\t0\tsession\tv",
		fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\texpired\tv", fixedNow.Add(-time.Hour).Unix()),
		fmt.Sprintf(".other.org\tTRUE\t/\tFALSE\t%d\tother\tv", future),
		"malformed line",
		".example.com\tTRUE\t/\tFALSE\tsoon\tbadexpiry\tv",
	}, "\n")
	path := writeFile(t, t.TempDir(), "cookies.txt", content)

	mock := logger.NewMockLogger()
	im := testImporter("example.com")
	im.Log = mock
	got, err := im.ParseNetscape(path)
	if err != nil {
		t.Fatalf("ParseNetscape: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 cookies, got %d", len(got))
	}
	if !got[0].Secure || got[0].HttpOnly || !got[0].Persistent {
		t.Fatalf("unexpected sid cookie: %+v", got[0])
	}
	if !got[1].HttpOnly || got[1].Name != "h" {
		t.Fatalf("expected HttpOnly cookie, got %+v", got[1])
	}
	if got[2].Persistent || got[2].HasExpires || !got[2].Expiry.IsZero() {
		t.Fatalf("expected session cookie, got %+v", got[2])
	}
	if !got[0].Creation.Equal(fixedNow) {
		t.Fatalf("expected creation to be the import time, got %v", got[0].Creation)
	}
	warnings := mock.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
	for _, w := range warnings {
		if strings.Contains(w, "abc123") || strings.Contains(w, "\tv") {
			t.Fatalf("warning leaks cookie content: %q", w)
		}
	}
}

func TestParseNetscape_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cookies.txt", "# Netscape HTTP Cookie File\n")
	got, err := testImporter("").ParseNetscape(path)
	if err != nil || len(got) != 0 {
		t.Fatalf("ParseNetscape = %v, %v", got, err)
	}
}
