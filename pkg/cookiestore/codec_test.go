package cookiestore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/warpdl/cookiestore/internal/schema"
	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/credman"
	"github.com/warpdl/cookiestore/pkg/logger"
)

func newTestCodec(delegate credman.Delegate, log logger.Logger) *codec {
	m := newMetrics(prometheus.NewRegistry())
	return &codec{
		crypto:      &cryptoAdapter{delegate: delegate, watchdog: time.Minute, log: log, m: m},
		isCanonical: cookie.IsCanonical,
		log:         log,
		m:           m,
		now:         func() time.Time { return baseTime.Add(24 * time.Hour) },
	}
}

func codecDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", dsn(filepath.Join(t.TempDir(), "Cookies")))
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := schema.NewManager(nil).EnsureUpToDate(context.Background(), db); err != nil {
		t.Fatalf("EnsureUpToDate: %v", err)
	}
	return db
}

func roundTrip(t *testing.T, cd *codec, db *sql.DB, c *cookie.Canonical) *cookie.Canonical {
	t.Helper()
	args, err := cd.encode(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM cookies`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(insertSQL, args...); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := cd.decode(db.QueryRow(`SELECT ` + columns + ` FROM cookies`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestCodecRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{9}, 32)
	keyed, err := credman.NewKeyDelegate(key)
	if err != nil {
		t.Fatal(err)
	}
	delegates := map[string]credman.Delegate{
		"plaintext": nil,
		"nop":       credman.NopDelegate{},
		"gcm":       keyed,
		"oscrypt":   credman.NewOSCryptDelegate("secret", credman.LinuxIterations),
	}

	session := newCookie("sid", "example.com")
	session.Persistent = false
	session.HasExpires = false
	session.Expiry = time.Time{}
	session.SameSite = cookie.SameSiteStrict
	session.Priority = cookie.PriorityHigh

	hostOnly := newCookie("__Host-id", "example.com")
	hostOnly.SameSite = cookie.SameSiteNoRestriction
	hostOnly.Priority = cookie.PriorityLow
	hostOnly.HttpOnly = false

	domain := newCookie("pref", ".example.com")
	domain.Value = ""
	domain.Path = "/account/settings"
	domain.Secure = false
	domain.LastAccess = baseTime.Add(123456 * time.Microsecond)

	for name, d := range delegates {
		t.Run(name, func(t *testing.T) {
			cd := newTestCodec(d, logger.NewNopLogger())
			db := codecDB(t)
			for _, c := range []*cookie.Canonical{newCookie("a", "x.com"), session, hostOnly, domain} {
				got := roundTrip(t, cd, db, c)
				if !got.Equal(c) {
					t.Fatalf("round trip mismatch\n got: %+v\nwant: %+v", got, c)
				}
			}
		})
	}
}

func TestCodecEncryptedColumns(t *testing.T) {
	keyed, _ := credman.NewKeyDelegate(bytes.Repeat([]byte{1}, 32))
	cd := newTestCodec(keyed, logger.NewNopLogger())
	args, err := cd.encode(newCookie("a", "x.com"))
	if err != nil {
		t.Fatal(err)
	}
	if args[3] != "" {
		t.Fatalf("expected empty plaintext column, got %q", args[3])
	}
	if ct := args[12].([]byte); len(ct) == 0 || bytes.Contains(ct, []byte("value-a")) {
		t.Fatal("expected opaque ciphertext column")
	}

	plain := newTestCodec(nil, logger.NewNopLogger())
	args, _ = plain.encode(newCookie("a", "x.com"))
	if args[3] != "value-a" || len(args[12].([]byte)) != 0 {
		t.Fatalf("expected plaintext column only, got %v / %v", args[3], args[12])
	}
}

type failingDelegate struct{ credman.NopDelegate }

func (failingDelegate) ShouldEncrypt() bool { return true }
func (failingDelegate) EncryptString(string) ([]byte, error) {
	return nil, errors.New("keychain locked")
}
func (failingDelegate) DecryptString([]byte) (string, error) {
	return "", credman.ErrDecrypt
}

func TestCodecEncryptFailure(t *testing.T) {
	cd := newTestCodec(failingDelegate{}, logger.NewNopLogger())
	if _, err := cd.encode(newCookie("a", "x.com")); err == nil || strings.Contains(err.Error(), "value-a") {
		t.Fatalf("expected encrypt error without the value, got %v", err)
	}
}

func TestCodecDecryptFailureDropsRow(t *testing.T) {
	db := codecDB(t)
	writer, _ := credman.NewKeyDelegate(bytes.Repeat([]byte{1}, 32))
	reader, _ := credman.NewKeyDelegate(bytes.Repeat([]byte{2}, 32))

	args, _ := newTestCodec(writer, logger.NewNopLogger()).encode(newCookie("a", "x.com"))
	if _, err := db.Exec(insertSQL, args...); err != nil {
		t.Fatal(err)
	}
	mock := logger.NewMockLogger()
	cd := newTestCodec(reader, mock)
	got, err := cd.decode(db.QueryRow(`SELECT ` + columns + ` FROM cookies`))
	if err != nil || got != nil {
		t.Fatalf("expected dropped row, got %v, %v", got, err)
	}
	if v := testutil.ToFloat64(cd.m.decryptFailures); v != 1 {
		t.Fatalf("expected one decrypt failure, got %v", v)
	}

	// Without a delegate, encrypted rows cannot be read either.
	none := newTestCodec(nil, logger.NewNopLogger())
	if got, _ := none.decode(db.QueryRow(`SELECT ` + columns + ` FROM cookies`)); got != nil {
		t.Fatal("expected encrypted row to be dropped without a delegate")
	}
}

func TestCodecUnknownEnums(t *testing.T) {
	cd := newTestCodec(nil, logger.NewNopLogger())
	db := codecDB(t)
	args, _ := cd.encode(newCookie("a", "x.com"))
	args[11] = 42 // priority
	args[13] = -7 // samesite
	if _, err := db.Exec(insertSQL, args...); err != nil {
		t.Fatal(err)
	}
	got, err := cd.decode(db.QueryRow(`SELECT ` + columns + ` FROM cookies`))
	if err != nil || got == nil {
		t.Fatalf("decode: %v, %v", got, err)
	}
	if got.Priority != cookie.PriorityMedium || got.SameSite != cookie.SameSiteNoRestriction {
		t.Fatalf("expected defaults, got priority=%v samesite=%v", got.Priority, got.SameSite)
	}
}

func TestCodecMalformedRowDropped(t *testing.T) {
	cd := newTestCodec(nil, logger.NewNopLogger())
	db := codecDB(t)
	bad := newCookie("a", "x.com")
	bad.Path = "no-slash"
	args, _ := cd.encode(bad)
	if _, err := db.Exec(insertSQL, args...); err != nil {
		t.Fatal(err)
	}
	got, err := cd.decode(db.QueryRow(`SELECT ` + columns + ` FROM cookies`))
	if err != nil || got != nil {
		t.Fatalf("expected malformed row to be dropped, got %v, %v", got, err)
	}
	if v := testutil.ToFloat64(cd.m.malformedRows); v != 1 {
		t.Fatalf("expected one malformed row, got %v", v)
	}
}

func TestCodecFutureCreationWarns(t *testing.T) {
	mock := logger.NewMockLogger()
	cd := newTestCodec(nil, mock)
	db := codecDB(t)
	future := newCookie("a", "x.com")
	future.Creation = baseTime.Add(30 * 24 * time.Hour)

	got := roundTrip(t, cd, db, future)
	if got == nil || !got.Equal(future) {
		t.Fatalf("future cookie must still load, got %+v", got)
	}
	w := mock.Warnings()
	if len(w) != 1 || !strings.Contains(w[0], "future") || strings.Contains(w[0], "value-a") {
		t.Fatalf("expected one future-creation warning without the value, got %v", w)
	}
}
