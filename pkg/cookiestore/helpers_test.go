package cookiestore

import (
	"database/sql"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/logger"
	"github.com/warpdl/cookiestore/pkg/taskrunner"
)

const waitTimeout = 5 * time.Second

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	t          *testing.T
	path       string
	client     *taskrunner.Runner
	background *taskrunner.Runner
	log        *logger.MockLogger
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		t:          t,
		path:       filepath.Join(t.TempDir(), "profile", "Cookies"),
		client:     taskrunner.New("client", nil),
		background: taskrunner.New("background", nil),
		log:        logger.NewMockLogger(),
	}
	t.Cleanup(func() {
		env.background.Stop()
		env.client.Stop()
	})
	return env
}

// open creates a Backend over the env's database. mutate adjusts the
// options before New.
func (e *testEnv) open(mutate func(*Options)) *Backend {
	e.t.Helper()
	opts := Options{
		Path:       e.path,
		Client:     e.client,
		Background: e.background,
		Logger:     e.log,
		Registerer: prometheus.NewRegistry(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	b, err := New(opts)
	if err != nil {
		e.t.Fatalf("New: %v", err)
	}
	return b
}

type loadResult struct {
	cookies []*cookie.Canonical
	err     error
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for callback")
		var zero T
		return zero
	}
}

func loadAll(t *testing.T, b *Backend) ([]*cookie.Canonical, error) {
	t.Helper()
	ch := make(chan loadResult, 1)
	b.Load(func(c []*cookie.Canonical, err error) { ch <- loadResult{c, err} })
	r := await[loadResult](t, ch)
	return r.cookies, r.err
}

func loadKey(t *testing.T, b *Backend, key string) ([]*cookie.Canonical, error) {
	t.Helper()
	ch := make(chan loadResult, 1)
	b.LoadForKey(key, func(c []*cookie.Canonical, err error) { ch <- loadResult{c, err} })
	r := await[loadResult](t, ch)
	return r.cookies, r.err
}

func flush(t *testing.T, b *Backend) {
	t.Helper()
	ch := make(chan struct{})
	b.Flush(func() { close(ch) })
	await[struct{}](t, ch)
}

func closeBackend(t *testing.T, b *Backend) {
	t.Helper()
	b.Close()
	select {
	case <-b.Closed():
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for Close")
	}
}

// block stalls the background sequence until the returned func is called.
func (e *testEnv) block() func() {
	release := make(chan struct{})
	e.background.PostTask(func() { <-release })
	return func() { close(release) }
}

func newCookie(name, domain string) *cookie.Canonical {
	return &cookie.Canonical{
		Name:       name,
		Value:      "value-" + name,
		Domain:     domain,
		Path:       "/",
		Creation:   baseTime,
		Expiry:     baseTime.Add(365 * 24 * time.Hour),
		LastAccess: baseTime,
		Secure:     true,
		HttpOnly:   true,
		SameSite:   cookie.SameSiteLax,
		Priority:   cookie.PriorityMedium,
		HasExpires: true,
		Persistent: true,
	}
}

func sortCookies(cs []*cookie.Canonical) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Path < b.Path
	})
}

func names(cs []*cookie.Canonical) []string {
	sortCookies(cs)
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name + "@" + c.Domain
	}
	return out
}

func rawDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
