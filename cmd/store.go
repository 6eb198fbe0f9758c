package cmd

import (
	"encoding/hex"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	envs "github.com/warpdl/cookiestore/common"
	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/cookiestore"
	"github.com/warpdl/cookiestore/pkg/credman"
	"github.com/warpdl/cookiestore/pkg/credman/keyring"
	"github.com/warpdl/cookiestore/pkg/logger"
	"github.com/warpdl/cookiestore/pkg/taskrunner"
)

// configDir is where the default database and the fallback key file live.
var configDir = func() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "cookiestore")
}

var newKeyStore = func() keyring.KeyStore {
	return keyring.Fallback{
		keyring.NewKeyring(),
		keyring.NewFileKeyStore(nil, configDir()),
	}
}

func databasePath() string {
	if dbPath != "" {
		return dbPath
	}
	return filepath.Join(configDir(), envs.DefaultDBName)
}

// newLogger logs warnings to stderr. With --log-file every message is also
// appended to that file, debug lines included when --debug is set.
func newLogger() (logger.Logger, error) {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(log.WarnLevel)
	if debug {
		l.SetLevel(log.DebugLevel)
	}
	console := logger.NewLogrusLogger(l).WithField("db", databasePath())
	if logFile == "" {
		return console, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	file := logger.NewStandardLogger(stdlog.New(f, "cookiestore: ", stdlog.LstdFlags))
	if debug {
		file.EnableDebug()
	}
	return logger.NewMultiLogger(console, &closingLogger{file, f}), nil
}

// closingLogger closes the log file along with the logger writing to it.
type closingLogger struct {
	*logger.StandardLogger
	f *os.File
}

func (c *closingLogger) Close() error {
	return c.f.Close()
}

func cryptoDelegate() (credman.Delegate, error) {
	if plaintext {
		return credman.NopDelegate{}, nil
	}
	if keyHex := os.Getenv(envs.KeyEnv); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", envs.KeyEnv, credman.ErrInvalidKey, err)
		}
		d, err := credman.NewKeyDelegate(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envs.KeyEnv, err)
		}
		return d, nil
	}
	d, err := credman.NewKeyringDelegate(newKeyStore())
	if err != nil {
		return nil, fmt.Errorf("cookie key: %w", err)
	}
	return d, nil
}

// session owns a Backend and the two sequences it runs on.
type session struct {
	client     *taskrunner.Runner
	background *taskrunner.Runner
	backend    *cookiestore.Backend
	registry   *prometheus.Registry
	log        logger.Logger
}

func openSession() (*session, error) {
	delegate, err := cryptoDelegate()
	if err != nil {
		return nil, err
	}
	l, err := newLogger()
	if err != nil {
		return nil, err
	}
	s := &session{
		client:     taskrunner.New("client", l),
		background: taskrunner.New("background", l),
		registry:   prometheus.NewRegistry(),
		log:        l,
	}
	s.backend, err = cookiestore.New(cookiestore.Options{
		Path:                     databasePath(),
		Client:                   s.client,
		Background:               s.background,
		Crypto:                   delegate,
		RestoreOldSessionCookies: !purgeSession,
		Logger:                   l,
		Registerer:               s.registry,
	})
	if err != nil {
		s.client.Stop()
		s.background.Stop()
		l.Close()
		return nil, err
	}
	return s, nil
}

type loadResult struct {
	cookies []*cookie.Canonical
	err     error
}

func wait(start func(cookiestore.LoadedCallback)) ([]*cookie.Canonical, error) {
	ch := make(chan loadResult, 1)
	start(func(cookies []*cookie.Canonical, err error) {
		ch <- loadResult{cookies, err}
	})
	r := <-ch
	return r.cookies, r.err
}

func (s *session) loadAll() ([]*cookie.Canonical, error) {
	return wait(s.backend.Load)
}

func (s *session) loadGroup(domain string) ([]*cookie.Canonical, error) {
	key := cookiestore.GroupKey(domain)
	return wait(func(cb cookiestore.LoadedCallback) { s.backend.LoadForKey(key, cb) })
}

func (s *session) flush() {
	done := make(chan struct{})
	s.backend.Flush(func() { close(done) })
	<-done
}

// close commits outstanding writes and stops both sequences.
func (s *session) close() {
	s.backend.Close()
	<-s.backend.Closed()
	s.background.Stop()
	s.client.Stop()
	s.log.Close()
}

// counter reads the current value of a counter family from the session
// registry, summing every label set.
func (s *session) counter(name string) float64 {
	families, err := s.registry.Gather()
	if err != nil {
		return 0
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
