package cookiestore

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/credman"
	"github.com/warpdl/cookiestore/pkg/logger"
	"github.com/warpdl/cookiestore/pkg/taskrunner"
)

const (
	DefaultCommitInterval       = 30 * time.Second
	DefaultCommitBatchSize      = 512
	DefaultBacklogWarnThreshold = 50_000
	DefaultDecryptWatchdog      = 10 * time.Second
)

// Options configures a Backend. Path, Client and Background are required.
type Options struct {
	// Path is the database file. Its directory is created on first open.
	Path string
	// Client receives every callback.
	Client taskrunner.Sequence
	// Background runs every database operation.
	Background taskrunner.Sequence

	// Crypto encrypts values at rest. Nil stores plaintext.
	Crypto credman.Delegate
	// RestoreOldSessionCookies keeps non-persistent cookies across opens.
	RestoreOldSessionCookies bool
	// KeepCorruptDatabase disables raze-on-corruption; a corrupt store
	// becomes unavailable instead.
	KeepCorruptDatabase bool

	CommitInterval       time.Duration
	CommitBatchSize      int
	BacklogWarnThreshold int
	DecryptWatchdog      time.Duration

	// IsCanonical filters loaded rows. Defaults to cookie.IsCanonical.
	IsCanonical func(*cookie.Canonical) bool

	Logger logger.Logger
	// Registerer registers the store's collectors. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

func (o *Options) setDefaults() error {
	if o.Path == "" {
		return fmt.Errorf("%w: Path is required", ErrInvalidOptions)
	}
	if o.Client == nil || o.Background == nil {
		return fmt.Errorf("%w: Client and Background sequences are required", ErrInvalidOptions)
	}
	if o.CommitInterval <= 0 {
		o.CommitInterval = DefaultCommitInterval
	}
	if o.CommitBatchSize <= 0 {
		o.CommitBatchSize = DefaultCommitBatchSize
	}
	if o.BacklogWarnThreshold <= 0 {
		o.BacklogWarnThreshold = DefaultBacklogWarnThreshold
	}
	if o.DecryptWatchdog <= 0 {
		o.DecryptWatchdog = DefaultDecryptWatchdog
	}
	if o.IsCanonical == nil {
		o.IsCanonical = cookie.IsCanonical
	}
	if o.Logger == nil {
		o.Logger = logger.NewNopLogger()
	}
	return nil
}
