package cookiestore

import (
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warpdl/cookiestore/internal/oplog"
	"github.com/warpdl/cookiestore/internal/schema"
	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/logger"
	"github.com/warpdl/cookiestore/pkg/taskrunner"
)

// Origin selects cookies for DeleteAllInList by exact host key and secure
// flag.
type Origin struct {
	Domain string
	Secure bool
}

// Backend is a persistent cookie store. Its exported methods are
// non-blocking and may be called from the client sequence; results arrive
// as callbacks posted to that sequence.
type Backend struct {
	opts       Options
	background taskrunner.Sequence
	log        logger.Logger
	m          *metrics

	ops    *oplog.Log
	codec  *codec
	schema *schema.Manager
	prio   *priorityStats

	// Owned by the background sequence.
	db          *sql.DB
	state       dbState
	openErr     error
	razed       bool
	razePending bool
	loads       loadCoordinator

	mu           sync.Mutex
	beforeCommit func()

	forceKeepSessionState atomic.Bool
	backlogReported       atomic.Bool
	closing               atomic.Bool
	closed                chan struct{}
}

// New returns a Backend for opts. The database is not touched until the
// first load or commit.
func New(opts Options) (*Backend, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	m := newMetrics(opts.Registerer)
	b := &Backend{
		opts:       opts,
		background: opts.Background,
		log:        opts.Logger,
		m:          m,
		ops:        oplog.New(),
		schema:     schema.NewManager(opts.Logger),
		closed:     make(chan struct{}),
	}
	b.codec = &codec{
		crypto: &cryptoAdapter{
			delegate: opts.Crypto,
			watchdog: opts.DecryptWatchdog,
			log:      opts.Logger,
			m:        m,
		},
		isCanonical: opts.IsCanonical,
		log:         opts.Logger,
		m:           m,
		now:         time.Now,
	}
	b.prio = &priorityStats{
		now:      time.Now,
		observer: func(d time.Duration) { m.priorityBlocking.Add(d.Seconds()) },
	}
	return b, nil
}

// Load reads every persisted cookie. onLoaded fires exactly once.
func (b *Backend) Load(onLoaded LoadedCallback) {
	start := time.Now()
	if !b.background.PostTask(func() { b.startFullLoad(start, onLoaded) }) {
		b.opts.Client.PostTask(func() { onLoaded([]*cookie.Canonical{}, ErrClosed) })
	}
}

// LoadForKey reads the cookies of one domain group (see GroupKey) ahead of
// a full load. onLoaded fires exactly once. A group delivered here is left
// out of the next full load; after a full load has completed the result is
// always empty.
func (b *Backend) LoadForKey(key string, onLoaded LoadedCallback) {
	start := time.Now()
	b.prio.begin()
	if !b.background.PostTask(func() { b.loadForKey(start, key, onLoaded) }) {
		b.opts.Client.PostTask(func() {
			b.prio.end()
			onLoaded([]*cookie.Canonical{}, ErrClosed)
		})
	}
}

// Add queues c for insertion.
func (b *Backend) Add(c *cookie.Canonical) { b.enqueue(oplog.Add, c) }

// UpdateAccessTime queues an update of c's last access time.
func (b *Backend) UpdateAccessTime(c *cookie.Canonical) { b.enqueue(oplog.UpdateAccess, c) }

// Delete queues removal of c's identity.
func (b *Backend) Delete(c *cookie.Canonical) { b.enqueue(oplog.Delete, c) }

// DeleteAllInList deletes every cookie of origins. Operations queued before
// the call are committed first.
func (b *Backend) DeleteAllInList(origins []Origin) {
	if len(origins) == 0 {
		return
	}
	list := append([]Origin(nil), origins...)
	b.background.PostTask(func() { b.deleteOrigins(list) })
}

// Flush commits everything queued so far and then runs onDone (if non-nil)
// on the client sequence.
func (b *Backend) Flush(onDone func()) {
	task := func() {
		b.commit()
		if onDone != nil {
			b.opts.Client.PostTask(onDone)
		}
	}
	if !b.background.PostTask(task) && onDone != nil {
		b.opts.Client.PostTask(onDone)
	}
}

// Close commits everything queued and releases the database. It may be
// called from either sequence; Closed reports completion.
func (b *Backend) Close() {
	if !b.closing.CompareAndSwap(false, true) {
		return
	}
	if b.background.RunsTasksInCurrentSequence() {
		b.internalClose()
		return
	}
	if !b.background.PostTask(b.internalClose) {
		b.internalClose()
	}
}

func (b *Backend) internalClose() {
	b.commit()
	b.closeDB()
	b.state = stateClosed
	close(b.closed)
}

// Closed is closed once Close has committed and released the database.
func (b *Backend) Closed() <-chan struct{} { return b.closed }

// SetBeforeFlushCallback installs a hook run at the start of every commit
// on the background sequence.
func (b *Backend) SetBeforeFlushCallback(cb func()) {
	b.mu.Lock()
	b.beforeCommit = cb
	b.mu.Unlock()
}

func (b *Backend) beforeCommitHook() func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.beforeCommit
}

// SetForceKeepSessionState turns DeleteAllInList into a no-op.
func (b *Backend) SetForceKeepSessionState() {
	b.forceKeepSessionState.Store(true)
}

// LoadStats returns priority load statistics.
func (b *Backend) LoadStats() LoadStats {
	return b.prio.snapshot()
}

// PendingOperations returns the number of queued operations.
func (b *Backend) PendingOperations() int {
	return b.ops.Size()
}
