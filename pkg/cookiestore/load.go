package cookiestore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warpdl/cookiestore/pkg/cookie"
)

// LoadedCallback receives the result of a load on the client sequence.
// On failure cookies is empty and err is non-nil.
type LoadedCallback func(cookies []*cookie.Canonical, err error)

// chainLoad accumulates a full load across its per-group steps.
type chainLoad struct {
	start   time.Time
	cookies []*cookie.Canonical
	waiters []LoadedCallback
}

// loadCoordinator tracks which domain groups the current full load has
// yet to read. It is owned by the background sequence.
//
// Groups are enumerated from the database whenever no chain is running, so
// hosts written since an earlier load are picked up. taken holds the groups
// priority loads have already delivered; they are left out of the chain.
type loadCoordinator struct {
	fullDone bool
	order    []string
	pending  map[string][]string
	taken    map[string]bool
	chain    *chainLoad
}

func (lc *loadCoordinator) reset() {
	lc.order = nil
	lc.pending = nil
}

// next pops the first group still pending, in key order.
func (lc *loadCoordinator) next() (string, []string, bool) {
	for len(lc.order) > 0 {
		key := lc.order[0]
		lc.order = lc.order[1:]
		if hosts, ok := lc.pending[key]; ok {
			delete(lc.pending, key)
			return key, hosts, true
		}
	}
	return "", nil, false
}

// take removes key from the pending set and remembers it as delivered.
func (lc *loadCoordinator) take(key string) ([]string, bool) {
	if lc.taken == nil {
		lc.taken = make(map[string]bool)
	}
	lc.taken[key] = true
	hosts, ok := lc.pending[key]
	delete(lc.pending, key)
	return hosts, ok
}

// LoadStats describes priority load contention.
type LoadStats struct {
	// PriorityRequests counts LoadForKey calls.
	PriorityRequests int
	// PriorityWaiting is the number of priority loads outstanding.
	PriorityWaiting int
	// PriorityBlocking is the wall time during which at least one priority
	// load was outstanding.
	PriorityBlocking time.Duration
}

type priorityStats struct {
	mu       sync.Mutex
	stats    LoadStats
	start    time.Time
	now      func() time.Time
	observer func(time.Duration)
}

func (p *priorityStats) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.PriorityRequests++
	if p.stats.PriorityWaiting == 0 {
		p.start = p.now()
	}
	p.stats.PriorityWaiting++
}

func (p *priorityStats) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.PriorityWaiting--
	if p.stats.PriorityWaiting == 0 {
		d := p.now().Sub(p.start)
		p.stats.PriorityBlocking += d
		if p.observer != nil {
			p.observer(d)
		}
	}
}

func (p *priorityStats) snapshot() LoadStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// startFullLoad begins a chain load or joins the one in progress.
func (b *Backend) startFullLoad(start time.Time, cb LoadedCallback) {
	if c := b.loads.chain; c != nil {
		c.waiters = append(c.waiters, cb)
		return
	}
	if !b.prepareLoad() {
		b.notifyLoaded(loadFull, start, []LoadedCallback{cb}, nil, b.unavailable())
		return
	}
	b.loads.chain = &chainLoad{start: start, waiters: []LoadedCallback{cb}}
	b.chainLoadStep()
}

// chainLoadStep reads one domain group and reposts itself for the next, so
// other background work can run between groups.
func (b *Backend) chainLoadStep() {
	c := b.loads.chain
	if c == nil {
		return
	}
	if b.state != stateOpen {
		b.finishChain(ErrClosed)
		return
	}
	_, hosts, ok := b.loads.next()
	if !ok {
		b.finishChain(nil)
		return
	}
	c.cookies = append(c.cookies, b.loadHosts(hosts)...)
	if !b.background.PostTask(b.chainLoadStep) {
		b.finishChain(ErrClosed)
	}
}

func (b *Backend) finishChain(err error) {
	c := b.loads.chain
	b.loads.chain = nil
	b.loads.reset()
	b.loads.taken = nil
	b.loads.fullDone = true
	cookies := c.cookies
	if err != nil {
		cookies = nil
	}
	b.notifyLoaded(loadFull, c.start, c.waiters, cookies, err)
}

// loadForKey reads one domain group ahead of the full load. Once a full
// load has completed, or when the group has no stored cookies, the result
// is empty.
func (b *Backend) loadForKey(start time.Time, key string, cb LoadedCallback) {
	done := func(cookies []*cookie.Canonical, err error) {
		b.prio.end()
		cb(cookies, err)
	}
	if !b.openDatabase() {
		b.notifyLoaded(loadPriority, start, []LoadedCallback{done}, nil, b.unavailable())
		return
	}
	if b.loads.chain == nil && b.loads.fullDone {
		b.notifyLoaded(loadPriority, start, []LoadedCallback{done}, nil, nil)
		return
	}
	if !b.prepareLoad() {
		b.notifyLoaded(loadPriority, start, []LoadedCallback{done}, nil, b.unavailable())
		return
	}
	var cookies []*cookie.Canonical
	if hosts, ok := b.loads.take(key); ok {
		cookies = b.loadHosts(hosts)
	}
	b.notifyLoaded(loadPriority, start, []LoadedCallback{done}, cookies, nil)
}

// unavailable is the error reported to loads the store cannot serve. It
// wraps the open failure, if any.
func (b *Backend) unavailable() error {
	if b.state == stateClosed {
		return ErrClosed
	}
	if b.openErr != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, b.openErr)
	}
	return ErrStoreUnavailable
}

// prepareLoad opens the database and, unless a chain is running,
// enumerates the domain groups afresh.
func (b *Backend) prepareLoad() bool {
	if !b.openDatabase() {
		return false
	}
	if b.loads.chain != nil {
		return true
	}
	if err := b.enumerateGroups(); err != nil {
		b.log.Error("failed to enumerate cookie domains: %v", err)
		b.noteError(err)
		return false
	}
	return true
}

func (b *Backend) enumerateGroups() error {
	rows, err := b.db.Query(`SELECT DISTINCT host_key FROM cookies`)
	if err != nil {
		return err
	}
	defer rows.Close()

	pending := make(map[string][]string)
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return err
		}
		key := GroupKey(host)
		if b.loads.taken[key] {
			continue
		}
		pending[key] = append(pending[key], host)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	order := make([]string, 0, len(pending))
	for key := range pending {
		order = append(order, key)
	}
	sort.Strings(order)

	b.loads.pending = pending
	b.loads.order = order
	b.log.Debug("enumerated %d cookie domain groups", len(order))
	return nil
}

// loadHosts decodes every row for hosts. Query errors skip the host.
func (b *Backend) loadHosts(hosts []string) []*cookie.Canonical {
	query := `SELECT ` + columns + ` FROM cookies WHERE host_key = ?`
	if !b.opts.RestoreOldSessionCookies {
		query += ` AND is_persistent = 1`
	}
	var out []*cookie.Canonical
	for _, host := range hosts {
		rows, err := b.db.Query(query, host)
		if err != nil {
			b.log.Error("load cookies for %s: %v", host, err)
			b.noteError(err)
			continue
		}
		for rows.Next() {
			c, err := b.codec.decode(rows)
			if err != nil {
				b.m.malformedRows.Inc()
				b.log.Warning("load cookies for %s: %v", host, err)
				continue
			}
			if c != nil {
				out = append(out, c)
			}
		}
		if err := rows.Err(); err != nil {
			b.log.Error("load cookies for %s: %v", host, err)
			b.noteError(err)
		}
		rows.Close()
	}
	b.m.loadedCookies.Add(float64(len(out)))
	return out
}

// notifyLoaded delivers a result to every callback on the client sequence.
// Callbacks after the first receive clones.
func (b *Backend) notifyLoaded(kind string, start time.Time, cbs []LoadedCallback, cookies []*cookie.Canonical, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	b.m.loads.WithLabelValues(kind, result).Inc()
	b.m.loadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	for i, cb := range cbs {
		out := cookies
		if i > 0 {
			out = make([]*cookie.Canonical, len(cookies))
			for j, c := range cookies {
				out[j] = c.Clone()
			}
		}
		if out == nil {
			out = []*cookie.Canonical{}
		}
		cb := cb
		if !b.opts.Client.PostTask(func() { cb(out, err) }) {
			b.log.Warning("client sequence stopped; dropping %s load result", kind)
		}
	}
}
