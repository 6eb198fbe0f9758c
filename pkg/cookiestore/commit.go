package cookiestore

import (
	"database/sql"
	"fmt"

	"github.com/warpdl/cookiestore/internal/oplog"
	"github.com/warpdl/cookiestore/pkg/cookie"
)

const (
	insertSQL = `INSERT INTO cookies (` + columns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	updateSQL = `UPDATE cookies SET last_access_utc = ? WHERE host_key = ? AND name = ? AND path = ?`
	deleteSQL = `DELETE FROM cookies WHERE host_key = ? AND name = ? AND path = ?`
)

// enqueue queues op and fires the commit triggers. Reaching the batch size
// commits immediately; otherwise the first operation after an empty queue
// arms the delayed commit.
func (b *Backend) enqueue(kind oplog.Kind, c *cookie.Canonical) {
	if b.closing.Load() {
		b.log.Debug("dropping %s of %s after close", kind, describe(c))
		return
	}
	n := b.ops.Enqueue(kind, c)
	b.m.pending.Set(float64(n))

	switch {
	case n == b.opts.CommitBatchSize:
		b.background.PostTask(b.commit)
	case n == 1:
		b.background.PostDelayedTask(b.commit, b.opts.CommitInterval)
	}
	if n > b.opts.BacklogWarnThreshold && b.backlogReported.CompareAndSwap(false, true) {
		b.m.backlogWarnings.Inc()
		b.log.Warning("%d cookie operations pending; commits may be stuck", n)
	}
}

// commit drains the pending log and applies it in one transaction. A
// failing statement is logged and skipped; the rest of the batch still
// applies. Runs on the background sequence.
func (b *Backend) commit() {
	if hook := b.beforeCommitHook(); hook != nil {
		hook()
	}

	batch := b.ops.DrainAll()
	b.m.pending.Set(float64(b.ops.Size()))
	if batch.Len() == 0 {
		b.m.commits.WithLabelValues(outcomeNone).Inc()
		return
	}
	if !b.openDatabase() {
		b.log.Debug("dropping %d cookie operations: store unavailable", batch.Len())
		b.m.commits.WithLabelValues(outcomeFail).Inc()
		return
	}

	tx, err := b.db.Begin()
	if err != nil {
		b.log.Error("commit: begin transaction: %v", err)
		b.noteError(err)
		b.m.commits.WithLabelValues(outcomeFail).Inc()
		return
	}

	var applied, failed int
	batch.Each(func(op oplog.Operation) {
		if err := b.apply(tx, op); err != nil {
			failed++
			b.m.statementFailures.Inc()
			b.log.Warning("commit: %s %s: %v", op.Kind, describe(op.Cookie), err)
			b.noteError(err)
			return
		}
		applied++
		b.m.statements.Inc()
	})

	if err := tx.Commit(); err != nil {
		b.log.Error("commit: %v", err)
		b.noteError(err)
		b.m.commits.WithLabelValues(outcomeFail).Inc()
		return
	}

	outcome := outcomeMixed
	switch {
	case failed == 0:
		outcome = outcomeOK
	case applied == 0:
		outcome = outcomeFail
	}
	b.m.commits.WithLabelValues(outcome).Inc()
	b.log.Debug("commit applied %d of %d cookie operations", applied, applied+failed)
}

func (b *Backend) apply(tx *sql.Tx, op oplog.Operation) error {
	c := op.Cookie
	switch op.Kind {
	case oplog.Add:
		args, err := b.codec.encode(c)
		if err != nil {
			return err
		}
		_, err = tx.Exec(insertSQL, args...)
		return err
	case oplog.UpdateAccess:
		_, err := tx.Exec(updateSQL, cookie.ToStoreTime(c.LastAccess), c.Domain, c.Name, c.Path)
		return err
	case oplog.Delete:
		_, err := tx.Exec(deleteSQL, c.Domain, c.Name, c.Path)
		return err
	}
	return fmt.Errorf("unknown operation %d", op.Kind)
}

// deleteOrigins commits everything pending, then deletes every cookie of
// the given origins in one transaction.
func (b *Backend) deleteOrigins(origins []Origin) {
	if b.forceKeepSessionState.Load() {
		return
	}
	if !b.openDatabase() {
		return
	}
	b.commit()
	if b.db == nil {
		return
	}

	tx, err := b.db.Begin()
	if err != nil {
		b.log.Error("delete origins: begin transaction: %v", err)
		b.noteError(err)
		return
	}
	defer tx.Rollback()

	var deleted int64
	for _, o := range origins {
		res, err := tx.Exec(`DELETE FROM cookies WHERE host_key = ? AND is_secure = ?`, o.Domain, boolInt(o.Secure))
		if err != nil {
			b.log.Warning("delete origin %s: %v", o.Domain, err)
			b.noteError(err)
			continue
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	if err := tx.Commit(); err != nil {
		b.log.Error("delete origins: %v", err)
		b.noteError(err)
		return
	}
	b.log.Debug("deleted %d cookies for %d origins", deleted, len(origins))
}
