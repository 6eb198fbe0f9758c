package taskrunner

import (
	"bytes"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warpdl/cookiestore/pkg/logger"
)

// Sequence is an ordered, non-concurrent execution context.
type Sequence interface {
	// PostTask queues task to run after every task posted before it.
	// Returns false if the sequence no longer accepts tasks.
	PostTask(task func()) bool
	// PostDelayedTask queues task to run no sooner than delay from now.
	PostDelayedTask(task func(), delay time.Duration) bool
	// RunsTasksInCurrentSequence reports whether the caller is a task
	// currently executing on this sequence.
	RunsTasksInCurrentSequence() bool
}

// Runner is a goroutine-backed Sequence.
type Runner struct {
	name string
	log  logger.Logger

	mu      sync.Mutex
	ready   []func()
	delayed delayHeap
	seq     uint64
	stopped bool

	wake chan struct{}
	done chan struct{}
	gid  atomic.Uint64
}

// New creates and starts a Runner. name appears in panic logs.
func New(name string, l logger.Logger) *Runner {
	if l == nil {
		l = logger.NewNopLogger()
	}
	r := &Runner{
		name: name,
		log:  l,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	started := make(chan struct{})
	go r.run(started)
	<-started
	return r
}

// Name returns the runner's name.
func (r *Runner) Name() string { return r.name }

func (r *Runner) PostTask(task func()) bool {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false
	}
	r.ready = append(r.ready, task)
	r.mu.Unlock()
	r.signal()
	return true
}

func (r *Runner) PostDelayedTask(task func(), delay time.Duration) bool {
	if delay <= 0 {
		return r.PostTask(task)
	}
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false
	}
	r.seq++
	heapPush(&r.delayed, delayedTask{due: time.Now().Add(delay), seq: r.seq, task: task})
	r.mu.Unlock()
	r.signal()
	return true
}

func (r *Runner) RunsTasksInCurrentSequence() bool {
	return goroutineID() == r.gid.Load()
}

// Stop refuses further tasks, runs the tasks already queued for immediate
// execution, drops pending delayed tasks and waits for the goroutine to exit.
// Calling Stop from a task of the same runner does not wait.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.delayed = nil
	r.mu.Unlock()
	r.signal()
	if !r.RunsTasksInCurrentSequence() {
		<-r.done
	}
}

// Done is closed once the runner goroutine has exited.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// run is the core goroutine implementing the active-object pattern. Due
// delayed tasks are moved to the ready queue before the next ready task runs.
func (r *Runner) run(started chan<- struct{}) {
	defer close(r.done)
	r.gid.Store(goroutineID())
	close(started)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		r.mu.Lock()
		now := time.Now()
		for r.delayed.Len() > 0 && !r.delayed[0].due.After(now) {
			r.ready = append(r.ready, heapPop(&r.delayed).task)
		}
		if len(r.ready) > 0 {
			task := r.ready[0]
			r.ready[0] = nil
			r.ready = r.ready[1:]
			r.mu.Unlock()
			r.runTask(task)
			continue
		}
		if r.stopped {
			r.mu.Unlock()
			return
		}
		var timerCh <-chan time.Time
		if r.delayed.Len() > 0 {
			d := time.Until(r.delayed[0].due)
			if timer == nil {
				timer = time.NewTimer(d)
			} else {
				timer.Reset(d)
			}
			timerCh = timer.C
		}
		r.mu.Unlock()

		select {
		case <-r.wake:
		case <-timerCh:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// runTask runs task with panic recovery so a failing task cannot take the
// sequence down with it.
func (r *Runner) runTask(task func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("PANIC [%s]: %v\n%s", r.name, p, debug.Stack())
		}
	}()
	task()
}

// goroutineID parses the current goroutine's id out of its stack header
// ("goroutine 18 [running]:"). Used only to answer
// RunsTasksInCurrentSequence.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

var _ Sequence = (*Runner)(nil)
