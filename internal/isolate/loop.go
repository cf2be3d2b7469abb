package isolate

import (
	"errors"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	ErrLoopClosed = errors.New("loop is closed")
	ErrQueueFull  = errors.New("loop job queue is full")
)

// Job is a unit of work queued on a loop. Run executes it on the lane;
// Release frees it when the loop shuts down before it could run.
type Job interface {
	Run()
	Release()
}

// Loop is a single-threaded run loop: one goroutine draining a FIFO job
// queue. At most one job executes at any instant, which is the invariant
// that lets tasks cross lanes by ownership transfer instead of locking.
type Loop struct {
	jobs chan Job
	quit chan struct{}
	done chan struct{}

	gid atomic.Uint64 // goroutine id of the loop, set once at startup

	mu     sync.Mutex
	closed bool
}

// NewLoop creates a loop with the given queue capacity and starts it.
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = 256
	}

	l := &Loop{
		jobs: make(chan Job, queueSize),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	started := make(chan struct{})
	go l.run(started)
	<-started
	return l
}

func (l *Loop) run(started chan struct{}) {
	l.gid.Store(curGID())
	close(started)

	for {
		// Shutdown wins over pending jobs.
		select {
		case <-l.quit:
			l.drain()
			return
		default:
		}

		select {
		case job := <-l.jobs:
			job.Run()
		case <-l.quit:
			l.drain()
			return
		}
	}
}

// drain releases every job still queued without running it.
func (l *Loop) drain() {
	defer close(l.done)
	for {
		select {
		case job := <-l.jobs:
			job.Release()
		default:
			return
		}
	}
}

// Schedule enqueues a job to run on this lane. The job runs exactly once,
// in enqueue order relative to other jobs on the same lane. When immediate
// is true and the caller is already executing on this lane, the job runs
// inline instead of being queued.
func (l *Loop) Schedule(job Job, immediate bool) error {
	if immediate && l.OnLane() {
		job.Run()
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLoopClosed
	}

	select {
	case l.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// OnLane reports whether the calling goroutine is the loop goroutine.
func (l *Loop) OnLane() bool {
	return curGID() == l.gid.Load()
}

// Pending returns the number of queued jobs.
func (l *Loop) Pending() int {
	return len(l.jobs)
}

// Close stops the loop and releases still-queued jobs without running
// them. It blocks until the loop goroutine has exited. Closing twice is
// safe.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.quit)
	}
	l.mu.Unlock()
	<-l.done
}

// curGID extracts the current goroutine id from the stack header
// ("goroutine 123 [running]:"). Go exposes no direct API for this; the
// loop needs it only to answer "am I already on this lane".
func curGID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		id, err := strconv.ParseUint(s[:i], 10, 64)
		if err == nil {
			return id
		}
	}
	return 0
}
