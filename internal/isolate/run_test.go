package isolate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingLane counts scheduled jobs without running them.
type recordingLane struct {
	mu        sync.Mutex
	scheduled int
	jobs      []Job
}

func (l *recordingLane) Schedule(job Job, immediate bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scheduled++
	l.jobs = append(l.jobs, job)
	return nil
}

func (l *recordingLane) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scheduled
}

// fakeTask records phase execution for invariant checks.
type fakeTask struct {
	mu         sync.Mutex
	phase2Runs int
	phase3Runs int
	phase2Gid  uint64
	phase3Gid  uint64
	phase2Done time.Time
	phase3Time time.Time

	result int

	phase2Err error
	phase3    func(t *fakeTask) (interface{}, error)
}

func (t *fakeTask) Phase2() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase2Runs++
	t.phase2Gid = curGID()
	t.result = 42
	t.phase2Done = time.Now()
	return t.phase2Err
}

func (t *fakeTask) Phase3() (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase3Runs++
	t.phase3Gid = curGID()
	t.phase3Time = time.Now()
	if t.phase3 != nil {
		return t.phase3(t)
	}
	return t.result * 2, nil
}

func TestRunSyncSuccess(t *testing.T) {
	target := NewLoop(16)
	defer target.Close()

	task := &fakeTask{}
	value, err := RunSync(target, func() (Task, error) { return task, nil })
	if err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}
	if value != 84 {
		t.Errorf("RunSync() = %v, want 84", value)
	}

	if task.phase2Runs != 1 || task.phase3Runs != 1 {
		t.Errorf("phase runs = (%d, %d), want (1, 1)", task.phase2Runs, task.phase3Runs)
	}
	if task.phase2Gid != target.gid.Load() {
		t.Error("Phase2 did not run on the target lane")
	}
	if task.phase3Gid != curGID() {
		t.Error("Phase3 did not run inline on the calling lane")
	}
	if task.phase3Time.Before(task.phase2Done) {
		t.Error("Phase3 started before Phase2 completed")
	}
}

func TestRunSyncConstructionFailure(t *testing.T) {
	target := &recordingLane{}

	_, err := RunSync(target, func() (Task, error) {
		return nil, errors.New("bad input")
	})
	if err == nil || err.Error() != "bad input" {
		t.Fatalf("RunSync() error = %v, want \"bad input\"", err)
	}
	if target.count() != 0 {
		t.Errorf("construction failure scheduled %d jobs, want 0", target.count())
	}
}

func TestRunSyncPhase2Failure(t *testing.T) {
	target := NewLoop(16)
	defer target.Close()

	task := &fakeTask{phase2Err: errors.New("boom")}
	_, err := RunSync(target, func() (Task, error) { return task, nil })
	if err == nil || err.Error() != "boom" {
		t.Fatalf("RunSync() error = %v, want \"boom\"", err)
	}
	if task.phase3Runs != 0 {
		t.Error("Phase3 ran despite Phase2 failure")
	}
}

func TestRunSyncPhase3Failure(t *testing.T) {
	target := NewLoop(16)
	defer target.Close()

	task := &fakeTask{phase3: func(*fakeTask) (interface{}, error) {
		return nil, errors.New("deliver failed")
	}}
	_, err := RunSync(target, func() (Task, error) { return task, nil })
	if err == nil || err.Error() != "deliver failed" {
		t.Fatalf("RunSync() error = %v, want \"deliver failed\"", err)
	}
}

func TestRunSyncTargetClosed(t *testing.T) {
	target := NewLoop(16)
	target.Close()

	_, err := RunSync(target, func() (Task, error) { return &fakeTask{}, nil })
	if !errors.Is(err, ErrLoopClosed) {
		t.Fatalf("RunSync() error = %v, want ErrLoopClosed", err)
	}
}

func TestRunAsyncSuccess(t *testing.T) {
	origin := NewLoop(16)
	target := NewLoop(16)
	defer origin.Close()
	defer target.Close()

	task := &fakeTask{}
	promise := RunAsync(origin, target, func() (Task, error) { return task, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := promise.Await(ctx)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if value != 84 {
		t.Errorf("Await() = %v, want 84", value)
	}

	if task.phase2Gid != target.gid.Load() {
		t.Error("Phase2 did not run on the target lane")
	}
	if task.phase3Gid != origin.gid.Load() {
		t.Error("Phase3 did not run on the origin lane")
	}
	if task.phase2Gid == task.phase3Gid {
		t.Error("Phase2 and Phase3 ran on the same lane")
	}
}

func TestRunAsyncConstructionFailure(t *testing.T) {
	origin := NewLoop(16)
	defer origin.Close()
	target := &recordingLane{}

	promise := RunAsync(origin, target, func() (Task, error) {
		return nil, errors.New("bad input")
	})

	if promise.State() != StateRejected {
		t.Fatalf("promise state = %v, want rejected", promise.State())
	}
	if _, err := promise.Result(); err == nil || err.Error() != "bad input" {
		t.Errorf("Result() error = %v, want \"bad input\"", err)
	}
	if target.count() != 0 {
		t.Errorf("construction failure scheduled %d jobs, want 0", target.count())
	}
}

func TestRunAsyncPhase2FailureAttribution(t *testing.T) {
	origin := NewLoop(16)
	target := NewLoop(16)
	defer origin.Close()
	defer target.Close()

	task := &fakeTask{phase2Err: errors.New("overflow")}
	promise := RunAsync(origin, target, func() (Task, error) { return task, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := promise.Await(ctx)
	if err == nil || err.Error() != "overflow" {
		t.Fatalf("Await() error = %v, want \"overflow\"", err)
	}

	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("error is %T, want *TaskError", err)
	}
	stack := taskErr.DispatchStack()
	if !strings.Contains(stack, "TestRunAsyncPhase2FailureAttribution") {
		t.Error("dispatch stack does not point at the call site")
	}
	if strings.Contains(stack, "phase2Runner") {
		t.Error("dispatch stack contains target-lane frames")
	}
}

func TestRunAsyncSettlesExactlyOnce(t *testing.T) {
	origin := NewLoop(16)
	target := NewLoop(16)
	defer origin.Close()
	defer target.Close()

	promise := RunAsync(origin, target, func() (Task, error) { return &fakeTask{}, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := promise.Await(ctx); err != nil {
		t.Fatalf("Await() error: %v", err)
	}

	// A settled promise must not settle again.
	promise.reject(errors.New("late"))
	if value, err := promise.Result(); err != nil || value != 84 {
		t.Errorf("Result() after late reject = (%v, %v), want (84, nil)", value, err)
	}
}

func TestRunIgnored(t *testing.T) {
	target := NewLoop(16)
	defer target.Close()

	task := &fakeTask{phase2Err: errors.New("ignored-error")}
	if err := RunIgnored(target, func() (Task, error) { return task, nil }); err != nil {
		t.Fatalf("RunIgnored() error: %v", err)
	}

	waitFor(t, func() bool {
		task.mu.Lock()
		defer task.mu.Unlock()
		return task.phase2Runs == 1
	})

	task.mu.Lock()
	defer task.mu.Unlock()
	if task.phase2Runs != 1 {
		t.Errorf("Phase2 ran %d times, want 1", task.phase2Runs)
	}
	if task.phase3Runs != 0 {
		t.Errorf("Phase3 ran %d times in ignored mode, want 0", task.phase3Runs)
	}
}

func TestRunIgnoredConstructionFailure(t *testing.T) {
	target := &recordingLane{}

	err := RunIgnored(target, func() (Task, error) {
		return nil, errors.New("bad input")
	})
	if err == nil || err.Error() != "bad input" {
		t.Fatalf("RunIgnored() error = %v, want \"bad input\"", err)
	}
	if target.count() != 0 {
		t.Errorf("construction failure scheduled %d jobs, want 0", target.count())
	}
}

func TestRunAsyncPanicInPhase2(t *testing.T) {
	origin := NewLoop(16)
	target := NewLoop(16)
	defer origin.Close()
	defer target.Close()

	promise := RunAsync(origin, target, func() (Task, error) {
		return &panicTask{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := promise.Await(ctx)
	if err == nil || !strings.Contains(err.Error(), "exploded") {
		t.Fatalf("Await() error = %v, want panic captured as error", err)
	}
}

func TestStructuralReleaseLeavesPromisePending(t *testing.T) {
	origin := NewLoop(16)
	defer origin.Close()

	promise := newPromise()
	runner := &phase2Runner{
		task: &fakeTask{},
		info: &completionInfo{promise: promise, origin: origin, stack: captureStack()},
	}
	runner.Release()

	if promise.State() != StatePending {
		t.Errorf("promise state after release = %v, want pending", promise.State())
	}
}

type panicTask struct{}

func (t *panicTask) Phase2() error { panic("exploded") }
func (t *panicTask) Phase3() (interface{}, error) {
	return nil, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
