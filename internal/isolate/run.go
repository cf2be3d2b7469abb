package isolate

// Constructor is phase 1: it copies state out of the calling context and
// builds the task. It always runs synchronously on the calling lane,
// before anything is scheduled.
type Constructor func() (Task, error)

// RunSync dispatches a task and blocks the calling lane until the result
// is available. Phase 1 runs inline; a construction failure returns
// immediately with nothing scheduled. Phase 2 runs on the target lane
// while the caller waits for exactly one wake-up, then phase 3 runs
// inline on the calling lane and its value is returned. Phase 2 and
// phase 3 failures are re-raised here as ordinary errors.
func RunSync(target Scheduler, construct Constructor) (interface{}, error) {
	task, err := construct()
	if err != nil {
		return nil, err
	}

	runner := &syncRunner{task: task, wake: make(chan error, 1)}
	if err := target.Schedule(runner, false); err != nil {
		return nil, err
	}

	// Genuine cross-lane wait: the single send comes from Run or, if the
	// target loop shuts down first, from Release.
	if err := <-runner.wake; err != nil {
		return nil, err
	}
	return runPhase3(task)
}

// RunAsync dispatches a task and returns a pending Promise immediately.
// The promise is created first; a phase 1 failure rejects it with nothing
// scheduled. Otherwise a phase2Runner is queued on the target lane and
// delivery settles the promise from the origin lane.
func RunAsync(origin, target Scheduler, construct Constructor) *Promise {
	promise := newPromise()

	task, err := construct()
	if err != nil {
		promise.reject(err)
		return promise
	}

	info := &completionInfo{
		promise: promise,
		origin:  origin,
		stack:   captureStack(),
	}
	if err := target.Schedule(&phase2Runner{task: task, info: info}, false); err != nil {
		promise.reject(attribute(err, info.stack))
	}
	return promise
}

// RunIgnored dispatches a task whose outcome nobody observes. A phase 1
// failure propagates synchronously since no promise exists to reject;
// after scheduling, phase 2 failures go unobserved.
func RunIgnored(target Scheduler, construct Constructor) error {
	task, err := construct()
	if err != nil {
		return err
	}
	return target.Schedule(&phase2RunnerIgnored{task: task}, false)
}

// syncRunner runs phase 2 on the target lane and wakes the blocked
// caller with the captured outcome. Release wakes the caller with
// ErrLoopClosed so a torn-down target lane cannot strand it.
type syncRunner struct {
	task Task
	wake chan error
}

func (r *syncRunner) Run() {
	r.wake <- runPhase2(r.task)
}

func (r *syncRunner) Release() {
	r.wake <- ErrLoopClosed
}
