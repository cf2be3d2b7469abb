package isolate

// Task is one request for cross-context work. The constructor is phase 1
// and runs synchronously on the calling lane; implementations carry
// whatever state phase 1 copied out of the origin and whatever state
// phase 2 produces for phase 3 to consume.
type Task interface {
	// Phase2 runs on the target lane. It must not touch origin-lane
	// state. A failure is captured as a value and delivered during
	// phase 3; it never escapes the target lane.
	Phase2() error

	// Phase3 runs on the origin lane. It consumes the state phase 2
	// stored on the task and returns the value to deliver, expressed in
	// origin-lane terms.
	Phase3() (interface{}, error)
}

// Scheduler is the lane contract the orchestrator relies on: the job runs
// eventually, exactly once, on that lane, in enqueue order. Context and
// Loop both implement it.
type Scheduler interface {
	Schedule(job Job, immediate bool) error
}

// completionInfo bundles what phase 3 delivery needs to resume the origin
// lane: the promise, a non-owning back-reference to the origin scheduler,
// and the dispatch-time stack snapshot. It travels to the target lane as
// opaque cargo and must only be read from the origin lane.
type completionInfo struct {
	promise *Promise
	origin  Scheduler
	stack   []byte
}

// phase2Runner executes phase 2 on the target lane, then hands control
// back to the origin lane for phase 3 delivery. It exclusively owns the
// task and the completionInfo for the duration of its execution.
type phase2Runner struct {
	task Task
	info *completionInfo
}

func (r *phase2Runner) Run() {
	err := runPhase2(r.task)

	// Hand back to the origin lane regardless of the phase 2 outcome.
	// If the runner is somehow already on the origin lane, deliver
	// inline.
	delivery := &phase3Delivery{task: r.task, info: r.info, phase2Err: err}
	if schedErr := r.info.origin.Schedule(delivery, true); schedErr != nil {
		// Origin lane gone: the promise stays unsettled.
		delivery.Release()
	}
}

// Release covers the structural edge: the owning queue was torn down
// before the job ran. The promise is left permanently unsettled; shutdown
// logic must drain lanes to avoid this.
func (r *phase2Runner) Release() {
	r.task = nil
	r.info = nil
}

// phase2RunnerIgnored executes phase 2 on the target lane and discards
// every outcome. No completionInfo exists and nothing reaches the origin
// lane.
type phase2RunnerIgnored struct {
	task Task
}

func (r *phase2RunnerIgnored) Run() {
	_ = runPhase2(r.task)
	r.task = nil
}

func (r *phase2RunnerIgnored) Release() {
	r.task = nil
}

// phase3Delivery runs on the origin lane and settles the promise: a
// captured phase 2 error rejects it directly, a phase 3 error rejects it,
// and a phase 3 value resolves it. Errors carry the dispatch-time stack.
type phase3Delivery struct {
	task      Task
	info      *completionInfo
	phase2Err error
}

func (d *phase3Delivery) Run() {
	if d.phase2Err != nil {
		d.info.promise.reject(attribute(d.phase2Err, d.info.stack))
		return
	}

	value, err := runPhase3(d.task)
	if err != nil {
		d.info.promise.reject(attribute(err, d.info.stack))
		return
	}
	d.info.promise.resolve(value)
}

func (d *phase3Delivery) Release() {
	d.task = nil
	d.info = nil
}

// runPhase2 invokes Phase2 with panics converted to captured errors.
func runPhase2(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return t.Phase2()
}

// runPhase3 invokes Phase3 with panics converted to captured errors.
func runPhase3(t Task) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, recovered(r)
		}
	}()
	return t.Phase3()
}
