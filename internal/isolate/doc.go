/*
Package isolate provides isolated JavaScript execution contexts and the
three-phase task protocol used to move work between them.

# Overview

Each Context owns a goja virtual machine pinned to its own single-threaded
run loop (a "lane"). At most one job executes on a lane at any instant, so
state belonging to a context is never touched concurrently. Work crosses
between contexts through a three-phase task:

 1. Phase 1 [origin lane]: the task constructor copies state out of the
    calling context
 2. Phase 2 [target lane]: the task runs inside the target context and
    copies its result out
 3. Phase 3 [origin lane]: the result is materialized back into the
    origin context and delivered

The same task code serves three completion disciplines:

  - RunSync: the calling lane blocks until phase 2 completes, then runs
    phase 3 inline and returns the value
  - RunAsync: a Promise is returned immediately and settled from the
    origin lane once phase 3 delivery happens
  - RunIgnored: phase 2 is scheduled and every outcome is discarded

# Ownership Model

Nothing is shared for concurrent mutation. A task is owned first by the
calling lane, then handed off whole to the job wrapper executing on the
target lane, then handed back for delivery. Errors never cross a lane as
live panics; they are captured as values and re-raised on the origin lane
with the stack snapshot taken at dispatch time, so failures point at the
call site rather than at scheduling internals.

# Limitations

There is no cancellation: once phase 2 is scheduled the task runs to
completion. A loop closed with jobs still queued releases them without
running them, which leaves any associated promise permanently unsettled;
drain loops before teardown. Tearing down an origin context while a
dispatched task is still in flight is likewise unsupported.

# Usage Example

	origin, _ := isolate.New(isolate.DefaultConfig())
	target, _ := isolate.New(isolate.DefaultConfig())
	defer origin.Close()
	defer target.Close()

	value, err := isolate.RunSync(target, func() (isolate.Task, error) {
		return isolate.NewEvalTask(target, "6 * 7")
	})
*/
package isolate
