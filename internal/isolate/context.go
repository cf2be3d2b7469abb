package isolate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/isolate/internal/logging"
	"github.com/GriffinCanCode/isolate/internal/shared/id"
)

// Config defines context configuration
type Config struct {
	Name          string        // Human-readable label
	QueueSize     int           // Lane job queue capacity
	Timeout       time.Duration // Script execution timeout
	MaxCallStack  int           // goja call stack limit
	EnableConsole bool          // Allow console.log/warn/error
}

// DefaultConfig returns a production-ready context configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:     256,
		Timeout:       5 * time.Second,
		MaxCallStack:  1024,
		EnableConsole: true,
	}
}

// LogEntry represents console output captured from guest code
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Context is an isolated JavaScript runtime pinned to its own lane. All
// access to the embedded VM happens through jobs scheduled on that lane;
// the lane's one-job-at-a-time guarantee is what makes the VM safe
// without locks.
type Context struct {
	id     id.ContextID
	vm     *goja.Runtime
	loop   *Loop
	config Config
	log    *logging.Logger

	console   []LogEntry
	consoleMu sync.Mutex

	closed atomic.Bool
}

// New creates a context and starts its lane.
func New(config Config) (*Context, error) {
	vm := goja.New()

	c := &Context{
		id:      id.NewContextID(),
		vm:      vm,
		config:  config,
		log:     logging.NewDefault(),
		console: []LogEntry{},
	}

	if config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStack)
	}

	if err := c.setupGlobals(); err != nil {
		return nil, err
	}

	c.loop = NewLoop(config.QueueSize)
	return c, nil
}

// WithLogger replaces the context logger.
func (c *Context) WithLogger(log *logging.Logger) *Context {
	c.log = log
	return c
}

// ID returns the context id.
func (c *Context) ID() id.ContextID {
	return c.id
}

// Name returns the configured label, falling back to the id.
func (c *Context) Name() string {
	if c.config.Name != "" {
		return c.config.Name
	}
	return string(c.id)
}

// Schedule enqueues a job on this context's lane.
func (c *Context) Schedule(job Job, immediate bool) error {
	if c.closed.Load() {
		return ErrLoopClosed
	}
	return c.loop.Schedule(job, immediate)
}

// OnLane reports whether the caller is executing on this context's lane.
func (c *Context) OnLane() bool {
	return c.loop.OnLane()
}

// Pending returns the number of jobs queued on the lane.
func (c *Context) Pending() int {
	return c.loop.Pending()
}

// Close shuts down the lane. Jobs still queued are released without
// running, so callers should let in-flight work settle first.
func (c *Context) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if pending := c.loop.Pending(); pending > 0 {
		c.log.Warn("closing context with queued jobs; their promises will never settle",
			zap.String("context_id", string(c.id)),
			zap.Int("pending", pending),
		)
	}
	c.loop.Close()
}

// RunScript executes source in the VM with the configured timeout. Must
// be called from this context's lane.
func (c *Context) RunScript(src string) (goja.Value, error) {
	interrupted := make(chan struct{})
	if c.config.Timeout > 0 {
		timer := time.NewTimer(c.config.Timeout)
		defer timer.Stop()
		go func() {
			select {
			case <-timer.C:
				c.vm.Interrupt("execution timeout exceeded")
			case <-interrupted:
			}
		}()
	}

	val, err := c.vm.RunString(src)
	close(interrupted)
	c.vm.ClearInterrupt()
	return val, err
}

// Global reads a global from the VM. Must be called from this context's
// lane.
func (c *Context) Global(name string) interface{} {
	val := c.vm.GlobalObject().Get(name)
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// SetGlobal writes a global into the VM. Must be called from this
// context's lane.
func (c *Context) SetGlobal(name string, value interface{}) error {
	return c.vm.GlobalObject().Set(name, value)
}

// Console returns a copy of captured console output.
func (c *Context) Console() []LogEntry {
	c.consoleMu.Lock()
	defer c.consoleMu.Unlock()
	return append([]LogEntry{}, c.console...)
}

// setupGlobals strips host-environment globals and installs the console.
func (c *Context) setupGlobals() error {
	c.vm.Set("require", goja.Undefined())
	c.vm.Set("process", goja.Undefined())
	c.vm.Set("module", goja.Undefined())
	c.vm.Set("exports", goja.Undefined())

	if c.config.EnableConsole {
		console := c.vm.NewObject()
		console.Set("log", c.makeConsoleFunc("log"))
		console.Set("warn", c.makeConsoleFunc("warn"))
		console.Set("error", c.makeConsoleFunc("error"))
		console.Set("info", c.makeConsoleFunc("info"))
		c.vm.Set("console", console)
	}

	// Timers are no-ops: the lane model has no host event loop for
	// guest callbacks.
	c.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	c.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	return nil
}

// makeConsoleFunc creates a console function
func (c *Context) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		c.consoleMu.Lock()
		c.console = append(c.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		c.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// Stats returns lane statistics.
func (c *Context) Stats() map[string]interface{} {
	return map[string]interface{}{
		"id":      string(c.id),
		"name":    c.Name(),
		"pending": c.loop.Pending(),
		"closed":  c.closed.Load(),
	}
}

var _ Scheduler = (*Context)(nil)
