// Package registry tracks live execution contexts by id.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/isolate/internal/isolate"
	"github.com/GriffinCanCode/isolate/internal/logging"
	"github.com/GriffinCanCode/isolate/internal/monitoring"
)

// Registry manages named execution contexts
type Registry struct {
	contexts sync.Map // context id -> *isolate.Context
	defaults isolate.Config
	log      *logging.Logger
	metrics  *monitoring.Metrics
}

// NewRegistry creates a registry that stamps new contexts from defaults
func NewRegistry(defaults isolate.Config) *Registry {
	return &Registry{
		defaults: defaults,
		log:      logging.NewDefault(),
	}
}

// WithLogger replaces the registry logger
func (r *Registry) WithLogger(log *logging.Logger) *Registry {
	r.log = log
	return r
}

// WithMetrics adds metrics tracking to the registry
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Create spawns a new context with the registry defaults
func (r *Registry) Create(name string) (*isolate.Context, error) {
	cfg := r.defaults
	cfg.Name = name

	ctx, err := isolate.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	ctx.WithLogger(r.log.Named("context"))

	r.contexts.Store(string(ctx.ID()), ctx)
	if r.metrics != nil {
		r.metrics.ContextOpened()
	}
	r.log.Info("context created",
		zap.String("context_id", string(ctx.ID())),
		zap.String("name", ctx.Name()),
	)
	return ctx, nil
}

// Get retrieves a context by id
func (r *Registry) Get(id string) (*isolate.Context, bool) {
	val, ok := r.contexts.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*isolate.Context), true
}

// List returns stats for all live contexts, sorted by id
func (r *Registry) List() []map[string]interface{} {
	var out []map[string]interface{}
	r.contexts.Range(func(_, value interface{}) bool {
		out = append(out, value.(*isolate.Context).Stats())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i]["id"].(string) < out[j]["id"].(string)
	})
	return out
}

// Close shuts down a context and removes it
func (r *Registry) Close(id string) bool {
	val, ok := r.contexts.LoadAndDelete(id)
	if !ok {
		return false
	}
	val.(*isolate.Context).Close()
	if r.metrics != nil {
		r.metrics.ContextClosed()
	}
	r.log.Info("context closed", zap.String("context_id", id))
	return true
}

// CloseAll shuts down every context
func (r *Registry) CloseAll() {
	r.contexts.Range(func(key, _ interface{}) bool {
		r.Close(key.(string))
		return true
	})
}

// Count returns the number of live contexts
func (r *Registry) Count() int {
	n := 0
	r.contexts.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
