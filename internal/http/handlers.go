package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/isolate/internal/isolate"
	"github.com/GriffinCanCode/isolate/internal/logging"
	"github.com/GriffinCanCode/isolate/internal/monitoring"
	"github.com/GriffinCanCode/isolate/internal/registry"
	"github.com/GriffinCanCode/isolate/internal/snapshot"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *registry.Registry
	store    *snapshot.Store
	host     *isolate.Context // origin lane for promise-mode deliveries
	metrics  *monitoring.Metrics
	log      *logging.Logger

	promises  sync.Map // promise id -> *isolate.Promise
	retention time.Duration
}

// NewHandlers creates a new handler set
func NewHandlers(
	reg *registry.Registry,
	store *snapshot.Store,
	host *isolate.Context,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Handlers {
	return &Handlers{
		registry:  reg,
		store:     store,
		host:      host,
		metrics:   metrics,
		log:       log,
		retention: 5 * time.Minute,
	}
}

// WithPromiseRetention bounds how long a promise entry survives: an
// unsettled promise is dropped after this window, and a settled one is
// kept at most this long for pollers that never collect it.
func (h *Handlers) WithPromiseRetention(d time.Duration) *Handlers {
	if d > 0 {
		h.retention = d
	}
	return h
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "isolate",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"contexts":       h.registry.Count(),
		"host":           h.host.Stats(),
		"uptime_seconds": h.metrics.Uptime().Seconds(),
	})
}

// CreateContext spawns a new execution context
func (h *Handlers) CreateContext(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	ctx, err := h.registry.Create(req.Name)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":   string(ctx.ID()),
		"name": ctx.Name(),
	})
}

// ListContexts lists all live contexts
func (h *Handlers) ListContexts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"contexts": h.registry.List(),
		"count":    h.registry.Count(),
	})
}

// CloseContext tears down a context
func (h *Handlers) CloseContext(c *gin.Context) {
	id := c.Param("id")
	if !h.registry.Close(id) {
		respondNotFound(c, "context", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": id})
}

// Execute runs a script in a context under a completion mode
func (h *Handlers) Execute(c *gin.Context) {
	target, ok := h.targetContext(c)
	if !ok {
		return
	}

	var req struct {
		Script string `json:"script" binding:"required"`
		Mode   string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Mode == "" {
		req.Mode = "sync"
	}

	construct := func() (isolate.Task, error) {
		return isolate.NewEvalTask(target, req.Script)
	}

	switch req.Mode {
	case "sync":
		h.metrics.RecordDispatch("sync")
		start := time.Now()
		value, err := isolate.RunSync(target, construct)
		if err != nil {
			h.metrics.RecordTask("sync", "error", time.Since(start))
			respondError(c, http.StatusUnprocessableEntity, err)
			return
		}
		h.metrics.RecordTask("sync", "ok", time.Since(start))
		c.JSON(http.StatusOK, gin.H{
			"value":       value,
			"duration_ms": time.Since(start).Milliseconds(),
		})

	case "promise":
		h.metrics.RecordDispatch("promise")
		start := time.Now()
		promise := isolate.RunAsync(h.host, target, construct)
		h.promises.Store(promise.ID(), promise)
		go h.observe(promise.ID(), promise, start)
		c.JSON(http.StatusAccepted, gin.H{
			"promise_id": promise.ID(),
			"state":      promise.State().String(),
		})

	case "ignored":
		h.metrics.RecordDispatch("ignored")
		if err := isolate.RunIgnored(target, construct); err != nil {
			respondError(c, http.StatusUnprocessableEntity, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"scheduled": true})

	default:
		respondError(c, http.StatusBadRequest, errUnknownMode(req.Mode))
	}
}

// GetPromise reports the settlement state of a promise-mode execution.
// Reading a settled promise is terminal: the entry is evicted, and
// further reads return 404.
func (h *Handlers) GetPromise(c *gin.Context) {
	id := c.Param("id")
	val, ok := h.promises.Load(id)
	if !ok {
		respondNotFound(c, "promise", id)
		return
	}
	promise := val.(*isolate.Promise)

	resp := gin.H{
		"promise_id": id,
		"state":      promise.State().String(),
	}
	if value, err := promise.Result(); err == nil {
		resp["value"] = value
		h.promises.Delete(id)
	} else if err != isolate.ErrPending {
		resp["error"] = err.Error()
		h.promises.Delete(id)
	}
	c.JSON(http.StatusOK, resp)
}

// DeletePromise discards a promise entry without waiting for settlement.
func (h *Handlers) DeletePromise(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.promises.LoadAndDelete(id); !ok {
		respondNotFound(c, "promise", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// GetGlobal reads a global from a context by copy
func (h *Handlers) GetGlobal(c *gin.Context) {
	target, ok := h.targetContext(c)
	if !ok {
		return
	}
	name := c.Param("name")

	value, err := isolate.RunSync(target, func() (isolate.Task, error) {
		return isolate.NewGetTask(target, name)
	})
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "value": value})
}

// SetGlobal writes a global into a context by copy
func (h *Handlers) SetGlobal(c *gin.Context) {
	target, ok := h.targetContext(c)
	if !ok {
		return
	}
	name := c.Param("name")

	var req struct {
		Value interface{} `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	if _, err := isolate.RunSync(target, func() (isolate.Task, error) {
		return isolate.NewSetTask(target, name, req.Value)
	}); err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "set": true})
}

// SaveSnapshot captures named globals from a context
func (h *Handlers) SaveSnapshot(c *gin.Context) {
	target, ok := h.targetContext(c)
	if !ok {
		return
	}

	var req struct {
		Name    string   `json:"name" binding:"required"`
		Globals []string `json:"globals" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	snap, err := h.store.Save(target, req.Name, req.Globals)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       string(snap.ID),
		"name":     snap.Name,
		"saved_at": snap.SavedAt,
		"globals":  len(snap.Globals),
	})
}

// RestoreSnapshot writes a stored snapshot into a context
func (h *Handlers) RestoreSnapshot(c *gin.Context) {
	target, ok := h.targetContext(c)
	if !ok {
		return
	}
	name := c.Param("name")

	snap, err := h.store.Restore(target, name)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":     snap.Name,
		"restored": len(snap.Globals),
	})
}

// ListSnapshots lists stored snapshots
func (h *Handlers) ListSnapshots(c *gin.Context) {
	names, err := h.store.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": names})
}

// DeleteSnapshot removes a stored snapshot
func (h *Handlers) DeleteSnapshot(c *gin.Context) {
	name := c.Param("name")
	if err := h.store.Delete(name); err != nil {
		respondError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": name})
}

// targetContext resolves the :id route param to a live context
func (h *Handlers) targetContext(c *gin.Context) (*isolate.Context, bool) {
	id := c.Param("id")
	target, ok := h.registry.Get(id)
	if !ok {
		respondNotFound(c, "context", id)
		return nil, false
	}
	return target, true
}

// observe records task metrics once a promise settles and bounds the
// lifetime of its map entry. An unsettled promise (a released job) is
// dropped after the retention window; a settled one is kept at most that
// long for a poller to collect, then evicted even if never read.
func (h *Handlers) observe(id string, promise *isolate.Promise, start time.Time) {
	expire := time.NewTimer(h.retention)
	defer expire.Stop()

	select {
	case <-promise.Done():
	case <-expire.C:
		h.promises.Delete(id)
		h.log.Warn("promise never settled; entry dropped",
			zap.String("promise_id", id),
		)
		return
	}

	status := "ok"
	if promise.State() == isolate.StateRejected {
		status = "error"
	}
	h.metrics.RecordTask("promise", status, time.Since(start))

	if !expire.Stop() {
		<-expire.C
	}
	expire.Reset(h.retention)
	<-expire.C
	h.promises.Delete(id)
}
