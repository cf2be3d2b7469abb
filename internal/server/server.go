package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/isolate/internal/api/middleware"
	"github.com/GriffinCanCode/isolate/internal/config"
	ihttp "github.com/GriffinCanCode/isolate/internal/http"
	"github.com/GriffinCanCode/isolate/internal/isolate"
	"github.com/GriffinCanCode/isolate/internal/logging"
	"github.com/GriffinCanCode/isolate/internal/monitoring"
	"github.com/GriffinCanCode/isolate/internal/registry"
	"github.com/GriffinCanCode/isolate/internal/snapshot"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	registry *registry.Registry
	store    *snapshot.Store
	host     *isolate.Context
	metrics  *monitoring.Metrics
	log      *logging.Logger
	limiter  *middleware.RateLimiter
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()

	contextDefaults := isolate.Config{
		QueueSize:     cfg.Context.QueueSize,
		Timeout:       cfg.Context.Timeout,
		MaxCallStack:  cfg.Context.MaxCallStack,
		EnableConsole: cfg.Context.EnableConsole,
	}

	// The host context is the origin lane: promise-mode deliveries are
	// scheduled onto it.
	hostCfg := contextDefaults
	hostCfg.Name = "host"
	host, err := isolate.New(hostCfg)
	if err != nil {
		return nil, err
	}
	host.WithLogger(log.Named("host"))

	reg := registry.NewRegistry(contextDefaults).
		WithLogger(log.Named("registry")).
		WithMetrics(metrics)

	store, err := snapshot.NewStore(cfg.Snapshot.Dir)
	if err != nil {
		host.Close()
		return nil, err
	}
	store.WithLogger(log.Named("snapshot")).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
		router.Use(limiter.Middleware())
	}

	handlers := ihttp.NewHandlers(reg, store, host, metrics, log.Named("http")).
		WithPromiseRetention(cfg.Server.PromiseRetention)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Context lifecycle
	router.POST("/contexts", handlers.CreateContext)
	router.GET("/contexts", handlers.ListContexts)
	router.DELETE("/contexts/:id", handlers.CloseContext)

	// Execution
	router.POST("/contexts/:id/eval", handlers.Execute)
	router.GET("/promises/:id", handlers.GetPromise)
	router.DELETE("/promises/:id", handlers.DeletePromise)

	// Globals
	router.GET("/contexts/:id/globals/:name", handlers.GetGlobal)
	router.PUT("/contexts/:id/globals/:name", handlers.SetGlobal)

	// Snapshots
	router.POST("/contexts/:id/snapshots", handlers.SaveSnapshot)
	router.POST("/contexts/:id/snapshots/:name/restore", handlers.RestoreSnapshot)
	router.GET("/snapshots", handlers.ListSnapshots)
	router.DELETE("/snapshots/:name", handlers.DeleteSnapshot)

	return &Server{
		router:   router,
		registry: reg,
		store:    store,
		host:     host,
		metrics:  metrics,
		log:      log,
		limiter:  limiter,
	}, nil
}

// Router exposes the configured engine. Used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the server
func (s *Server) Run(addr string) error {
	s.log.Info("starting isolate service", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close cleans up resources: guest contexts first, then the host lane so
// in-flight deliveries can still land.
func (s *Server) Close() error {
	s.registry.CloseAll()
	s.host.Close()
	if s.limiter != nil {
		s.limiter.Stop()
	}
	_ = s.log.Sync()
	return nil
}
