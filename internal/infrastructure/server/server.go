package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	api "github.com/GriffinCanCode/FitOS/backend/internal/api/http"
	"github.com/GriffinCanCode/FitOS/backend/internal/api/middleware"
	"github.com/GriffinCanCode/FitOS/backend/internal/api/ws"
	"github.com/GriffinCanCode/FitOS/backend/internal/domain/cache"
	"github.com/GriffinCanCode/FitOS/backend/internal/domain/dedup"
	"github.com/GriffinCanCode/FitOS/backend/internal/domain/degrade"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/probe"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/tracing"
)

// shutdownTimeout bounds how long Close waits for in-flight requests
const shutdownTimeout = 10 * time.Second

// Server wires the resilience subsystems behind the management API
type Server struct {
	router    *gin.Engine
	http      *http.Server
	manager   *degrade.Manager
	coalescer *dedup.Coalescer
	breakers  *resilience.Registry
	store     *cache.Store
	prober    *probe.Prober
	stream    *ws.Handler
	tracer    *tracing.Tracer
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Initializing FitOS Resilience Server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Bool("probing", cfg.Probe.Enabled),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Initialize tracing
	tracer := tracing.New("resilience", logger.Logger)

	srv := &Server{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}

	// One settings block serves every breaker in the registry.
	srv.breakers = resilience.NewRegistry(resilience.Settings{
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.FailureThreshold
		},
		OnStateChange: srv.onBreakerChange,
	})

	srv.store = cache.NewStore(cfg.Cache.Capacity, cfg.Cache.TTL).WithMetrics(metrics)

	srv.coalescer = dedup.New(dedup.Config{
		MaxPending:     cfg.Dedup.MaxPending,
		DefaultTimeout: cfg.Dedup.DefaultTimeout,
		GraceWindow:    cfg.Dedup.GraceWindow,
	}).
		WithCache(srv.store).
		WithMetrics(metrics).
		WithLogger(logger.Component("dedup"))

	srv.manager = degrade.NewManager(srv.breakers).
		WithCache(srv.store).
		WithCoalescer(srv.coalescer).
		WithDrainRate(rate.Limit(cfg.Queue.DrainRate)).
		WithMetrics(metrics).
		WithTracer(tracer).
		WithLogger(logger.Component("degrade"))

	if cfg.Probe.Enabled {
		srv.prober = probe.New(srv.manager, srv.breakers, cfg.Probe.Interval, cfg.Probe.Timeout).
			WithMetrics(metrics).
			WithLogger(logger.Component("probe"))
	}

	if cfg.Deps.File != "" {
		if err := srv.registerFromFile(cfg.Deps.File); err != nil {
			return nil, err
		}
	}

	// Set Gin mode
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	if cfg.RateLimit.Enabled {
		rateCfg := middleware.DefaultRateLimitConfig()
		rateCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rateCfg.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rateCfg))
		logger.Info("Rate limiting enabled",
			zap.Int("rps", rateCfg.RequestsPerSecond),
			zap.Int("burst", rateCfg.Burst),
		)
	}

	srv.stream = ws.NewHandler(srv.manager).
		WithMetrics(metrics).
		WithLogger(logger.Component("ws"))

	// The root logger goes to the handlers so the log level endpoints
	// control every component at once.
	handlers := api.NewHandlers(srv.manager, srv.coalescer, srv.breakers).
		WithProber(srv.prober).
		WithMetrics(metrics).
		WithLogger(logger)
	overview := api.NewOverview(srv.manager, srv.coalescer, srv.breakers, metrics)

	// Core endpoints
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Dependency management
	router.GET("/dependencies", handlers.ListDependencies)
	router.POST("/dependencies", handlers.RegisterDependency)
	router.GET("/dependencies/:name", handlers.GetDependency)
	router.DELETE("/dependencies/:name", handlers.TeardownDependency)
	router.PUT("/dependencies/:name/health", handlers.SetDependencyHealth)
	router.DELETE("/dependencies/:name/health", handlers.ClearDependencyHealth)
	router.POST("/dependencies/:name/drain", handlers.DrainDependencyQueue)
	router.POST("/dependencies/:name/check", handlers.CheckDependency)

	// Request coalescing
	router.GET("/dedup/metrics", handlers.DedupMetrics)
	router.POST("/dedup/cancel/:key", handlers.CancelRequest)
	router.POST("/dedup/cancel-all", handlers.CancelAllRequests)

	// Log level management
	router.GET("/logs/level", handlers.GetLogLevel)
	router.PUT("/logs/level", handlers.SetLogLevel)

	// Health event stream
	router.GET("/stream/health", srv.stream.HandleConnection)

	// Observability
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)
	router.GET("/overview", overview.GetOverview)
	router.GET("/dashboard", overview.GetDashboard)

	srv.router = router
	srv.http = &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	return srv, nil
}

// registerFromFile registers the dependencies declared in the deps file.
// The registrations are the service's contract with its callers, so a
// bad file fails startup rather than silently dropping entries.
func (s *Server) registerFromFile(path string) error {
	defs, err := config.LoadDependencies(path)
	if err != nil {
		return fmt.Errorf("failed to load dependency file: %w", err)
	}
	for _, def := range defs {
		if err := s.manager.Register(def); err != nil {
			return fmt.Errorf("failed to register dependency %q: %w", def.Name, err)
		}
		s.logger.Info("Registered dependency",
			zap.String("name", def.Name),
			zap.String("strategy", string(def.Strategy)),
		)
	}
	s.logger.Info("Loaded dependency file",
		zap.String("path", path),
		zap.Int("count", len(defs)),
	)
	return nil
}

// onBreakerChange runs while the breaker's lock is held and must not
// read breaker or manager state. Health transitions are picked up on
// the call path; kicking the prober on half-open gets the trial request
// sent without waiting for caller traffic.
func (s *Server) onBreakerChange(name string, from, to resilience.State) {
	s.logger.Info("Breaker state changed",
		zap.String("dependency", name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	if to == resilience.StateHalfOpen && s.prober != nil {
		s.prober.Kick(name)
	}
}

// Run starts background probing and serves the management API until
// Close is called or the listener fails
func (s *Server) Run() error {
	if s.prober != nil {
		s.prober.Start()
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server: stop probing, fail pending
// coalesced calls, reject queued requests, drop stream clients, then
// stop the tracer and the listener
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.prober != nil {
		s.prober.Stop()
	}

	if n := s.coalescer.CancelAll(); n > 0 {
		s.logger.Info("Cancelled pending requests", zap.Int("count", n))
	}

	for _, name := range s.manager.Dependencies() {
		if err := s.manager.Teardown(name); err != nil {
			s.logger.Warn("Teardown failed",
				zap.String("dependency", name),
				zap.Error(err),
			)
		}
	}

	s.stream.Close()
	s.tracer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
