package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/config"
	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg config.Config
	r   *gin.Engine

	resolver  usecase.StatusResolver
	registrar *usecase.Registrar
	evaluator *usecase.UsageEvaluator
	metrics   http.Handler
	logger    *slog.Logger
	dbEnabled bool

	adminAPIKey    string
	batchMaxHashes int

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

type ServerDeps struct {
	Resolver usecase.StatusResolver
	// Registrar and Evaluator are optional; their routes answer 503 when nil.
	Registrar   *usecase.Registrar
	Evaluator   *usecase.UsageEvaluator
	Metrics     http.Handler
	RateLimiter domain.RateLimiter
	Logger      *slog.Logger
	DBEnabled   bool
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:                 cfg,
		r:                   r,
		resolver:            deps.Resolver,
		registrar:           deps.Registrar,
		evaluator:           deps.Evaluator,
		metrics:             deps.Metrics,
		logger:              deps.Logger,
		dbEnabled:           deps.DBEnabled,
		adminAPIKey:         cfg.AdminAPIKey,
		batchMaxHashes:      cfg.BatchMaxHashes,
		rateLimiter:         deps.RateLimiter,
		rateLimitRequests:   cfg.RateLimitRequests,
		rateLimitWindow:     cfg.RateLimitWindow(),
		rateLimitFailClosed: cfg.RateLimitFailClosed,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	r.Use(s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.dbEnabled {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"mode":     dbMode,
			"backend":  s.cfg.RegistryBackend,
			"writable": s.registrar != nil && s.registrar.Writable(),
		})
	})
	if s.metrics != nil {
		s.r.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := s.r.Group("/v1")
	{
		v1.GET("/licenses/:hash", s.limit(routeStatusRead), s.handleStatus)
		v1.POST("/licenses/batch", s.limit(routeStatusBatch), s.handleBatch)
		v1.POST("/licenses", s.limit(routeCommand), s.handleRegister)
		v1.POST("/licenses/:hash/revoke", s.limit(routeCommand), s.handleRevoke)
		v1.POST("/usage/evaluate", s.limit(routeUsage), s.handleEvaluate)
		v1.GET("/schema", s.handleSchema)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Handler() http.Handler { return s.r }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}
