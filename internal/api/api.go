// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptly/internal/analytics"
	"github.com/abhisek/adaptly/internal/engine"
)

// Engine is the set of operations served.
type Engine interface {
	StartSession(ctx context.Context, req engine.StartRequest) (*engine.StartResponse, error)
	NextQuestion(ctx context.Context, req engine.NextRequest) (*engine.NextResponse, error)
	SubmitAndNext(ctx context.Context, req engine.SubmitRequest) (*engine.SubmitResult, error)
	ScoreBreakdown(ctx context.Context, q analytics.Query) (*analytics.Report, error)
	MergeGuest(ctx context.Context, guestID, studentID string) (*engine.MergeResult, error)
}

// Pinger reports backend health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds the optional collaborators of a Server.
type Options struct {
	Health  Pinger
	Metrics http.Handler
	Logger  *slog.Logger

	// RetryAfter is advertised on 503 responses. Default: 5s.
	RetryAfter time.Duration
}

type Server struct {
	engine     Engine
	health     Pinger
	logger     *slog.Logger
	retryAfter time.Duration
	router     *gin.Engine
}

// New builds the router.
func New(eng Engine, opts Options) *Server {
	s := &Server{
		engine:     eng,
		health:     opts.Health,
		logger:     opts.Logger,
		retryAfter: opts.RetryAfter,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.retryAfter <= 0 {
		s.retryAfter = 5 * time.Second
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	v1 := r.Group("/v1")
	{
		v1.POST("/sessions", s.startSession)
		v1.POST("/sessions/:id/next", s.nextQuestion)
		v1.POST("/sessions/:id/submit", s.submit)
		v1.POST("/analytics/score-breakdown", s.scoreBreakdown)
		v1.POST("/guests/:guestId/merge", s.mergeGuest)
	}
	r.GET("/healthz", s.healthz)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// writeError maps engine errors to status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		inv      *engine.InvalidInputError
		notFound *engine.NotFoundError
		conflict *engine.StateConflictError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &inv):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &conflict):
		status = http.StatusConflict
	case engine.IsRetryable(err):
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", strconv.Itoa(int(s.retryAfter.Seconds())))
	}
	if status >= http.StatusInternalServerError {
		s.logger.WarnContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "retryable": engine.IsRetryable(err)})
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.writeError(c, &engine.InvalidInputError{Field: "body", Reason: "invalid JSON", Err: err})
		return false
	}
	return true
}
