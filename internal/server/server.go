package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoice-mailer/internal/billing"
	"github.com/rezonia/invoice-mailer/internal/idempotency"
	"github.com/rezonia/invoice-mailer/internal/model"
	"github.com/rezonia/invoice-mailer/internal/processor"
	"github.com/rezonia/invoice-mailer/internal/render"
)

// IdempotencyHeader carries the client's duplicate-submission key
const IdempotencyHeader = "Idempotency-Key"

// Config holds server configuration
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	BodyLimit       int64
	CORSOrigins     []string
	Debug           bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	guard    idempotency.Guard
	logger   *slog.Logger
}

// NewServer creates a new API server. guard may be nil, in which case
// Idempotency-Key headers are ignored.
func NewServer(config *Config, pipeline *processor.Pipeline, guard idempotency.Guard, logger *slog.Logger) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}
	if len(config.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(config.CORSOrigins)))
	}
	if config.BodyLimit > 0 {
		router.Use(limitBody(config.BodyLimit))
	}

	s := &Server{
		config:   config,
		router:   router,
		pipeline: pipeline,
		guard:    guard,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Origin", "Content-Type", IdempotencyHeader},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/health", s.handleHealth)

	// /api/invoices is kept for the browser client
	for _, prefix := range []string{"/invoices", "/api/invoices"} {
		invoices := s.router.Group(prefix)
		{
			invoices.POST("", s.handleCreate)
			invoices.GET("/:id", s.handleGet)
			invoices.GET("/:id/pdf", s.handlePDF)
		}
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.config.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.config.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, IndexResponse{OK: true, Msg: "Invoice API"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
		Stats:  s.pipeline.Stats(),
	})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req billing.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	key := c.GetHeader(IdempotencyHeader)
	if key != "" && s.guard != nil {
		ok, err := s.guard.Claim(ctx, key)
		if err != nil {
			s.logger.ErrorContext(ctx, "idempotency check failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "idempotency check failed"})
			return
		}
		if !ok {
			id, _ := s.guard.Lookup(ctx, key)
			c.JSON(http.StatusConflict, ErrorResponse{Error: "duplicate request", InvoiceID: id})
			return
		}
	}

	result := s.pipeline.Create(ctx, req)

	if key != "" && s.guard != nil {
		s.settleKey(key, result)
	}

	if result.Error != nil {
		resp := ErrorResponse{
			Error: result.Error.Error(),
			Stage: string(result.Stage),
		}
		if result.Persisted() {
			resp.InvoiceID = result.Invoice.ID
		}
		c.JSON(statusFor(result.Error), resp)
		return
	}

	c.JSON(http.StatusOK, CreateResponse{OK: true, Invoice: result.Invoice})
}

// settleKey binds the key to a stored invoice, or frees it when nothing was
// stored so the client can retry. The request context may already be done.
func (s *Server) settleKey(key string, result *processor.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if result.Persisted() {
		err = s.guard.Complete(ctx, key, result.Invoice.ID)
	} else {
		err = s.guard.Release(ctx, key)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to settle idempotency key", "error", err)
	}
}

func (s *Server) handleGet(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	inv, err := s.pipeline.Get(ctx, c.Param("id"))
	if err != nil {
		s.writeReadError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (s *Server) handlePDF(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	var buf bytes.Buffer
	inv, err := s.pipeline.Export(ctx, c.Param("id"), &buf)
	if err != nil {
		s.writeReadError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+inv.DocumentName())
	c.Data(http.StatusOK, render.ContentType, buf.Bytes())
}

func (s *Server) writeReadError(c *gin.Context, err error) {
	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}

	s.logger.ErrorContext(c.Request.Context(), "invoice read failed", "id", c.Param("id"), "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var ve *model.ValidationError
	var nf *model.NotFoundError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
