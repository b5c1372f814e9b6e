// Package server exposes guideline previews over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"trainrx/internal/logging"
	"trainrx/internal/rir"
	"trainrx/internal/types"
)

// HeaderQueryTime carries the handler duration, e.g. "12ms".
const HeaderQueryTime = "X-Query-Time"

// MaxBodyBytes bounds a preview request body.
const MaxBodyBytes = 1 << 20

// Previewer runs one preview.
type Previewer interface {
	Preview(ctx context.Context, tenant, versionID string, raw []byte) (*types.Preview, error)
}

// Options configures a Server.
type Options struct {
	ListenAddr      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TenantHeader    string
	DefaultTenant   string
	Version         string
}

// Server is the HTTP front end of the preview service.
type Server struct {
	echo *echo.Echo
	svc  Previewer
	opts Options
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string             `json:"error"`
	Fields []types.FieldError `json:"fields,omitempty"`
}

// New builds the router.
func New(svc Previewer, opts Options) *Server {
	if opts.TenantHeader == "" {
		opts.TenantHeader = "X-Tenant-ID"
	}
	if opts.DefaultTenant == "" {
		opts.DefaultTenant = "default"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, svc: svc, opts: opts}

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(queryTime)
	e.Use(s.accessLog)

	e.GET("/healthz", s.health)
	g := e.Group("/guidelines")
	g.POST("/versions/:id/preview", s.preview)
	g.GET("/catalog/rir", s.rirMatrix)
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Server("listening on %s", s.opts.ListenAddr)
		if err := s.echo.Start(s.opts.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Server("shutting down server")
	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh
	logging.Server("server stopped")
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.opts.Version,
	})
}

func (s *Server) preview(c echo.Context) error {
	tenant := c.Request().Header.Get(s.opts.TenantHeader)
	if tenant == "" {
		tenant = s.opts.DefaultTenant
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, MaxBodyBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid body: %v", err)})
	}

	ctx := c.Request().Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	out, err := s.svc.Preview(ctx, tenant, c.Param("id"), body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) rirMatrix(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": rir.Matrix()})
}

// writeError maps the preview error taxonomy onto status codes. Internal
// causes are logged, never returned.
func writeError(c echo.Context, err error) error {
	var verr *types.ValidationError
	var ierr *types.InternalError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, types.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.As(err, &ierr):
		logging.ServerError("request %s: %s", requestID(c), ierr.Cause())
	default:
		logging.ServerError("request %s: %v", requestID(c), err)
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// queryTime stamps X-Query-Time just before the headers are written.
func queryTime(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		c.Response().Before(func() {
			c.Response().Header().Set(HeaderQueryTime, fmt.Sprintf("%dms", time.Since(start).Milliseconds()))
		})
		return next(c)
	}
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		logging.Get(logging.CategoryServer).WithContext(map[string]interface{}{
			"request_id": requestID(c),
			"status":     c.Response().Status,
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Info("%s %s", req.Method, req.URL.Path)
		return nil
	}
}
