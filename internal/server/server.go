// Package server exposes the translation and validation pipelines over
// HTTP (spec section 6, component C12): POST /v1/translate, POST
// /v1/validate, GET /health, GET /metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"specado/internal/api"
	"specado/internal/apperr"
	"specado/internal/cache"
	"specado/internal/config"
	"specado/internal/lossiness"
	"specado/internal/metrics"
)

const (
	maxBodyBytes        = 4 << 20 // 4 MiB; PromptSpec/ProviderSpec documents can carry large tool schemas
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 45 * time.Second
	idleTimeout         = 120 * time.Second
	requestIDHeader     = "X-Request-ID"
)

// Server is the HTTP surface over the translate/validate pipelines.
type Server struct {
	cfg       config.Config
	specCache cache.SpecCache
	app       *echo.Echo
	address   string
}

// New constructs an HTTP server wired with routing and middleware. specCache
// may be nil, in which case /v1/translate always validates the ProviderSpec
// from scratch.
func New(cfg config.Config, specCache cache.SpecCache) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = specadoErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(requestIDMiddleware)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"request_id", c.Response().Header().Get(requestIDHeader),
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:       cfg,
		specCache: specCache,
		app:       e,
		address:   fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.app.POST("/v1/translate", s.handleTranslate)
	s.app.POST("/v1/validate", s.handleValidate)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req api.TranslateRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	var resp *api.TranslateResponse
	var errResp *api.ErrorResponse
	if s.specCache != nil {
		resp, errResp = api.TranslateCached(c.Request().Context(), req, s.specCache)
	} else {
		resp, errResp = api.Translate(req)
	}

	if errResp != nil {
		metrics.ObserveOutcome(string(errResp.Error.Kind))
		if errResp.Lossiness != nil {
			metrics.ObserveLossiness(lossinessItemsFromWire(*errResp.Lossiness))
		}
		return c.JSON(statusForKind(errResp.Error.Kind), errResp)
	}

	metrics.ObserveOutcome("success")
	metrics.ObserveStages(resp.Metadata.PipelineStageTimings)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleValidate(c echo.Context) error {
	var req api.ValidateRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	resp, err := api.Validate(req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(requestIDHeader, id)
		return next(c)
	}
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.KindValidation, "request body is required")
		}
		return apperr.Wrap(apperr.KindValidation, "invalid JSON payload", err)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return apperr.New(apperr.KindValidation, "request body must contain a single JSON object")
	}
	return nil
}

// specadoErrorHandler dispatches an error reaching echo's top level (a
// decode failure or a /v1/validate bad request) into the §6.1 error shape,
// matching how handleTranslate renders its own *api.ErrorResponse.
func specadoErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		resp := api.NewErrorResponse(appErr)
		metrics.ObserveOutcome(string(appErr.Kind))
		_ = c.JSON(statusForKind(appErr.Kind), resp)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, api.ErrorResponse{Error: api.ErrorWire{
			Kind:    apperr.KindValidation,
			Message: fmt.Sprint(he.Message),
		}})
		return
	}

	slog.Error("unhandled server error", "err", err)
	_ = c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrorWire{
		Kind:    apperr.KindInternal,
		Message: "internal server error",
	}})
}

// statusForKind maps a §7 error kind to the HTTP status the §6 wire
// interface returns it under.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindPathSyntax, apperr.KindPathWriteConflict:
		return http.StatusBadRequest
	case apperr.KindModelNotFound:
		return http.StatusNotFound
	case apperr.KindStrictness:
		return http.StatusUnprocessableEntity
	case apperr.KindTransformation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func lossinessItemsFromWire(w api.LossinessWire) []lossiness.Item {
	items := make([]lossiness.Item, len(w.Items))
	for i, it := range w.Items {
		items[i] = lossiness.Item{Code: it.Code, Severity: it.Severity}
	}
	return items
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("specado ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /metrics")
	fmt.Println("  POST /v1/translate")
	fmt.Println("  POST /v1/validate")
	fmt.Printf("Example:\n  curl http://%s:%d/v1/translate -H 'Content-Type: application/json' -d '{\"prompt_spec\":{...},\"provider_spec\":{...},\"model_id\":\"...\"}'\n\n", host, port)
}
