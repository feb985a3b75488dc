// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"clubledger/internal/config"
	"clubledger/internal/telemetry"
)

// Runtime is what every binary needs before it mounts its handlers.
type Runtime struct {
	Config   *config.Config
	Log      *zap.Logger
	shutdown telemetry.ShutdownFunc
}

// Bootstrap loads configuration for service and installs logging and tracing.
func Bootstrap(ctx context.Context, service string) (*Runtime, error) {
	cfg, err := config.Load(service)
	if err != nil {
		return nil, err
	}
	log, err := telemetry.NewLogger(cfg.LogLevel, cfg.Development())
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("service", cfg.Service), zap.String("env", cfg.Environment))

	shutdown, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:       cfg.Otel.Enabled,
		ServiceName:   "clubledger-" + service,
		Environment:   cfg.Environment,
		Endpoint:      cfg.Otel.Endpoint,
		SamplingRatio: cfg.Otel.SamplingRatio,
	}, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}
	return &Runtime{Config: cfg, Log: log, shutdown: shutdown}, nil
}

// Close flushes traces and logs.
func (rt *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.ShutdownTimeout)
	defer cancel()
	if err := rt.shutdown(ctx); err != nil {
		rt.Log.Warn("tracer shutdown failed", zap.Error(err))
	}
	_ = rt.Log.Sync()
}

// NewRouter returns a chi router carrying the common middleware stack and a health probe.
func NewRouter(log *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Serve listens on the configured port until SIGINT or SIGTERM, then drains in-flight
// requests within the shutdown timeout.
func (rt *Runtime) Serve(ctx context.Context, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", rt.Config.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.Log.Info("listening", zap.String("addr", srv.Addr))
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

	rt.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// Merge registers every route of each sub router on r. Route-level middleware added
// with With travels along with the handler.
func Merge(r chi.Router, subs ...chi.Router) error {
	for _, sub := range subs {
		err := chi.Walk(sub, func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			r.With(middlewares...).Method(method, route, handler)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to merge routes: %w", err)
		}
	}
	return nil
}
