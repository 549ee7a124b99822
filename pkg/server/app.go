package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"EarnRev/pkg/config"
	xhttp "EarnRev/pkg/http"
	pkgkafka "EarnRev/pkg/kafka"
	applogger "EarnRev/pkg/logger"
)

// Runnable is a background component started before the HTTP server, such
// as the redis queue workers or the kafka results consumer.
type Runnable interface {
	Start() error
	Stop(ctx context.Context) error
}

type component struct {
	name string
	svc  Runnable
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	components []component
	closers    []closer
}

// Option configures App.
type Option func(*App)

// WithQueueWorkers runs the redis queue consumer alongside the API.
func WithQueueWorkers(q Runnable) Option {
	return func(a *App) {
		if q != nil {
			a.components = append(a.components, component{name: "queue workers", svc: q})
		}
	}
}

// WithKafkaConsumer registers handlers on c and runs it alongside the API.
func WithKafkaConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c == nil || len(handlers) == 0 {
			return
		}
		for _, h := range handlers {
			c.RegisterHandler(h)
		}
		a.components = append(a.components, component{name: "kafka consumer", svc: c})
	}
}

// WithCloser registers a resource closed after every component stopped.
// Closers run in reverse registration order.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) {
		if fn != nil {
			a.closers = append(a.closers, closer{name: name, fn: fn})
		}
	}
}

// New creates a new App. srv may be nil for worker-only deployments.
func New(cfg *config.Config, log *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{cfg: cfg, log: log, httpServer: srv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	started, err := a.start()
	if err != nil {
		a.log.Error("startup failed", applogger.Error(err))
		_ = a.shutdown(started)
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown(started)
}

func (a *App) start() (int, error) {
	for i, c := range a.components {
		if err := c.svc.Start(); err != nil {
			return i, fmt.Errorf("start %s: %w", c.name, err)
		}
		a.log.Info("component started", applogger.String("component", c.name))
	}
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return len(a.components), fmt.Errorf("start http server: %w", err)
		}
	}
	a.log.Info("earnrev started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type))
	return len(a.components), nil
}

// shutdown stops the HTTP server first so no new work is accepted, then
// the first n components in reverse order, then the closers.
func (a *App) shutdown(n int) error {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	for i := n - 1; i >= 0; i-- {
		c := a.components[i]
		if err := c.svc.Stop(ctx); err != nil {
			a.log.Warn("component stop error", applogger.String("component", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", c.name, err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
