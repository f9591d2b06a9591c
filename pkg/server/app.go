package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"TradeCore/internal/handler/ws"
	"TradeCore/internal/middleware"
	"TradeCore/internal/usecase"
	"TradeCore/pkg/config"
	xhttp "TradeCore/pkg/http"
	pkgkafka "TradeCore/pkg/kafka"
	applogger "TradeCore/pkg/logger"
	"TradeCore/pkg/queue"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *usecase.Scheduler
	processor  *usecase.DecisionProcessor
	hub        *ws.Hub
	pipeline   *middleware.DecisionPipeline
	queue      *queue.RedisQueue
	consumer   *pkgkafka.Consumer
	archiver   pkgkafka.MessageHandler
	closers    []namedCloser

	httpErr <-chan error
}

type Option func(*App)

// WithPipeline runs the async decision pipeline for the app's lifetime.
func WithPipeline(p *middleware.DecisionPipeline) Option {
	return func(a *App) { a.pipeline = p }
}

// WithQueue runs queue workers for scheduled cycles.
func WithQueue(q *queue.RedisQueue) Option {
	return func(a *App) { a.queue = q }
}

// WithConsumer runs the kafka consumer with h registered.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.archiver = h
	}
}

// WithCloser closes c after everything else stopped. Closers run in
// reverse registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	processor *usecase.DecisionProcessor,
	hub *ws.Hub,
	opts ...Option,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		scheduler:  scheduler,
		processor:  processor,
		hub:        hub,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted or the HTTP
// server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-a.httpErr:
		if ok && err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.Shutdown(shutdownCtx)
	return runErr
}

// Start launches every background component. Consumers of decisions start
// before their producers.
func (a *App) Start(ctx context.Context) error {
	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		a.log.Info("decision pipeline started")
	}

	if a.consumer != nil && a.archiver != nil {
		a.consumer.RegisterHandler(a.archiver)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.archiver.Topic()))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return fmt.Errorf("queue: %w", err)
		}
	}

	if a.httpServer != nil {
		a.httpErr = a.httpServer.Start()
	}

	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}
	return nil
}

// Shutdown stops producers first, then drains outputs and closes clients.
func (a *App) Shutdown(ctx context.Context) {
	a.log.Info("shutting down...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	if a.consumer != nil && a.archiver != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.processor != nil {
		a.processor.Close()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("component", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
