package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	pkgch "TrendPulse/pkg/clickhouse"
	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	pkgkafka "TrendPulse/pkg/kafka"
	applogger "TrendPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	closers     []func() error
}

// New creates a new App instance with all dependencies. consumer, kh
// and chClient are nil unless the archive path is configured.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		httpHandler: httpHandler,
		consumer:    consumer,
		kh:          kh,
		chClient:    chClient,
	}
}

// AddCloser registers a resource to close on shutdown.
func (a *App) AddCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the archive consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("pipeline service started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.logger.Warn("close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
