package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avoronov/metadoc/internal/bootstrap"
	"github.com/avoronov/metadoc/internal/config"
	"github.com/avoronov/metadoc/internal/observability/logging"
	"github.com/avoronov/metadoc/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if app.Queue == nil {
		log.Fatal("worker requires NATS_ENABLED=true")
	}

	m := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: m.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeJobCreated(ctx, func(handlerCtx context.Context, jobID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if job, err := app.Jobs.GetByID(processCtx, jobID); err == nil {
			m.ObserveQueueLag("worker", time.Since(job.CreatedAt))
		}

		m.StartJob()
		started := time.Now()
		processErr := app.Processor.ProcessJob(processCtx, jobID)
		m.FinishJob("worker", time.Since(started), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
