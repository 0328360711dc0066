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

	httpadapter "github.com/avoronov/metadoc/internal/adapters/http"
	"github.com/avoronov/metadoc/internal/bootstrap"
	"github.com/avoronov/metadoc/internal/config"
	"github.com/avoronov/metadoc/internal/core/ports"
	"github.com/avoronov/metadoc/internal/observability/logging"
	"github.com/avoronov/metadoc/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	m := metrics.NewHTTPServerMetrics("api")

	// A nil scheduler must stay a nil interface so the router can
	// report async uploads as unavailable.
	var scheduler ports.JobScheduler
	if app.Scheduler != nil {
		scheduler = app.Scheduler
	}

	router := httpadapter.NewRouter(app.Uploader, scheduler, app.Documents, app.Jobs, m, "api")

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", router.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
