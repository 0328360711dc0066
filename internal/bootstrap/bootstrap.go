package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avoronov/metadoc/internal/config"
	"github.com/avoronov/metadoc/internal/core/dublincore"
	"github.com/avoronov/metadoc/internal/core/ports"
	"github.com/avoronov/metadoc/internal/core/semantic"
	"github.com/avoronov/metadoc/internal/core/usecase"
	"github.com/avoronov/metadoc/internal/core/validate"
	"github.com/avoronov/metadoc/internal/infrastructure/cache"
	"github.com/avoronov/metadoc/internal/infrastructure/extractor"
	"github.com/avoronov/metadoc/internal/infrastructure/extractor/ocr"
	"github.com/avoronov/metadoc/internal/infrastructure/inference"
	"github.com/avoronov/metadoc/internal/infrastructure/queue/nats"
	"github.com/avoronov/metadoc/internal/infrastructure/repository/postgres"
	"github.com/avoronov/metadoc/internal/infrastructure/resilience"
	"github.com/avoronov/metadoc/internal/infrastructure/storage/localfs"
)

// App holds the wired application graph shared by the api and worker
// binaries.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Uploader  *usecase.UploadDocumentsUseCase
	Scheduler *usecase.ScheduleJobUseCase
	Processor *usecase.ProcessJobUseCase
	Documents *usecase.QueryDocumentsUseCase
	Jobs      *usecase.QueryJobsUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docRepo := postgres.NewDocumentRepository(db)
	if err := docRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	jobRepo := postgres.NewJobRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 200 * time.Millisecond,
		RetryMaxBackoff:     5 * time.Second,
		BreakerEnabled:      true,
	})

	var resultCache ports.ResultCache
	var redisCache *cache.ResultCache
	if cfg.RedisEnabled {
		redisCache, err = cache.NewResultCache(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("result cache unavailable, deduplication falls back to the database", "error", err)
			redisCache = nil
		} else {
			resultCache = redisCache
		}
	}

	var queue *nats.Queue
	if cfg.NATSEnabled {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			_ = db.Close()
			if redisCache != nil {
				_ = redisCache.Close()
			}
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	labels, err := config.LoadLabels(cfg.LabelConfigPath)
	if err != nil {
		logger.Warn("label config unavailable, using built-in defaults", "error", err)
		labels = config.Labels{}
	}

	ocrEngine := ocr.NewEngine(ocr.Config{
		Pdftoppm:  cfg.PdftoppmBin,
		Tesseract: cfg.TesseractBin,
		DPI:       cfg.OCRDPI,
		MaxPages:  cfg.OCRMaxPages,
		Whitelist: cfg.OCRWhitelist,
	}, logger)
	textExtractor := extractor.New(ocrEngine, logger)

	analyzer := buildAnalyzer(ctx, cfg, labels, executor, logger)
	validator := validate.New(cfg.AllowedExtensions, cfg.MaxFileSize)

	mapperOpts := []dublincore.Option{}
	if len(labels.TypeMapping) > 0 {
		mapperOpts = append(mapperOpts, dublincore.WithTypeMapping(labels.TypeMapping))
	}
	mapper := dublincore.NewMapper(mapperOpts...)

	uploader := usecase.NewUploadDocumentsUseCase(
		validator, docRepo, textExtractor, analyzer, mapper, resultCache,
		cfg.MaxTextLength, cfg.UploadParallelism, logger,
	)
	processor := usecase.NewProcessJobUseCase(jobRepo, storage, validator, uploader, logger)

	var scheduler *usecase.ScheduleJobUseCase
	if queue != nil {
		scheduler = usecase.NewScheduleJobUseCase(validator, storage, jobRepo, queue, logger)
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Uploader:  uploader,
		Scheduler: scheduler,
		Processor: processor,
		Documents: usecase.NewQueryDocumentsUseCase(docRepo),
		Jobs:      usecase.NewQueryJobsUseCase(jobRepo),
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			if redisCache != nil {
				_ = redisCache.Close()
			}
			_ = db.Close()
		},
	}
	if queue != nil {
		app.Queue = queue
	}
	return app, nil
}

// buildAnalyzer probes the inference service once per capability at
// startup; an unserved model degrades that capability to a no-op
// instead of failing the boot. Interface variables stay nil unless the
// probe succeeds so the analyzer's nil checks see a true nil.
func buildAnalyzer(
	ctx context.Context,
	cfg config.Config,
	labels config.Labels,
	executor *resilience.Executor,
	logger *slog.Logger,
) *semantic.Analyzer {
	client := inference.New(cfg.InferenceURL, inference.Options{
		RequestsPerSecond:  cfg.InferenceRPS,
		ResilienceExecutor: executor,
	})

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var recognizer semantic.EntityRecognizer
	if client.Available(probeCtx, cfg.NERModel) {
		recognizer = inference.NewEntityRecognizer(client, cfg.NERModel)
	} else {
		logger.Warn("model unavailable, entity extraction disabled", "model", cfg.NERModel)
	}

	var summarizer semantic.Summarizer
	if client.Available(probeCtx, cfg.SummaryModel) {
		summarizer = inference.NewSummarizer(client, cfg.SummaryModel)
	} else {
		logger.Warn("model unavailable, summarization disabled", "model", cfg.SummaryModel)
	}

	var classifier semantic.Classifier
	if client.Available(probeCtx, cfg.ClassifyModel) {
		classifier = inference.NewClassifier(client, cfg.ClassifyModel)
	} else {
		logger.Warn("model unavailable, categorization disabled", "model", cfg.ClassifyModel)
	}

	var sentiment semantic.SentimentScorer
	if client.Available(probeCtx, cfg.SentimentModel) {
		sentiment = inference.NewSentimentScorer(client, cfg.SentimentModel)
	} else {
		logger.Warn("model unavailable, sentiment disabled", "model", cfg.SentimentModel)
	}

	var embedder semantic.Embedder
	if client.Available(probeCtx, cfg.EmbedModel) {
		embedder = inference.NewEmbedder(client, cfg.EmbedModel)
	} else {
		logger.Warn("model unavailable, semantic keyword ranking disabled", "model", cfg.EmbedModel)
	}

	return semantic.NewAnalyzer(recognizer, summarizer, classifier, sentiment, embedder, semantic.Config{
		CategoryLabels: labels.CategoryLabels,
		TopKeywords:    cfg.TopKeywords,
	}, logger)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
