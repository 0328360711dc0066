package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/avoronov/metadoc/internal/core/domain"
	"github.com/avoronov/metadoc/internal/core/dublincore"
	"github.com/avoronov/metadoc/internal/core/ports"
	"github.com/avoronov/metadoc/internal/core/semantic"
	"github.com/avoronov/metadoc/internal/core/validate"
)

const minMeaningfulTextChars = 10

type UploadDocumentsUseCase struct {
	validator   *validate.Validator
	repo        ports.DocumentRepository
	extractor   ports.TextExtractor
	analyzer    ports.FeatureAnalyzer
	mapper      *dublincore.Mapper
	cache       ports.ResultCache
	group       singleflight.Group
	maxText     int
	parallelism int
	logger      *slog.Logger
}

func NewUploadDocumentsUseCase(
	validator *validate.Validator,
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	analyzer ports.FeatureAnalyzer,
	mapper *dublincore.Mapper,
	cache ports.ResultCache,
	maxTextLength int,
	parallelism int,
	logger *slog.Logger,
) *UploadDocumentsUseCase {
	if maxTextLength <= 0 {
		maxTextLength = 10000
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	return &UploadDocumentsUseCase{
		validator:   validator,
		repo:        repo,
		extractor:   extractor,
		analyzer:    analyzer,
		mapper:      mapper,
		cache:       cache,
		maxText:     maxTextLength,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Upload runs the pipeline for every file in the batch. Results keep
// input order and one bad file never fails its siblings.
func (uc *UploadDocumentsUseCase) Upload(ctx context.Context, files []ports.UploadFile) []ports.UploadResult {
	results := make([]ports.UploadResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.parallelism)
	for i, file := range files {
		g.Go(func() error {
			results[i] = uc.processOne(gctx, file)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (uc *UploadDocumentsUseCase) processOne(ctx context.Context, file ports.UploadFile) ports.UploadResult {
	content, err := io.ReadAll(file.Body)
	if err != nil {
		return failedResult(file.Filename, fmt.Errorf("read upload body: %w", err))
	}

	validated, err := uc.validator.Validate(content, file.Filename, file.DeclaredMIME)
	if err != nil {
		return failedResult(file.Filename, err)
	}

	if existing, ok := uc.lookup(ctx, validated.Fingerprint); ok {
		return duplicateResult(file.Filename, existing)
	}

	record, created, err := uc.processFingerprinted(ctx, validated)
	if err != nil {
		uc.logger.Warn("document processing failed", "filename", file.Filename, "error", err)
		return failedResult(file.Filename, err)
	}
	if !created {
		return duplicateResult(file.Filename, record)
	}

	return ports.UploadResult{
		Filename:   file.Filename,
		Status:     "success",
		DocumentID: record.ID,
		DublinCore: &record.DublinCore,
		Features:   &record.Features,
		FileMeta:   &record.FileMetadata,
	}
}

// processFingerprinted collapses concurrent uploads of identical content
// to a single pipeline run; the database unique constraint settles races
// that slip past the in-process guard.
func (uc *UploadDocumentsUseCase) processFingerprinted(ctx context.Context, validated domain.ValidatedContent) (*domain.DocumentRecord, bool, error) {
	type outcome struct {
		record  *domain.DocumentRecord
		created bool
	}

	v, err, _ := uc.group.Do(validated.Fingerprint, func() (interface{}, error) {
		record, created, err := uc.runPipeline(ctx, validated)
		if err != nil {
			return nil, err
		}
		return outcome{record: record, created: created}, nil
	})
	if err != nil {
		return nil, false, err
	}
	out := v.(outcome)
	return out.record, out.created, nil
}

func (uc *UploadDocumentsUseCase) runPipeline(ctx context.Context, validated domain.ValidatedContent) (*domain.DocumentRecord, bool, error) {
	text, fileMeta, err := uc.extractor.Extract(ctx, validated)
	if err != nil {
		return nil, false, fmt.Errorf("extract text: %w", err)
	}
	text = semantic.Truncate(text, uc.maxText)
	if len(strings.TrimSpace(text)) < minMeaningfulTextChars {
		return nil, false, domain.WrapError(domain.ErrExtractionEmpty, "extract text",
			fmt.Errorf("could not extract meaningful text from %s", validated.Filename))
	}

	features := uc.analyzer.Analyze(ctx, text)
	dc := uc.mapper.Map(features, fileMeta)

	now := time.Now().UTC()
	record := &domain.DocumentRecord{
		ID:           uuid.NewString(),
		Filename:     validated.Filename,
		Fingerprint:  validated.Fingerprint,
		Size:         validated.Size,
		Extension:    validated.Extension,
		DublinCore:   dc,
		Features:     features,
		FileMetadata: fileMeta,
		Status:       domain.StatusCompleted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.repo.Create(ctx, record); err != nil {
		if domain.IsKind(err, domain.ErrDuplicateFingerprint) {
			winner, getErr := uc.repo.GetByFingerprint(ctx, validated.Fingerprint)
			if getErr != nil {
				return nil, false, fmt.Errorf("fetch winning duplicate: %w", getErr)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("persist document: %w", err)
	}

	if uc.cache != nil {
		uc.cache.Set(ctx, record.Fingerprint, record)
	}
	return record, true, nil
}

func (uc *UploadDocumentsUseCase) lookup(ctx context.Context, fingerprint string) (*domain.DocumentRecord, bool) {
	if uc.cache != nil {
		if doc, ok := uc.cache.Get(ctx, fingerprint); ok {
			return doc, true
		}
	}
	doc, err := uc.repo.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		if !domain.IsKind(err, domain.ErrDocumentNotFound) {
			uc.logger.Warn("fingerprint lookup failed", "fingerprint", fingerprint, "error", err)
		}
		return nil, false
	}
	if uc.cache != nil {
		uc.cache.Set(ctx, fingerprint, doc)
	}
	return doc, true
}

func duplicateResult(filename string, record *domain.DocumentRecord) ports.UploadResult {
	return ports.UploadResult{
		Filename:   filename,
		Status:     "success",
		Message:    "Document already processed",
		DocumentID: record.ID,
		DublinCore: &record.DublinCore,
		Features:   &record.Features,
	}
}

func failedResult(filename string, err error) ports.UploadResult {
	msg := "processing failed"
	for _, kind := range []error{
		domain.ErrUnsupportedFormat,
		domain.ErrEmptyFile,
		domain.ErrFileTooLarge,
		domain.ErrExtractionEmpty,
	} {
		if domain.IsKind(err, kind) {
			msg = kind.Error()
			break
		}
	}
	return ports.UploadResult{
		Filename: filename,
		Status:   "error",
		Message:  msg,
		Error:    err.Error(),
	}
}
