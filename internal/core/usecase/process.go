package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/avoronov/metadoc/internal/core/domain"
	"github.com/avoronov/metadoc/internal/core/ports"
	"github.com/avoronov/metadoc/internal/core/validate"
)

type ProcessJobUseCase struct {
	jobs      ports.JobRepository
	storage   ports.ObjectStorage
	validator *validate.Validator
	uploader  *UploadDocumentsUseCase
	logger    *slog.Logger
}

func NewProcessJobUseCase(
	jobs ports.JobRepository,
	storage ports.ObjectStorage,
	validator *validate.Validator,
	uploader *UploadDocumentsUseCase,
	logger *slog.Logger,
) *ProcessJobUseCase {
	return &ProcessJobUseCase{
		jobs:      jobs,
		storage:   storage,
		validator: validator,
		uploader:  uploader,
		logger:    logger,
	}
}

// ProcessJob runs the full pipeline for a staged upload. Redelivered
// ids for finished jobs are acknowledged without rework.
func (uc *ProcessJobUseCase) ProcessJob(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Status == domain.JobCompleted || job.Status == domain.JobFailed {
		uc.logger.Info("job already finished, skipping", "job_id", jobID, "status", job.Status)
		return nil
	}

	if err := job.Start(time.Now().UTC()); err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	job.SetProgress(10)
	if err := uc.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("save job start: %w", err)
	}

	record, err := uc.runStaged(ctx, job)
	if err != nil {
		return uc.fail(ctx, job, err)
	}

	if err := job.Complete(record, time.Now().UTC()); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if err := uc.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("save job completion: %w", err)
	}
	uc.cleanupStaging(ctx, job)
	return nil
}

func (uc *ProcessJobUseCase) runStaged(ctx context.Context, job *domain.ProcessingJob) (*domain.DocumentRecord, error) {
	reader, err := uc.storage.Open(ctx, job.StagingKey)
	if err != nil {
		return nil, fmt.Errorf("open staged upload: %w", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read staged upload: %w", err)
	}
	job.SetProgress(25)
	if err := uc.jobs.Update(ctx, job); err != nil {
		uc.logger.Warn("save job progress", "job_id", job.ID, "error", err)
	}

	validated, err := uc.validator.Validate(content, job.Filename, "")
	if err != nil {
		return nil, err
	}

	if existing, ok := uc.uploader.lookup(ctx, validated.Fingerprint); ok {
		uc.logger.Info("staged document already processed", "job_id", job.ID, "document_id", existing.ID)
		return existing, nil
	}

	job.SetProgress(50)
	if err := uc.jobs.Update(ctx, job); err != nil {
		uc.logger.Warn("save job progress", "job_id", job.ID, "error", err)
	}

	record, _, err := uc.uploader.processFingerprinted(ctx, validated)
	if err != nil {
		return nil, err
	}

	job.SetProgress(90)
	if err := uc.jobs.Update(ctx, job); err != nil {
		uc.logger.Warn("save job progress", "job_id", job.ID, "error", err)
	}
	return record, nil
}

func (uc *ProcessJobUseCase) fail(ctx context.Context, job *domain.ProcessingJob, cause error) error {
	uc.logger.Error("job processing failed", "job_id", job.ID, "error", cause)
	if err := job.Fail(cause.Error(), time.Now().UTC()); err != nil {
		return fmt.Errorf("%w; mark failed: %v", cause, err)
	}
	if err := uc.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("%w; save failed state: %v", cause, err)
	}
	uc.cleanupStaging(ctx, job)
	return cause
}

func (uc *ProcessJobUseCase) cleanupStaging(ctx context.Context, job *domain.ProcessingJob) {
	if job.StagingKey == "" {
		return
	}
	if err := uc.storage.Remove(ctx, job.StagingKey); err != nil {
		uc.logger.Warn("remove staged upload", "job_id", job.ID, "key", job.StagingKey, "error", err)
	}
}
