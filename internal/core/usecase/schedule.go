package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/metadoc/internal/core/domain"
	"github.com/avoronov/metadoc/internal/core/ports"
	"github.com/avoronov/metadoc/internal/core/validate"
)

type ScheduleJobUseCase struct {
	validator *validate.Validator
	storage   ports.ObjectStorage
	jobs      ports.JobRepository
	queue     ports.MessageQueue
	logger    *slog.Logger
}

func NewScheduleJobUseCase(
	validator *validate.Validator,
	storage ports.ObjectStorage,
	jobs ports.JobRepository,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *ScheduleJobUseCase {
	return &ScheduleJobUseCase{
		validator: validator,
		storage:   storage,
		jobs:      jobs,
		queue:     queue,
		logger:    logger,
	}
}

// Schedule validates the upload, stages its bytes and hands the job id
// to the queue. The heavy pipeline runs in the worker.
func (uc *ScheduleJobUseCase) Schedule(ctx context.Context, file ports.UploadFile) (*domain.ProcessingJob, error) {
	content, err := io.ReadAll(file.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	validated, err := uc.validator.Validate(content, file.Filename, file.DeclaredMIME)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	stagingKey := fmt.Sprintf("staging/%s%s", jobID, validated.Extension)
	if err := uc.storage.Save(ctx, stagingKey, bytes.NewReader(validated.Content)); err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	job := &domain.ProcessingJob{
		ID:         jobID,
		Status:     domain.JobPending,
		StagingKey: stagingKey,
		Filename:   validated.Filename,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := uc.queue.PublishJobCreated(ctx, job.ID); err != nil {
		now := time.Now().UTC()
		if failErr := job.Fail(fmt.Sprintf("enqueue failed: %v", err), now); failErr == nil {
			if updErr := uc.jobs.Update(ctx, job); updErr != nil {
				uc.logger.Error("mark job failed after enqueue error", "job_id", job.ID, "error", updErr)
			}
		}
		return nil, fmt.Errorf("publish job event: %w", err)
	}

	return job, nil
}
