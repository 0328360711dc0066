package usecase

import (
	"context"
	"fmt"

	"github.com/avoronov/metadoc/internal/core/domain"
	"github.com/avoronov/metadoc/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QueryDocumentsUseCase is the read side for persisted records.
type QueryDocumentsUseCase struct {
	repo ports.DocumentRepository
}

func NewQueryDocumentsUseCase(repo ports.DocumentRepository) *QueryDocumentsUseCase {
	return &QueryDocumentsUseCase{repo: repo}
}

func (uc *QueryDocumentsUseCase) GetByID(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	return doc, nil
}

func (uc *QueryDocumentsUseCase) List(ctx context.Context, skip, limit int) (int, []domain.DocumentRecord, error) {
	skip, limit = clampPage(skip, limit)
	total, docs, err := uc.repo.List(ctx, skip, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list documents: %w", err)
	}
	return total, docs, nil
}

// QueryJobsUseCase is the read side for job state.
type QueryJobsUseCase struct {
	jobs ports.JobRepository
}

func NewQueryJobsUseCase(jobs ports.JobRepository) *QueryJobsUseCase {
	return &QueryJobsUseCase{jobs: jobs}
}

func (uc *QueryJobsUseCase) GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

func (uc *QueryJobsUseCase) List(ctx context.Context, status domain.JobStatus, skip, limit int) (int, []domain.ProcessingJob, error) {
	skip, limit = clampPage(skip, limit)
	total, jobs, err := uc.jobs.List(ctx, status, skip, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list jobs: %w", err)
	}
	return total, jobs, nil
}

func clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return skip, limit
}
