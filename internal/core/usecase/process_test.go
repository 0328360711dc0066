package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/avoronov/metadoc/internal/core/domain"
	"github.com/avoronov/metadoc/internal/core/validate"
)

func newProcessUC(jobs *jobRepoFake, storage *storageFake, repo *repoFake) *ProcessJobUseCase {
	validator := validate.New([]string{".txt", ".pdf", ".docx", ".xlsx", ".md"}, 1<<20)
	uploader := newUploadUC(repo, &extractorFake{}, &analyzerFake{}, nil)
	return NewProcessJobUseCase(jobs, storage, validator, uploader, testLogger())
}

func stageJob(t *testing.T, jobs *jobRepoFake, storage *storageFake, content string) *domain.ProcessingJob {
	t.Helper()
	job := &domain.ProcessingJob{
		ID:         "job-1",
		Status:     domain.JobPending,
		StagingKey: "staging/job-1.txt",
		Filename:   "staged.txt",
		CreatedAt:  time.Now().UTC(),
	}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := storage.Save(context.Background(), job.StagingKey, strings.NewReader(content)); err != nil {
		t.Fatalf("stage content: %v", err)
	}
	return job
}

func TestProcessJobCompletesAndCleansStaging(t *testing.T) {
	jobs := newJobRepoFake()
	storage := newStorageFake()
	repo := newRepoFake()
	uc := newProcessUC(jobs, storage, repo)

	stageJob(t, jobs, storage, "staged document content with enough text to analyze properly")

	if err := uc.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job, err := jobs.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != domain.JobCompleted {
		t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
	}
	if job.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", job.Progress)
	}
	if job.DocumentID == nil || job.Result == nil {
		t.Fatalf("expected result attached, got %+v", job)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Fatalf("expected timestamps recorded")
	}
	if len(storage.removed) != 1 || storage.removed[0] != "staging/job-1.txt" {
		t.Fatalf("expected staging cleaned up, got %v", storage.removed)
	}
	if repo.createCalls != 1 {
		t.Fatalf("expected document persisted once, got %d", repo.createCalls)
	}
}

func TestProcessJobFailureMarksFailed(t *testing.T) {
	jobs := newJobRepoFake()
	storage := newStorageFake()
	uc := newProcessUC(jobs, storage, newRepoFake())

	// too little text to be meaningful
	stageJob(t, jobs, storage, "hi")

	if err := uc.ProcessJob(context.Background(), "job-1"); err == nil {
		t.Fatalf("expected error")
	}

	job, _ := jobs.GetByID(context.Background(), "job-1")
	if job.Status != domain.JobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if !strings.Contains(job.Error, "meaningful text") {
		t.Fatalf("unexpected error message: %q", job.Error)
	}
	if len(storage.removed) != 1 {
		t.Fatalf("expected staging cleaned up after failure, got %v", storage.removed)
	}
}

func TestProcessJobSkipsFinishedJob(t *testing.T) {
	jobs := newJobRepoFake()
	storage := newStorageFake()
	repo := newRepoFake()
	uc := newProcessUC(jobs, storage, repo)

	job := stageJob(t, jobs, storage, "already finished job content with enough text")
	loaded, _ := jobs.GetByID(context.Background(), job.ID)
	_ = loaded.Complete(&domain.DocumentRecord{ID: "done"}, time.Now().UTC())
	_ = jobs.Update(context.Background(), loaded)

	if err := uc.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("redelivery of finished job must be a no-op, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Fatalf("expected no pipeline run, got %d persists", repo.createCalls)
	}
}

func TestProcessJobDeduplicatesAgainstExistingDocument(t *testing.T) {
	jobs := newJobRepoFake()
	storage := newStorageFake()
	repo := newRepoFake()
	uc := newProcessUC(jobs, storage, repo)

	content := "duplicate staged content that was already processed synchronously"
	existing := &domain.DocumentRecord{ID: "existing", Fingerprint: validate.Fingerprint([]byte(content))}
	repo.byFingerprint[existing.Fingerprint] = existing

	stageJob(t, jobs, storage, content)

	if err := uc.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job, _ := jobs.GetByID(context.Background(), "job-1")
	if job.DocumentID == nil || *job.DocumentID != "existing" {
		t.Fatalf("expected job to resolve to existing document, got %+v", job)
	}
	if repo.createCalls != 0 {
		t.Fatalf("expected no new persist, got %d", repo.createCalls)
	}
}

func TestProcessJobUnknownID(t *testing.T) {
	uc := newProcessUC(newJobRepoFake(), newStorageFake(), newRepoFake())
	err := uc.ProcessJob(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job not found, got %v", err)
	}
}
