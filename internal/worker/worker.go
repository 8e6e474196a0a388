package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vdt040499/corrective-rag/internal/domain"
	"github.com/vdt040499/corrective-rag/internal/usecase"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	jobTimeout          = 60 * time.Second
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// JobWorker drains the ingestion queue in the background. One job runs at a
// time; consecutive failures slow polling down with exponential backoff.
type JobWorker struct {
	jobRepo       domain.JobRepository
	ingestUsecase usecase.IngestDocumentUsecase
	logger        *slog.Logger
	stopChan      chan struct{}
	backoff       time.Duration
}

func NewJobWorker(
	jobRepo domain.JobRepository,
	ingestUsecase usecase.IngestDocumentUsecase,
	logger *slog.Logger,
) *JobWorker {
	return &JobWorker{
		jobRepo:       jobRepo,
		ingestUsecase: ingestUsecase,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("job_worker_started")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("job_worker_stopping")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNext(ctx)
	if err != nil {
		w.logger.Error("job_acquire_failed", slog.String("error", err.Error()))
		return
	}
	if job == nil {
		return
	}

	w.logger.Info("job_processing",
		slog.String("job_id", job.ID.String()),
		slog.String("type", job.JobType))

	var processErr error
	switch job.JobType {
	case "ingest_document":
		processErr = w.processIngestDocument(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := "completed"
	var errMsg *string
	if processErr != nil {
		status = "failed"
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("job_failed",
			slog.String("job_id", job.ID.String()),
			slog.Duration("backoff", w.backoff),
			slog.String("error", processErr.Error()))
	} else {
		w.backoff = 0
		w.logger.Info("job_completed", slog.String("job_id", job.ID.String()))
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error("job_status_update_failed",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processIngestDocument(ctx context.Context, job *domain.IngestJob) error {
	source, ok := job.Payload["source"].(string)
	if !ok || source == "" {
		return fmt.Errorf("missing or invalid source")
	}
	content, ok := job.Payload["content"].(string)
	if !ok || content == "" {
		return fmt.Errorf("missing or invalid content")
	}

	return w.ingestUsecase.Upsert(ctx, source, content)
}
