package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"slate/internal/history"
	"slate/internal/logging"
	"slate/internal/notifications"
	"slate/internal/services"
)

// ErrWorkerBusy indicates another worker process already holds the queue
// lock.
var ErrWorkerBusy = errors.New("another jobs worker holds the lock")

// DrainResult summarizes one pass over the queue.
type DrainResult struct {
	Submitted int
	Failed    int
}

// Worker drains queued render jobs and hands them to the submitter. A file
// lock guards the queue so only one worker touches it at a time; publishes
// keep enqueueing regardless.
type Worker struct {
	store     *history.Store
	submitter Submitter
	notifier  notifications.Service
	lock      *flock.Flock
	logger    *slog.Logger
}

// NewWorker creates a jobs worker. The notifier may be nil.
func NewWorker(store *history.Store, submitter Submitter, notifier notifications.Service, lockPath string, logger *slog.Logger) (*Worker, error) {
	if store == nil {
		return nil, errors.New("jobs worker requires a history store")
	}
	if submitter == nil {
		return nil, errors.New("jobs worker requires a submitter")
	}
	return &Worker{
		store:     store,
		submitter: submitter,
		notifier:  notifier,
		lock:      flock.New(lockPath),
		logger:    logging.NewComponentLogger(logger, "jobs-worker"),
	}, nil
}

// RunOnce acquires the queue lock and processes every queued job. Jobs that
// fail submission move to failed or review depending on the error class; the
// pass keeps going so one bad job does not starve the rest.
func (w *Worker) RunOnce(ctx context.Context) (DrainResult, error) {
	var result DrainResult

	locked, err := w.lock.TryLock()
	if err != nil {
		return result, fmt.Errorf("acquire worker lock: %w", err)
	}
	if !locked {
		return result, ErrWorkerBusy
	}
	defer func() {
		_ = w.lock.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		job, err := w.store.NextQueuedJob(ctx)
		if err != nil {
			return result, fmt.Errorf("fetch next job: %w", err)
		}
		if job == nil {
			return result, nil
		}
		if w.process(ctx, job) {
			result.Submitted++
		} else {
			result.Failed++
		}
	}
}

func (w *Worker) process(ctx context.Context, job *history.RenderJob) bool {
	logger := w.logger.With(
		logging.String("job_id", job.ID),
		logging.String("take", job.Take))

	if err := w.store.UpdateJobStatus(ctx, job.ID, history.JobStatusSubmitting, ""); err != nil {
		logger.Error("failed to mark job submitting", logging.Error(err))
		return false
	}

	if err := w.submitter.Submit(ctx, *job); err != nil {
		status := services.JobFailureStatus(err)
		logger.Error("render job submission failed",
			logging.Error(err),
			logging.String("status", string(status)))
		if updateErr := w.store.UpdateJobStatus(ctx, job.ID, status, err.Error()); updateErr != nil {
			logger.Error("failed to record job failure", logging.Error(updateErr))
		}
		if w.notifier != nil {
			_ = w.notifier.NotifyError(ctx, err, "render submission")
		}
		return false
	}

	if err := w.store.UpdateJobStatus(ctx, job.ID, history.JobStatusSubmitted, ""); err != nil {
		logger.Error("failed to mark job submitted", logging.Error(err))
		return false
	}
	logger.Info("render job submitted", logging.Int("cameras", len(job.Cameras)))
	if w.notifier != nil {
		_ = w.notifier.NotifyRenderSubmitted(ctx, job.Take)
	}
	return true
}
