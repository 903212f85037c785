package worker

import (
	"context"
	"errors"
	"time"

	"github.com/writersinn/taskhub/internal/domain/job"
)

// claim grabs the next ready job, or nil when the queue is empty.
func (w *Worker) claim(ctx context.Context) (*job.Job, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &j, nil
}

// runOne executes a claimed job and settles its final state. Delivery is
// at-least-once: an ack that fails after a successful send means the job
// runs again, so handlers must tolerate duplicates.
func (w *Worker) runOne(ctx context.Context, j job.Job) {
	err := w.exec.Execute(ctx, j)

	if err != nil {
		w.handleFailure(ctx, j, err)
		return
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		w.log.Error("mark done failed", "job_id", j.ID, "error", err)
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
	}
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	// attempts counts completed tries; this failure is attempt j.Attempts+1
	if j.Attempts+1 >= j.MaxAttempts {
		w.log.Error("job exhausted retries",
			"job_id", j.ID, "type", j.Type, "attempts", j.Attempts+1, "error", execErr)

		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed errored", "job_id", j.ID, "error", err)
		}
		return
	}

	delay := ExponentialBackoff(j.Attempts)
	runAt := time.Now().UTC().Add(delay)

	w.log.Warn("job failed, rescheduling",
		"job_id", j.ID, "type", j.Type, "attempt", j.Attempts+1, "retry_in", delay, "error", execErr)

	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("reschedule failed", "job_id", j.ID, "error", err)
	}
}
