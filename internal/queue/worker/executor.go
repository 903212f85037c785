package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/writersinn/taskhub/internal/domain/job"
	"github.com/writersinn/taskhub/internal/jobs"
	"github.com/writersinn/taskhub/internal/notifications"
	"github.com/writersinn/taskhub/internal/observability"
)

// Executor maps a claimed job onto a notifier call.
type Executor struct {
	notifier notifications.Notifier
	prom     *observability.Prom
}

func NewExecutor(notifier notifications.Notifier, prom *observability.Prom) *Executor {
	return &Executor{notifier: notifier, prom: prom}
}

func (e *Executor) Execute(ctx context.Context, j job.Job) error {
	start := time.Now()

	if e.prom != nil {
		e.prom.JobsInFlight.Inc()
		defer e.prom.JobsInFlight.Dec()
	}

	err := e.dispatch(ctx, j)

	if e.prom != nil {
		result := "done"
		if err != nil {
			result = "retry"
			if j.Attempts+1 >= j.MaxAttempts {
				result = "failed"
			}
		}
		e.prom.JobDuration.WithLabelValues(j.Type, result).Observe(time.Since(start).Seconds())
		e.prom.JobResults.WithLabelValues(j.Type, result).Inc()
	}

	return err
}

func (e *Executor) dispatch(ctx context.Context, j job.Job) error {
	t := jobs.JobType(j.Type)

	decoded, err := jobs.DecodePayload(t, j.Payload)

	if err != nil {
		// a payload that never decodes will never succeed; surface it loudly
		return fmt.Errorf("decode job %s: %w", j.ID, err)
	}

	if err := jobs.ValidatePayload(t, decoded); err != nil {
		return fmt.Errorf("validate job %s: %w", j.ID, err)
	}

	switch p := decoded.(type) {
	case jobs.TaskAssignedPayload:
		return e.notifier.SendTaskAssigned(ctx, notifications.SendTaskAssignedInput{
			Email:           p.Email,
			Name:            p.Name,
			TaskID:          p.TaskID,
			AssignmentID:    p.AssignmentID,
			TaskTitle:       p.TaskTitle,
			TaskDescription: p.TaskDescription,
			Deadline:        p.Deadline,
		})

	case jobs.SubmissionReceivedPayload:
		return e.notifier.SendSubmissionReceived(ctx, notifications.SendSubmissionReceivedInput{
			Email:        p.Email,
			Name:         p.Name,
			TaskID:       p.TaskID,
			AssignmentID: p.AssignmentID,
			TaskTitle:    p.TaskTitle,
			Amount:       p.Amount,
			NewBalance:   p.NewBalance,
		})

	case jobs.LoginMagicLinkPayload:
		return e.notifier.SendLoginLink(ctx, notifications.SendLoginLinkInput{
			Email:     p.Email,
			Name:      p.Name,
			VerifyURL: p.VerifyURL,
			ExpiresAt: p.ExpiresAt,
		})

	default:
		return errors.New("no handler for job type " + j.Type)
	}
}
