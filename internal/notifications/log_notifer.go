package notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) simulate(ctx context.Context) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}
	return nil
}

func (n *LogNotifier) SendTaskAssigned(ctx context.Context, in SendTaskAssignedInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	log.Printf("notification.task_assigned email=%s name=%s task=%s assignment=%s deadline=%s",
		in.Email, in.Name, in.TaskID, in.AssignmentID, in.Deadline.Format(time.RFC3339),
	)
	return nil
}

func (n *LogNotifier) SendSubmissionReceived(ctx context.Context, in SendSubmissionReceivedInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	log.Printf("notification.submission_received email=%s name=%s task=%s assignment=%s amount=%.2f",
		in.Email, in.Name, in.TaskID, in.AssignmentID, in.Amount,
	)
	return nil
}

func (n *LogNotifier) SendLoginLink(ctx context.Context, in SendLoginLinkInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	log.Printf("notification.login_link email=%s name=%s url=%s expires=%s",
		in.Email, in.Name, in.VerifyURL, in.ExpiresAt.Format(time.RFC3339),
	)
	return nil
}
