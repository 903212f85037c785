package notifications

import (
	"context"
	"time"
)

type SendTaskAssignedInput struct {
	Email           string
	Name            string
	TaskID          string
	AssignmentID    string
	TaskTitle       string
	TaskDescription string
	Deadline        time.Time
}

type SendSubmissionReceivedInput struct {
	Email        string
	Name         string
	TaskID       string
	AssignmentID string
	TaskTitle    string
	Amount       float64
	NewBalance   float64
}

type SendLoginLinkInput struct {
	Email     string
	Name      string
	VerifyURL string
	ExpiresAt time.Time
}

type Notifier interface {
	SendTaskAssigned(ctx context.Context, input SendTaskAssignedInput) error
	SendSubmissionReceived(ctx context.Context, input SendSubmissionReceivedInput) error
	SendLoginLink(ctx context.Context, input SendLoginLinkInput) error
}
