package jobs

import "time"

// TaskAssignedPayload carries everything the worker needs to mail the task
// instructions. Kept denormalized so delivery survives later task edits.
type TaskAssignedPayload struct {
	AssignmentID    string    `json:"assignmentId"`
	TaskID          string    `json:"taskId"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	TaskTitle       string    `json:"taskTitle"`
	TaskDescription string    `json:"taskDescription"`
	Deadline        time.Time `json:"deadline"`
	RequestedAt     time.Time `json:"requestedAt"`
}

// SubmissionReceivedPayload confirms a submission and the credited amount.
type SubmissionReceivedPayload struct {
	AssignmentID string    `json:"assignmentId"`
	TaskID       string    `json:"taskId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	TaskTitle    string    `json:"taskTitle"`
	Amount       float64   `json:"amount"`
	NewBalance   float64   `json:"newBalance"`
	RequestedAt  time.Time `json:"requestedAt"`
}

// LoginMagicLinkPayload carries the one-time login URL.
type LoginMagicLinkPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	VerifyURL   string    `json:"verifyUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	RequestedAt time.Time `json:"requestedAt"`
}
