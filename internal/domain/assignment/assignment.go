package assignment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

type Assignment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TaskID    string    `json:"taskId"`
	Status    Status    `json:"status"`
	Deadline  time.Time `json:"deadline"`
	FilePath  *string   `json:"filePath,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("assignment not found")

// the user still has a pending assignment or completed one inside the cooldown window
var ErrCooldownActive = errors.New("cooldown active")

// submit-time errors
var ErrAlreadySubmitted = errors.New("assignment already submitted")
var ErrNotOwner = errors.New("assignment belongs to another user")

// New creates a pending assignment for the user/task pair.
// The deadline is fixed at creation time; it is recorded and surfaced
// but no expiry sweep acts on it.
func New(userID, taskID string, deadlineOffset time.Duration) Assignment {
	now := time.Now().UTC()

	return Assignment{
		ID:        uuid.NewString(),
		UserID:    userID,
		TaskID:    taskID,
		Status:    StatusPending,
		Deadline:  now.Add(deadlineOffset),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Blocks reports whether an existing assignment makes the user ineligible
// for a new one at "now". A pending assignment always blocks; a completed
// assignment blocks until the cooldown window since it was taken has passed.
func (a Assignment) Blocks(now time.Time, cooldown time.Duration) bool {
	switch a.Status {
	case StatusPending:
		return true
	case StatusCompleted:
		return now.Sub(a.CreatedAt) < cooldown
	default:
		return false
	}
}

// WithTask is the assignment merged with its task detail for list responses.
type WithTask struct {
	Assignment
	Task any `json:"task"`
}
