package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	FilePath    string    `json:"filePath"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("task not found")

// multipart form fields; the attachment itself arrives as a file part
type CreateTaskRequest struct {
	Title       string  `form:"title" binding:"required,min=3,max=160"`
	Description string  `form:"description" binding:"required,max=4000"`
	Price       float64 `form:"price" binding:"required,gt=0"`
}

func NewFromCreateRequest(req CreateTaskRequest, filePath string) Task {
	now := time.Now().UTC()

	return Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		FilePath:    filePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
