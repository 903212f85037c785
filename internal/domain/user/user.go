package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Subscribed   bool      `json:"subscribed"`
	Balance      float64   `json:"balance"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"` // never expose hash in JSON, empty for magic-link users
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("user not found")
var ErrEmailTaken = errors.New("email already registered")

type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,min=2"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"required,min=7"`
}

// A factory to build a User from the incoming DTO

func NewFromCreateRequest(req CreateUserRequest) User {
	now := time.Now().UTC()

	return User{
		ID:         uuid.NewString(),
		Email:      req.Email,
		Name:       req.Name,
		Phone:      req.Phone,
		Subscribed: false,
		Balance:    0,
		Role:       "user",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
