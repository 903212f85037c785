package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/domain/user"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	UpdateSubscription(ctx context.Context, email string, subscribed bool) (user.User, error)
}

type UsersHandler struct {
	repo UserStore
}

func NewUsersHandler(repo UserStore) *UsersHandler {
	return &UsersHandler{repo: repo}
}

func (h *UsersHandler) AddUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.repo.Create(cctx, user.NewFromCreateRequest(req))

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already registered.", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *UsersHandler) GetByEmail(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	users, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count": len(users),
		"users": users,
	})
}

type MarkSubscribedRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Subscribed *bool  `json:"subscribed"` // defaults to true when omitted
}

func (h *UsersHandler) MarkSubscribed(ctx *gin.Context) {
	var req MarkSubscribedRequest

	if !BindJSON(ctx, &req) {
		return
	}

	subscribed := true
	if req.Subscribed != nil {
		subscribed = *req.Subscribed
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.UpdateSubscription(cctx, req.Email, subscribed)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not update subscription")
		return
	}

	ctx.JSON(http.StatusOK, u)
}
