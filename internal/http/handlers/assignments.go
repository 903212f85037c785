package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/writersinn/taskhub/internal/cache"
	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/domain/assignment"
	"github.com/writersinn/taskhub/internal/domain/job"
	"github.com/writersinn/taskhub/internal/domain/task"
	"github.com/writersinn/taskhub/internal/domain/user"
	"github.com/writersinn/taskhub/internal/jobs"
	"github.com/writersinn/taskhub/internal/repo/postgres"
	"github.com/writersinn/taskhub/internal/uploads"
	"github.com/writersinn/taskhub/internal/utils"
)

type AssignmentStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, userID, taskID string) (assignment.Assignment, error)
	SubmitTx(ctx context.Context, tx pgx.Tx, assignmentID, userID, filePath string) (assignment.Assignment, error)
	ListByUser(ctx context.Context, userID string) ([]assignment.WithTask, error)
}

type AssignmentUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	CreditBalanceTx(ctx context.Context, tx pgx.Tx, userID string, amount float64) (float64, error)
}

type AssignmentTaskReader interface {
	GetByID(ctx context.Context, id string) (task.Task, error)
}

type JobsCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error)
}

type AssignmentsHandler struct {
	repo     AssignmentStore
	users    AssignmentUserStore
	tasks    AssignmentTaskReader
	jobsRepo JobsCreator
	store    uploads.Store
	listing  *cache.Cache
}

func NewAssignmentsHandler(repo AssignmentStore, users AssignmentUserStore, tasks AssignmentTaskReader, jobsRepo JobsCreator, store uploads.Store, listing *cache.Cache) *AssignmentsHandler {
	return &AssignmentsHandler{
		repo:     repo,
		users:    users,
		tasks:    tasks,
		jobsRepo: jobsRepo,
		store:    store,
		listing:  listing,
	}
}

type TakeTaskRequest struct {
	Email  string `json:"email" binding:"required,email"`
	TaskID string `json:"taskId" binding:"required"`
}

// TakeTask claims a task for a writer. The eligibility gate, the pending
// insert and the notification enqueue all commit together.
func (h *AssignmentsHandler) TakeTask(ctx *gin.Context) {
	var req TakeTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !utils.IsUUID(req.TaskID) {
		RespondBadRequest(ctx, "taskId must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not take task")
		return
	}

	t, err := h.tasks.GetByID(cctx, req.TaskID)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not take task")
		return
	}

	tx, err := h.repo.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not take task")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	a, err := h.repo.CreateTx(cctx, tx, u.ID, t.ID)

	if err != nil {
		switch {
		case errors.Is(err, assignment.ErrCooldownActive):
			RespondError(ctx, http.StatusForbidden, "cooldown_active",
				"You already have a task in progress or finished one recently. Try again later.", nil)
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		default:
			RespondInternal(ctx, "Could not take task")
			fmt.Println(err)
		}
		return
	}

	payload := jobs.TaskAssignedPayload{
		AssignmentID:    a.ID,
		TaskID:          t.ID,
		Email:           u.Email,
		Name:            u.Name,
		TaskTitle:       t.Title,
		TaskDescription: t.Description,
		Deadline:        a.Deadline,
		RequestedAt:     time.Now().UTC(),
	}

	raw, err := jobs.EncodePayload(jobs.JobTaskAssigned, payload)

	if err != nil {
		RespondInternal(ctx, "Could not take task")
		return
	}

	// idempotency key
	key := "assignment:assigned:" + a.ID
	uid := u.ID

	_, err = h.jobsRepo.CreateTx(cctx, tx, job.CreateRequest{
		Type:           string(jobs.JobTaskAssigned),
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    10,
		IdempotencyKey: &key,
		UserID:         &uid,
	})

	if err != nil {
		// if duplicate idempotency key inside same tx, treat as OK (rare, but safe)
		if !postgres.IsUniqueViolation(err) {
			RespondInternal(ctx, "Could not take task")
			fmt.Println(err)
			return
		}
	}

	// Commit once
	err = tx.Commit(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not take task")
		fmt.Println(err)
		return
	}

	// the claimed task must vanish from this user's availability listing
	if h.listing != nil {
		h.listing.Delete(utils.BuildAvailableTasksCacheKey(u.ID))
	}

	ctx.JSON(http.StatusCreated, a)
}

// SubmitTask completes an assignment: the status flip, the balance credit
// and the receipt enqueue ride one transaction, so a crash cannot credit
// without completing or complete without crediting.
func (h *AssignmentsHandler) SubmitTask(ctx *gin.Context) {
	email := ctx.PostForm("email")
	assignmentID := ctx.PostForm("assignmentId")

	if email == "" || assignmentID == "" {
		RespondBadRequest(ctx, "email and assignmentId are required", nil)
		return
	}

	if !utils.IsUUID(assignmentID) {
		RespondBadRequest(ctx, "assignmentId must be a valid UUID", nil)
		return
	}

	fileHeader, err := ctx.FormFile("file")

	if err != nil || fileHeader == nil {
		RespondBadRequest(ctx, "a completed work file is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not submit task")
		return
	}

	f, err := fileHeader.Open()

	if err != nil {
		RespondBadRequest(ctx, "Could not read uploaded file", nil)
		return
	}
	defer f.Close()

	saveCtx, cancelSave := config.WithTimeout(10 * time.Second)
	defer cancelSave()

	filePath, err := h.store.Save(saveCtx, fileHeader.Filename, f)

	if err != nil {
		RespondInternal(ctx, "Could not store uploaded file")
		return
	}

	tx, err := h.repo.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not submit task")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	a, err := h.repo.SubmitTx(cctx, tx, assignmentID, u.ID, filePath)

	if err != nil {
		switch {
		case errors.Is(err, assignment.ErrNotFound):
			RespondNotFound(ctx, "Assignment not found")
		case errors.Is(err, assignment.ErrNotOwner):
			RespondForbidden(ctx, "You can only submit your own assignment")
		case errors.Is(err, assignment.ErrAlreadySubmitted):
			RespondConflict(ctx, "already_submitted", "This assignment was already submitted.")
		default:
			RespondInternal(ctx, "Could not submit task")
			fmt.Println(err)
		}
		return
	}

	t, err := h.tasks.GetByID(cctx, a.TaskID)

	if err != nil {
		RespondInternal(ctx, "Could not submit task")
		return
	}

	newBalance, err := h.users.CreditBalanceTx(cctx, tx, u.ID, t.Price)

	if err != nil {
		RespondInternal(ctx, "Could not submit task")
		fmt.Println(err)
		return
	}

	payload := jobs.SubmissionReceivedPayload{
		AssignmentID: a.ID,
		TaskID:       t.ID,
		Email:        u.Email,
		Name:         u.Name,
		TaskTitle:    t.Title,
		Amount:       t.Price,
		NewBalance:   newBalance,
		RequestedAt:  time.Now().UTC(),
	}

	raw, err := jobs.EncodePayload(jobs.JobSubmissionReceived, payload)

	if err != nil {
		RespondInternal(ctx, "Could not submit task")
		return
	}

	key := "assignment:submitted:" + a.ID
	uid := u.ID

	_, err = h.jobsRepo.CreateTx(cctx, tx, job.CreateRequest{
		Type:           string(jobs.JobSubmissionReceived),
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    10,
		IdempotencyKey: &key,
		UserID:         &uid,
	})

	if err != nil {
		if !postgres.IsUniqueViolation(err) {
			RespondInternal(ctx, "Could not submit task")
			fmt.Println(err)
			return
		}
	}

	err = tx.Commit(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not submit task")
		fmt.Println(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"assignment": a,
		"credited":   t.Price,
		"balance":    newBalance,
	})
}

// ListForUser returns the user's assignments with task detail.
func (h *AssignmentsHandler) ListForUser(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not list assignments")
		return
	}

	items, err := h.repo.ListByUser(cctx, u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not list assignments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count":       len(items),
		"assignments": items,
	})
}
