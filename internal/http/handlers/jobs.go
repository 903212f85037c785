package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/domain/job"
	"github.com/writersinn/taskhub/internal/http/middlewares"
	"github.com/writersinn/taskhub/internal/repo/postgres"
	"github.com/writersinn/taskhub/internal/utils"
)

// AdminJobsRepo is the operator's window into the notification queue:
// jobs that exhausted their retries stay failed until someone requeues them.
type AdminJobsRepo interface {
	List(ctx context.Context, status *string, limit int) ([]job.Job, error)
	GetByID(ctx context.Context, id string) (job.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (job.Job, error)
	Retry(ctx context.Context, id string) error
	RetryManyFailed(ctx context.Context, limit int) (int64, error)
}

type AdminJobsHandler struct {
	repo AdminJobsRepo
}

func NewAdminJobsHandler(repo AdminJobsRepo) *AdminJobsHandler {
	return &AdminJobsHandler{repo: repo}
}

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n, err := strconv.Atoi(s)

	if err != nil {
		return fallback
	}

	return n
}

// GET /admin/jobs?status=failed&limit=50
// GET /admin/jobs?key=assignment:assigned:<id>
func (h *AdminJobsHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// an idempotency key pins exactly one job; answer the point lookup directly
	if key := ctx.Query("key"); key != "" {
		j, err := h.repo.GetByIdempotencyKey(cctx, key)

		if err != nil {
			if errors.Is(err, job.ErrJobNotFound) {
				RespondNotFound(ctx, "Job not found")
				return
			}

			RespondInternal(ctx, "Could not fetch job")
			return
		}

		ctx.JSON(http.StatusOK, gin.H{"count": 1, "items": []job.Job{j}})
		return
	}

	limit := parseIntDefault(ctx.Query("limit"), 20)

	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	var statusPtr *string

	if s := ctx.Query("status"); s != "" {
		statusPtr = &s
	}

	items, err := h.repo.List(cctx, statusPtr, limit)

	if err != nil {
		RespondInternal(ctx, "Could not list jobs")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// GET /admin/jobs/:id
func (h *AdminJobsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxJobID, id)

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}

		RespondInternal(ctx, "Could not fetch job")
		return
	}

	ctx.JSON(http.StatusOK, j)
}

// POST /admin/jobs/:id/retry
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxJobID, id)

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Retry(cctx, id)

	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			RespondNotFound(ctx, "Job not found")
		case errors.Is(err, postgres.ErrJobNotFailed):
			RespondConflict(ctx, "job_not_failed", "Only failed jobs can be retried")
		default:
			RespondInternal(ctx, "Could not retry job")
		}
		return
	}

	actor, _ := middlewares.EmailFromContext(ctx)
	slog.InfoContext(ctx.Request.Context(), "admin requeued job", "job_id", id, "admin", actor)

	ctx.JSON(http.StatusOK, gin.H{
		"jobId":  id,
		"status": "pending",
	})
}

// POST /admin/jobs/reprocess-dead?limit=50
func (h *AdminJobsHandler) ReprocessDead(ctx *gin.Context) {
	limit := 50

	if limitStr := ctx.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)

		if err != nil {
			RespondBadRequest(ctx, "limit must be a number", nil)
			return
		}
		limit = n
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	n, err := h.repo.RetryManyFailed(cctx, limit)

	if err != nil {
		RespondInternal(ctx, "Could not reprocess dead jobs")
		return
	}

	actor, _ := middlewares.EmailFromContext(ctx)
	slog.InfoContext(ctx.Request.Context(), "admin reprocessed dead jobs", "requeued", n, "admin", actor)

	ctx.JSON(http.StatusOK, gin.H{"requeued": n})
}
