package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/writersinn/taskhub/internal/cache"
	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/domain/task"
	"github.com/writersinn/taskhub/internal/domain/user"
	"github.com/writersinn/taskhub/internal/uploads"
	"github.com/writersinn/taskhub/internal/utils"
)

type TaskStore interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	List(ctx context.Context) ([]task.Task, error)
	ListAvailableForUser(ctx context.Context, userID string) ([]task.Task, error)
}

type TaskUserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type TasksHandler struct {
	repo    TaskStore
	users   TaskUserReader
	store   uploads.Store
	listing *cache.Cache
}

func NewTasksHandler(repo TaskStore, users TaskUserReader, store uploads.Store, listing *cache.Cache) *TasksHandler {
	return &TasksHandler{
		repo:    repo,
		users:   users,
		store:   store,
		listing: listing,
	}
}

func (h *TasksHandler) List(ctx *gin.Context) {
	key := utils.BuildTasksListCacheKey()

	if h.listing != nil {
		if v, ok := h.listing.Get(key); ok {
			if tasks, ok := v.([]task.Task); ok {
				ctx.Header("X-Cache", "HIT")
				ctx.JSON(http.StatusOK, gin.H{"count": len(tasks), "tasks": tasks})
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	tasks, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	if h.listing != nil {
		h.listing.Set(key, tasks)
	}

	ctx.Header("X-Cache", "MISS")
	ctx.JSON(http.StatusOK, gin.H{"count": len(tasks), "tasks": tasks})
}

// Available lists tasks the user has never been assigned. A task the user
// completed stays gone; one another writer took stays visible to this user.
func (h *TasksHandler) Available(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not list available tasks")
		return
	}

	// per-user listing rides the same short TTL cache as the catalog;
	// take-task drops the entry so a fresh claim never shows stale rows
	key := utils.BuildAvailableTasksCacheKey(u.ID)

	if h.listing != nil {
		if v, ok := h.listing.Get(key); ok {
			if tasks, ok := v.([]task.Task); ok {
				ctx.Header("X-Cache", "HIT")
				ctx.JSON(http.StatusOK, gin.H{"count": len(tasks), "tasks": tasks})
				return
			}
		}
	}

	tasks, err := h.repo.ListAvailableForUser(cctx, u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not list available tasks")
		return
	}

	if h.listing != nil {
		h.listing.Set(key, tasks)
	}

	ctx.Header("X-Cache", "MISS")
	ctx.JSON(http.StatusOK, gin.H{"count": len(tasks), "tasks": tasks})
}

// AddTask is admin-only. The brief arrives as multipart form fields plus an
// optional attachment stored through the uploads store.
func (h *TasksHandler) AddTask(ctx *gin.Context) {
	var req task.CreateTaskRequest

	if !BindForm(ctx, &req) {
		return
	}

	filePath := ""

	fileHeader, err := ctx.FormFile("file")

	if err == nil && fileHeader != nil {
		f, err := fileHeader.Open()

		if err != nil {
			RespondBadRequest(ctx, "Could not read attached file", nil)
			return
		}
		defer f.Close()

		saveCtx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		filePath, err = h.store.Save(saveCtx, fileHeader.Filename, f)

		if err != nil {
			RespondInternal(ctx, "Could not store attached file")
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	t, err := h.repo.Create(cctx, task.NewFromCreateRequest(req, filePath))

	if err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	// the public catalog changed; drop the cached listing
	if h.listing != nil {
		h.listing.Delete(utils.BuildTasksListCacheKey())
	}

	ctx.JSON(http.StatusCreated, t)
}
