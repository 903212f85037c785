package handlers

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/domain/user"
	"github.com/writersinn/taskhub/internal/http/middlewares"
)

type SubscribedStore interface {
	ListSubscribed(ctx context.Context) ([]user.User, error)
	DeleteSubscribed(ctx context.Context) (int64, error)
}

type ExportHandler struct {
	users SubscribedStore
}

func NewExportHandler(users SubscribedStore) *ExportHandler {
	return &ExportHandler{users: users}
}

// ExportSubscribed streams subscribed users as CSV. Read-only; the purge is
// a separate endpoint with its own confirmation.
func (h *ExportHandler) ExportSubscribed(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	users, err := h.users.ListSubscribed(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not export users")
		return
	}

	filename := "subscribed-users-" + time.Now().UTC().Format("2006-01-02") + ".csv"

	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Status(http.StatusOK)

	w := csv.NewWriter(ctx.Writer)

	_ = w.Write([]string{"id", "name", "email", "phone", "balance"})

	for _, u := range users {
		_ = w.Write([]string{
			u.ID,
			u.Name,
			u.Email,
			u.Phone,
			strconv.FormatFloat(u.Balance, 'f', 2, 64),
		})
	}

	w.Flush()
}

// PurgeSubscribed deletes every subscribed user. Requires ?confirm=true so
// an exploratory DELETE cannot wipe the list.
func (h *ExportHandler) PurgeSubscribed(ctx *gin.Context) {
	if ctx.Query("confirm") != "true" {
		RespondBadRequest(ctx, "pass confirm=true to delete subscribed users", nil)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	deleted, err := h.users.DeleteSubscribed(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not delete users")
		return
	}

	actor, _ := middlewares.EmailFromContext(ctx)
	slog.InfoContext(ctx.Request.Context(), "admin purged subscribed users", "deleted", deleted, "admin", actor)

	ctx.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
