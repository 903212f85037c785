package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// create a new instance of the health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.db != nil {
		pctx, cancel := context.WithTimeout(ctx.Request.Context(), 500*time.Millisecond)
		defer cancel()

		if err := h.db.Ping(pctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready"})
			return
		}
	}

	ctx.JSON(200, gin.H{"status": "ready"})
}
