package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cognis/internal/pkg/response"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db Pinger
}

func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "database unreachable")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}
