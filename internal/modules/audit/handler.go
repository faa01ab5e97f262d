package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cognis/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	protected.GET("/audit/logs", adminOnly, h.Logs)
}

func (h *Handler) Logs(c *gin.Context) {
	logs, err := h.service.Recent(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to load audit logs")
		return
	}
	response.Success(c, http.StatusOK, logs)
}
