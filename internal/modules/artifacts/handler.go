package artifacts

import (
	"errors"
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

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/artifacts/list/:file_id", h.List)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), c.Param("file_id"), c.Query("q"))
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeFileNotFound, "UFDR file not found")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to list artifacts")
		return
	}
	response.Success(c, http.StatusOK, list)
}
