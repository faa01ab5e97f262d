package cases

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cognis/internal/middleware"
	"cognis/internal/pkg/response"
	"cognis/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the case endpoints on an authenticated group.
// adminOnly guards creation.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	g := protected.Group("/cases")
	{
		g.POST("/create", adminOnly, h.Create)
		g.GET("/list", h.List)
	}
}

// Create accepts a JSON body, or the legacy ?case_name= query parameter.
func (h *Handler) Create(c *gin.Context) {
	var req CreateCaseRequest
	if name := c.Query("case_name"); name != "" && c.Request.ContentLength <= 0 {
		req.Title = name
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body", validator.Details(err))
		return
	}

	if details := validator.Validate(req); details != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid case", details)
		return
	}

	user, _ := middleware.CurrentUser(c)
	created, err := h.service.Create(c.Request.Context(), user, req)
	if err != nil {
		if errors.Is(err, ErrEmptyTitle) {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "Case title is required")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to create case")
		return
	}

	response.Success(c, http.StatusCreated, created)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to list cases")
		return
	}
	response.Success(c, http.StatusOK, list)
}
