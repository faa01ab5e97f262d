package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cognis/internal/middleware"
	"cognis/internal/pkg/response"
	"cognis/internal/pkg/validator"
)

// Handler manages the HTTP side of accounts and login.
type Handler struct {
	service    *Service
	loginLimit gin.HandlerFunc
}

// NewHandler wires the service. loginLimit guards POST /auth/login and may be nil.
func NewHandler(service *Service, loginLimit gin.HandlerFunc) *Handler {
	return &Handler{service: service, loginLimit: loginLimit}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		if h.loginLimit != nil {
			authGroup.POST("/login", h.loginLimit, h.Login)
		} else {
			authGroup.POST("/login", h.Login)
		}
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/users/me", h.GetMe)
}

// Signup creates an investigator account.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body", validator.Details(err))
		return
	}

	user, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrAdminSignup):
			response.Error(c, http.StatusForbidden, response.CodeForbidden,
				"You can only register as an investigator. Admin accounts must be created internally.")
		case errors.Is(err, ErrInvalidRole):
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "Unknown role")
		case errors.Is(err, ErrUserExists):
			response.Error(c, http.StatusConflict, response.CodeUserExists, "Username or email already registered")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to create account")
		}
		return
	}

	response.Success(c, http.StatusCreated, toUserPublic(user))
}

// Login exchanges username and password for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "username and password are required")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthenticated, "Invalid credentials")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Login failed")
		return
	}

	response.Success(c, http.StatusOK, result)
}

func (h *Handler) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthenticated, "Could not validate credentials")
		return
	}
	response.Success(c, http.StatusOK, toUserPublic(user))
}
