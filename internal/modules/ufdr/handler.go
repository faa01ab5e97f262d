package ufdr

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cognis/internal/middleware"
	"cognis/internal/pkg/response"
)

// multipartOverhead leaves room for form boundaries and the case_id field.
const multipartOverhead = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type UploadResponse struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	Hash            string    `json:"hash"`
	CaseID          *string   `json:"case_id"`
	SizeBytes       int64     `json:"size_bytes"`
	UploadedAt      time.Time `json:"uploaded_at"`
	DemoArtifactIDs []string  `json:"demo_artifact_ids"`
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/ufdr")
	{
		g.POST("/upload", h.Upload)
		g.GET("/list", h.List)
		g.DELETE("/:file_id", h.Delete)
	}
}

// Upload accepts a multipart "file" and an optional "case_id".
func (h *Handler) Upload(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.maxSize+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, ErrFileTooLarge.Error())
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "multipart field \"file\" is required")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to read upload")
		return
	}
	defer src.Close()

	in := IngestInput{
		Filename: fileHeader.Filename,
		Content:  src,
		Size:     fileHeader.Size,
	}
	if caseID := strings.TrimSpace(c.PostForm("case_id")); caseID != "" {
		in.CaseID = &caseID
	}
	if user != nil {
		uid := user.ID
		in.UploadedBy = &uid
	}

	res, err := h.service.Ingest(c.Request.Context(), in)
	if err != nil {
		writeError(c, err, "Upload failed")
		return
	}

	response.Success(c, http.StatusCreated, UploadResponse{
		ID:              res.File.ID,
		Filename:        res.File.Filename,
		Hash:            res.File.ContentHash,
		CaseID:          res.File.CaseID,
		SizeBytes:       res.File.SizeBytes,
		UploadedAt:      res.File.UploadedAt,
		DemoArtifactIDs: res.ArtifactIDs,
	})
}

func (h *Handler) List(c *gin.Context) {
	files, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to list files")
		return
	}
	response.Success(c, http.StatusOK, files)
}

func (h *Handler) Delete(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	if err := h.service.Delete(c.Request.Context(), user, c.Param("file_id")); err != nil {
		writeError(c, err, "Failed to delete file")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": c.Param("file_id")})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrDuplicateContent):
		response.Error(c, http.StatusConflict, response.CodeDuplicateContent, "File already uploaded (duplicate hash)")
	case errors.Is(err, ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
	case errors.Is(err, ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, err.Error())
	case errors.Is(err, ErrCaseNotFound):
		response.Error(c, http.StatusNotFound, response.CodeCaseNotFound, err.Error())
	case errors.Is(err, ErrFileNotFound):
		response.Error(c, http.StatusNotFound, response.CodeFileNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, fallback)
	}
}
