package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/link-validator/internal/cleanser"
	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/validator"
)

// BatchValidator validates URL batches.
type BatchValidator interface {
	ValidateBatch(ctx context.Context, urls []string) (*domain.BatchResult, error)
}

// SectionCleanser strips invalid links from sections.
type SectionCleanser interface {
	CleanWithReport(ctx context.Context, sections cleanser.Sections) (cleanser.Sections, *cleanser.Report, error)
}

// ValidateRequest is the body of POST /api/v1/validate.
type ValidateRequest struct {
	URLs []string `json:"urls"`
}

// CleanseRequest is the body of POST /api/v1/cleanse.
type CleanseRequest struct {
	Sections cleanser.Sections `json:"sections"`
}

// CleanseResponse is returned by POST /api/v1/cleanse.
type CleanseResponse struct {
	Sections cleanser.Sections   `json:"sections"`
	Removed  []domain.LinkSpan   `json:"removed"`
	Checked  int                 `json:"checked"`
	Batch    *domain.BatchResult `json:"batch,omitempty"`
}

// Handler serves the validation API.
type Handler struct {
	validator BatchValidator
	cleanser  SectionCleanser
	log       logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(v BatchValidator, c SectionCleanser, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{validator: v, cleanser: c, log: log}
}

// RegisterRoutes mounts the v1 API. A non-empty jwtSecret protects it.
func (h *Handler) RegisterRoutes(router *gin.Engine, jwtSecret string) {
	v1 := router.Group("/api/v1")
	if jwtSecret != "" {
		v1.Use(JWTMiddleware(jwtSecret))
	}

	v1.POST("/validate", h.Validate)
	v1.POST("/cleanse", h.Cleanse)
}

// Validate handles POST /api/v1/validate.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "body must be {\"urls\": [string, ...]}")
		return
	}
	if req.URLs == nil {
		respondBadRequest(c, "urls is required")
		return
	}

	result, err := h.validator.ValidateBatch(c.Request.Context(), req.URLs)
	if err != nil {
		h.respondValidationError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cleanse handles POST /api/v1/cleanse.
func (h *Handler) Cleanse(c *gin.Context) {
	var req CleanseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "body must be {\"sections\": {name: {\"content\": string, ...}}}")
		return
	}
	if req.Sections == nil {
		respondBadRequest(c, "sections is required")
		return
	}

	sections, report, err := h.cleanser.CleanWithReport(c.Request.Context(), req.Sections)
	if err != nil {
		h.respondValidationError(c, err)
		return
	}

	removed := report.Removed
	if removed == nil {
		removed = []domain.LinkSpan{}
	}

	c.JSON(http.StatusOK, CleanseResponse{
		Sections: sections,
		Removed:  removed,
		Checked:  report.Checked,
		Batch:    report.Batch,
	})
}

func (h *Handler) respondValidationError(c *gin.Context, err error) {
	if errors.Is(err, validator.ErrBatchTooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	logger.FromContext(c.Request.Context(), h.log).Error("Validation failed", logger.Error(err))
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, "validation failed")
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}
