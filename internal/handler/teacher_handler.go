package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type performanceService interface {
	GetTeacherPerformance(ctx context.Context, teacherID string, periodMonths int) (*models.TeacherPerformance, error)
	GetSubstitutionStats(ctx context.Context, teacherID string) (*models.SubstitutionStats, error)
}

type capsService interface {
	Get(ctx context.Context, teacherID string) (*dto.SubstitutionCaps, error)
	Upsert(ctx context.Context, teacherID string, req dto.UpsertCapsRequest) (*dto.SubstitutionCaps, error)
}

type absenceService interface {
	Record(ctx context.Context, teacherID string, req dto.CreateAbsenceRequest) (*models.TeacherAbsence, error)
}

// TeacherHandler serves the per-teacher substitution endpoints.
type TeacherHandler struct {
	performance performanceService
	caps        capsService
	absences    absenceService
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(performance performanceService, caps capsService, absences absenceService) *TeacherHandler {
	return &TeacherHandler{performance: performance, caps: caps, absences: absences}
}

// Performance godoc
// @Summary Substitution reliability for a teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Param months query int false "Look-back window in months (default 6)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/substitution-performance [get]
func (h *TeacherHandler) Performance(c *gin.Context) {
	months := 0
	if raw := c.Query("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 60 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "months must be between 1 and 60"))
			return
		}
		months = parsed
	}
	perf, err := h.performance.GetTeacherPerformance(c.Request.Context(), c.Param("id"), months)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perf, nil)
}

// Stats godoc
// @Summary All-time substitution counts for a teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/substitution-stats [get]
func (h *TeacherHandler) Stats(c *gin.Context) {
	stats, err := h.performance.GetSubstitutionStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// GetCaps godoc
// @Summary Effective substitution caps for a teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/substitution-caps [get]
func (h *TeacherHandler) GetCaps(c *gin.Context) {
	caps, err := h.caps.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, caps, nil)
}

// UpsertCaps godoc
// @Summary Override substitution caps for a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.UpsertCapsRequest true "Caps, zero restores the default"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/substitution-caps [put]
func (h *TeacherHandler) UpsertCaps(c *gin.Context) {
	var req dto.UpsertCapsRequest
	if !bindJSON(c, &req, "invalid caps payload") {
		return
	}
	caps, err := h.caps.Upsert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, caps, nil)
}

// RecordAbsence godoc
// @Summary Record leave for a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.CreateAbsenceRequest true "Absence"
// @Success 201 {object} response.Envelope
// @Router /teachers/{id}/absences [post]
func (h *TeacherHandler) RecordAbsence(c *gin.Context) {
	var req dto.CreateAbsenceRequest
	if !bindJSON(c, &req, "invalid absence payload") {
		return
	}
	absence, err := h.absences.Record(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, absence)
}
