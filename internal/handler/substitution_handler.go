package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type substitutionService interface {
	FindAvailable(ctx context.Context, req dto.AvailabilityRequest) ([]models.Teacher, error)
	FindBest(ctx context.Context, req dto.BestSubstituteRequest) (*dto.BestSubstituteResult, error)
	Create(ctx context.Context, req dto.CreateSubstitutionRequest) (*models.TeacherSubstitution, error)
	Get(ctx context.Context, id string) (*models.TeacherSubstitution, error)
	List(ctx context.Context, query dto.SubstitutionListQuery) ([]models.TeacherSubstitution, *models.Pagination, error)
	AutoAssign(ctx context.Context, id string) (*dto.AutoAssignResult, error)
	Assign(ctx context.Context, id string, req dto.AssignSubstitutionRequest) (*models.TeacherSubstitution, error)
	Decline(ctx context.Context, id string, req dto.DeclineSubstitutionRequest) (*models.TeacherSubstitution, error)
	Complete(ctx context.Context, id string, req dto.CompleteSubstitutionRequest) (*models.TeacherSubstitution, error)
	Rematch(ctx context.Context, id string) (*models.TeacherSubstitution, error)
}

// SubstitutionHandler exposes substitute matching and the vacancy lifecycle.
type SubstitutionHandler struct {
	service substitutionService
}

// NewSubstitutionHandler constructs the handler.
func NewSubstitutionHandler(service substitutionService) *SubstitutionHandler {
	return &SubstitutionHandler{service: service}
}

// Available godoc
// @Summary List teachers free for a lesson window
// @Tags Substitutes
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start_time query string true "Start time (HH:MM)"
// @Param end_time query string true "End time (HH:MM)"
// @Param subject_id query string false "Subject ID"
// @Param class_id query string false "Class ID"
// @Param exclude_teacher_id query string false "Teacher to leave out, usually the absent one"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /substitutes/available [get]
func (h *SubstitutionHandler) Available(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability query"))
		return
	}
	teachers, err := h.service.FindAvailable(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil, map[string]interface{}{"count": len(teachers)})
}

// Best godoc
// @Summary Rank substitutes for a lesson window without assigning
// @Tags Substitutes
// @Accept json
// @Produce json
// @Param payload body dto.BestSubstituteRequest true "Lesson window"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /substitutes/best [post]
func (h *SubstitutionHandler) Best(c *gin.Context) {
	var req dto.BestSubstituteRequest
	if !bindJSON(c, &req, "invalid substitute request") {
		return
	}
	result, err := h.service.FindBest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Open a substitution vacancy
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubstitutionRequest true "Vacancy"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /substitutions [post]
func (h *SubstitutionHandler) Create(c *gin.Context) {
	var req dto.CreateSubstitutionRequest
	if !bindJSON(c, &req, "invalid substitution payload") {
		return
	}
	sub, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// List godoc
// @Summary List substitutions
// @Tags Substitutions
// @Produce json
// @Param teacher_id query string false "Original or substitute teacher"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param status query string false "pending, confirmed, completed or declined"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /substitutions [get]
func (h *SubstitutionHandler) List(c *gin.Context) {
	var query dto.SubstitutionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid list query"))
		return
	}
	subs, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, pagination)
}

// Get godoc
// @Summary Get a substitution
// @Tags Substitutions
// @Produce json
// @Param id path string true "Substitution ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /substitutions/{id} [get]
func (h *SubstitutionHandler) Get(c *gin.Context) {
	sub, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// AutoAssign godoc
// @Summary Assign the best available substitute
// @Description Leaves the vacancy pending and returns emergency options when nobody qualifies.
// @Tags Substitutions
// @Produce json
// @Param id path string true "Substitution ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /substitutions/{id}/auto-assign [post]
func (h *SubstitutionHandler) AutoAssign(c *gin.Context) {
	result, err := h.service.AutoAssign(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Assign godoc
// @Summary Confirm a substitute chosen by a person
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param id path string true "Substitution ID"
// @Param payload body dto.AssignSubstitutionRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitutions/{id}/assign [post]
func (h *SubstitutionHandler) Assign(c *gin.Context) {
	var req dto.AssignSubstitutionRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	sub, err := h.service.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Decline godoc
// @Summary Record that the substitute declined
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param id path string true "Substitution ID"
// @Param payload body dto.DeclineSubstitutionRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitutions/{id}/decline [post]
func (h *SubstitutionHandler) Decline(c *gin.Context) {
	var req dto.DeclineSubstitutionRequest
	if !bindOptionalJSON(c, &req, "invalid decline payload") {
		return
	}
	sub, err := h.service.Decline(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Complete godoc
// @Summary Complete a confirmed substitution
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param id path string true "Substitution ID"
// @Param payload body dto.CompleteSubstitutionRequest false "Rating 1-5"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitutions/{id}/complete [post]
func (h *SubstitutionHandler) Complete(c *gin.Context) {
	var req dto.CompleteSubstitutionRequest
	if !bindOptionalJSON(c, &req, "invalid completion payload") {
		return
	}
	sub, err := h.service.Complete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Rematch godoc
// @Summary Reopen a declined substitution as a new vacancy
// @Tags Substitutions
// @Produce json
// @Param id path string true "Declined substitution ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitutions/{id}/rematch [post]
func (h *SubstitutionHandler) Rematch(c *gin.Context) {
	sub, err := h.service.Rematch(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dest interface{}, message string) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dest, message)
}
