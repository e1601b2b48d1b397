package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type absenceWriter interface {
	Create(ctx context.Context, absence *models.TeacherAbsence) error
}

// AbsenceService records leave that the availability filter reads.
type AbsenceService struct {
	teachers  teacherReader
	repo      absenceWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAbsenceService constructs the service.
func NewAbsenceService(teachers teacherReader, repo absenceWriter, validate *validator.Validate, logger *zap.Logger) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceService{teachers: teachers, repo: repo, validator: validate, logger: logger}
}

// Record stores an absence. Records default to pending until the leave workflow approves them.
func (s *AbsenceService) Record(ctx context.Context, teacherID string, req dto.CreateAbsenceRequest) (*models.TeacherAbsence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	date, err := daytime.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	if req.Recurrence != nil && *req.Recurrence != "" {
		if err := models.ValidateRecurrence(*req.Recurrence); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "recurrence must be a valid RRULE")
		}
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		return nil, mapLookupError(err, "teacher")
	}

	absence := &models.TeacherAbsence{
		TeacherID:   teacherID,
		AbsenceDate: date,
		Status:      models.AbsenceStatus(req.Status),
		Recurrence:  req.Recurrence,
		Reason:      req.Reason,
	}
	if err := s.repo.Create(ctx, absence); err != nil {
		return nil, storageError(err, "failed to record absence")
	}
	s.logger.Info("absence recorded",
		zap.String("absence_id", absence.ID),
		zap.String("teacher_id", teacherID),
		zap.String("status", string(absence.Status)))
	return absence, nil
}
