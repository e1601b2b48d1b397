package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type teacherPreferenceRepo interface {
	GetByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) (*models.TeacherPreference, error)
	Upsert(ctx context.Context, pref *models.TeacherPreference) error
}

// TeacherPreferenceService manages per-teacher substitution caps.
type TeacherPreferenceService struct {
	teachers      teacherReader
	repo          teacherPreferenceRepo
	validator     *validator.Validate
	logger        *zap.Logger
	defaultDaily  int
	defaultWeekly int
}

// NewTeacherPreferenceService builds the service. The defaults are the configured caps.
func NewTeacherPreferenceService(teachers teacherReader, repo teacherPreferenceRepo, validate *validator.Validate, logger *zap.Logger, defaultDaily, defaultWeekly int) *TeacherPreferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherPreferenceService{
		teachers:      teachers,
		repo:          repo,
		validator:     validate,
		logger:        logger,
		defaultDaily:  defaultDaily,
		defaultWeekly: defaultWeekly,
	}
}

// Get returns the effective caps for a teacher.
func (s *TeacherPreferenceService) Get(ctx context.Context, teacherID string) (*dto.SubstitutionCaps, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		return nil, mapLookupError(err, "teacher")
	}
	pref, err := s.repo.GetByTeacher(ctx, nil, teacherID)
	if err != nil {
		return nil, storageError(err, "failed to load teacher preferences")
	}
	return s.caps(teacherID, pref), nil
}

// Upsert stores caps for a teacher.
func (s *TeacherPreferenceService) Upsert(ctx context.Context, teacherID string, req dto.UpsertCapsRequest) (*dto.SubstitutionCaps, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid caps payload")
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		return nil, mapLookupError(err, "teacher")
	}

	payload := &models.TeacherPreference{
		TeacherID:               teacherID,
		MaxSubstitutionsPerDay:  req.MaxSubstitutionsPerDay,
		MaxSubstitutionsPerWeek: req.MaxSubstitutionsPerWeek,
	}
	existing, err := s.repo.GetByTeacher(ctx, nil, teacherID)
	if err != nil {
		return nil, storageError(err, "failed to load teacher preferences")
	}
	if existing != nil {
		payload.ID = existing.ID
		payload.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Upsert(ctx, payload); err != nil {
		return nil, storageError(err, "failed to store teacher preferences")
	}
	s.logger.Info("substitution caps updated",
		zap.String("teacher_id", teacherID),
		zap.Int("daily", req.MaxSubstitutionsPerDay),
		zap.Int("weekly", req.MaxSubstitutionsPerWeek))
	return s.caps(teacherID, payload), nil
}

func (s *TeacherPreferenceService) caps(teacherID string, pref *models.TeacherPreference) *dto.SubstitutionCaps {
	daily, weekly := pref.Caps(s.defaultDaily, s.defaultWeekly)
	customised := pref != nil && (pref.MaxSubstitutionsPerDay > 0 || pref.MaxSubstitutionsPerWeek > 0)
	return &dto.SubstitutionCaps{TeacherID: teacherID, DailyCap: daily, WeeklyCap: weekly, Customised: customised}
}
