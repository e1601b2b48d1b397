package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type prefRepoMock struct {
	stored *models.TeacherPreference
	err    error
}

func (m *prefRepoMock) GetByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) (*models.TeacherPreference, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stored == nil {
		return nil, nil
	}
	cp := *m.stored
	return &cp, nil
}

func (m *prefRepoMock) Upsert(ctx context.Context, pref *models.TeacherPreference) error {
	if pref.ID == "" {
		pref.ID = "pref-1"
	}
	cp := *pref
	m.stored = &cp
	return nil
}

func newPreferenceService(repo *prefRepoMock) *TeacherPreferenceService {
	teachers := &teacherDirectoryStub{profiles: []models.TeacherProfile{profile("teacher-1", "Ani", nil, nil)}}
	return NewTeacherPreferenceService(teachers, repo, validator.New(), zap.NewNop(), 3, 12)
}

func TestTeacherPreferenceServiceGetDefault(t *testing.T) {
	service := newPreferenceService(&prefRepoMock{})

	caps, err := service.Get(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, &dto.SubstitutionCaps{TeacherID: "teacher-1", DailyCap: 3, WeeklyCap: 12}, caps)
}

func TestTeacherPreferenceServiceUpsert(t *testing.T) {
	repo := &prefRepoMock{}
	service := newPreferenceService(repo)

	caps, err := service.Upsert(context.Background(), "teacher-1", dto.UpsertCapsRequest{MaxSubstitutionsPerDay: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, caps.DailyCap)
	assert.Equal(t, 12, caps.WeeklyCap)
	assert.True(t, caps.Customised)
	require.NotNil(t, repo.stored)
	assert.Equal(t, "pref-1", repo.stored.ID)

	caps, err = service.Upsert(context.Background(), "teacher-1", dto.UpsertCapsRequest{MaxSubstitutionsPerWeek: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, caps.DailyCap)
	assert.Equal(t, 5, caps.WeeklyCap)
	assert.Equal(t, "pref-1", repo.stored.ID, "existing row is updated in place")
}

func TestTeacherPreferenceServiceValidation(t *testing.T) {
	service := newPreferenceService(&prefRepoMock{})

	_, err := service.Upsert(context.Background(), "teacher-1", dto.UpsertCapsRequest{MaxSubstitutionsPerDay: -1})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.Get(context.Background(), "ghost")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherPreferenceServiceStorageFailure(t *testing.T) {
	service := newPreferenceService(&prefRepoMock{err: driver.ErrBadConn})

	_, err := service.Get(context.Background(), "teacher-1")
	require.Error(t, err)
	assert.True(t, appErrors.IsRetryable(err))

	service = newPreferenceService(&prefRepoMock{err: errors.New("pq: relation \"teacher_preferences\" does not exist")})
	_, err = service.Get(context.Background(), "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.False(t, appErrors.IsRetryable(err))
}
