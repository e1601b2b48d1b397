package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type substitutionServiceMock struct {
	availabilityReq dto.AvailabilityRequest
	bestReq         dto.BestSubstituteRequest
	assignReq       dto.AssignSubstitutionRequest
	completeReq     dto.CompleteSubstitutionRequest
	listQuery       dto.SubstitutionListQuery
	lastID          string

	teachers []models.Teacher
	best     *dto.BestSubstituteResult
	auto     *dto.AutoAssignResult
	sub      *models.TeacherSubstitution
	err      error
}

func (m *substitutionServiceMock) FindAvailable(ctx context.Context, req dto.AvailabilityRequest) ([]models.Teacher, error) {
	m.availabilityReq = req
	return m.teachers, m.err
}

func (m *substitutionServiceMock) FindBest(ctx context.Context, req dto.BestSubstituteRequest) (*dto.BestSubstituteResult, error) {
	m.bestReq = req
	return m.best, m.err
}

func (m *substitutionServiceMock) Create(ctx context.Context, req dto.CreateSubstitutionRequest) (*models.TeacherSubstitution, error) {
	return m.sub, m.err
}

func (m *substitutionServiceMock) Get(ctx context.Context, id string) (*models.TeacherSubstitution, error) {
	m.lastID = id
	return m.sub, m.err
}

func (m *substitutionServiceMock) List(ctx context.Context, query dto.SubstitutionListQuery) ([]models.TeacherSubstitution, *models.Pagination, error) {
	m.listQuery = query
	if m.err != nil {
		return nil, nil, m.err
	}
	return []models.TeacherSubstitution{*m.sub}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *substitutionServiceMock) AutoAssign(ctx context.Context, id string) (*dto.AutoAssignResult, error) {
	m.lastID = id
	return m.auto, m.err
}

func (m *substitutionServiceMock) Assign(ctx context.Context, id string, req dto.AssignSubstitutionRequest) (*models.TeacherSubstitution, error) {
	m.lastID = id
	m.assignReq = req
	return m.sub, m.err
}

func (m *substitutionServiceMock) Decline(ctx context.Context, id string, req dto.DeclineSubstitutionRequest) (*models.TeacherSubstitution, error) {
	m.lastID = id
	return m.sub, m.err
}

func (m *substitutionServiceMock) Complete(ctx context.Context, id string, req dto.CompleteSubstitutionRequest) (*models.TeacherSubstitution, error) {
	m.lastID = id
	m.completeReq = req
	return m.sub, m.err
}

func (m *substitutionServiceMock) Rematch(ctx context.Context, id string) (*models.TeacherSubstitution, error) {
	m.lastID = id
	return m.sub, m.err
}

func newSubstitutionRouter(svc *substitutionServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSubstitutionHandler(svc)
	r := gin.New()
	r.GET("/substitutes/available", h.Available)
	r.POST("/substitutes/best", h.Best)
	r.POST("/substitutions", h.Create)
	r.GET("/substitutions", h.List)
	r.GET("/substitutions/:id", h.Get)
	r.POST("/substitutions/:id/auto-assign", h.AutoAssign)
	r.POST("/substitutions/:id/assign", h.Assign)
	r.POST("/substitutions/:id/decline", h.Decline)
	r.POST("/substitutions/:id/complete", h.Complete)
	r.POST("/substitutions/:id/rematch", h.Rematch)
	return r
}

func perform(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
	Meta       map[string]any     `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSubstitutionHandlerAvailableBindsQuery(t *testing.T) {
	svc := &substitutionServiceMock{teachers: []models.Teacher{{ID: "teacher-c", FullName: "Citra"}}}
	w := perform(newSubstitutionRouter(svc), http.MethodGet,
		"/substitutes/available?date=2025-06-10&start_time=09:00&end_time=10:00&subject_id=math&exclude_teacher_id=teacher-a", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-06-10", svc.availabilityReq.Date)
	assert.Equal(t, "09:00", svc.availabilityReq.StartTime)
	require.NotNil(t, svc.availabilityReq.SubjectID)
	assert.Equal(t, "math", *svc.availabilityReq.SubjectID)
	assert.Nil(t, svc.availabilityReq.ClassID)
	require.NotNil(t, svc.availabilityReq.ExcludeTeacherID)
	assert.Equal(t, "teacher-a", *svc.availabilityReq.ExcludeTeacherID)

	env := decode(t, w)
	assert.EqualValues(t, 1, env.Meta["count"])
}

func TestSubstitutionHandlerBestReturnsRecommendation(t *testing.T) {
	svc := &substitutionServiceMock{best: &dto.BestSubstituteResult{
		PrimarySubstitute: &dto.CandidateScore{Teacher: models.Teacher{ID: "teacher-c"}, ConfidenceScore: 0.85},
		BackupSubstitutes: []dto.CandidateScore{},
		EmergencyOptions:  []dto.CandidateScore{},
		MatchingStrategy:  dto.StrategyOptimal,
		ConfidenceScore:   0.85,
	}}
	body := []byte(`{"date":"2025-06-10","start_time":"09:00","end_time":"10:00","class_id":"10A","backup_count":2}`)
	w := perform(newSubstitutionRouter(svc), http.MethodPost, "/substitutes/best", body)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.bestReq.BackupCount)
	assert.Equal(t, 2, *svc.bestReq.BackupCount)
	assert.Equal(t, "10A", *svc.bestReq.ClassID)

	var result dto.BestSubstituteResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, dto.StrategyOptimal, result.MatchingStrategy)
	assert.Equal(t, "teacher-c", result.PrimarySubstitute.Teacher.ID)
}

func TestSubstitutionHandlerRejectsMalformedJSON(t *testing.T) {
	svc := &substitutionServiceMock{}
	w := perform(newSubstitutionRouter(svc), http.MethodPost, "/substitutes/best", []byte(`{"date":`))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestSubstitutionHandlerCreateAndRematchReturnCreated(t *testing.T) {
	svc := &substitutionServiceMock{sub: &models.TeacherSubstitution{ID: "sub-1", Status: models.SubstitutionStatusPending}}
	r := newSubstitutionRouter(svc)

	w := perform(r, http.MethodPost, "/substitutions", []byte(`{"date":"2025-06-10","start_time":"09:00","end_time":"10:00"}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = perform(r, http.MethodPost, "/substitutions/sub-0/rematch", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sub-0", svc.lastID)
}

func TestSubstitutionHandlerListPassesFilters(t *testing.T) {
	svc := &substitutionServiceMock{sub: &models.TeacherSubstitution{ID: "sub-1"}}
	w := perform(newSubstitutionRouter(svc), http.MethodGet, "/substitutions?status=pending&date=2025-06-10&page=2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.SubstitutionListQuery{Status: "pending", Date: "2025-06-10", Page: 2}, svc.listQuery)
	assert.Equal(t, 1, decode(t, w).Pagination.TotalCount)
}

func TestSubstitutionHandlerAutoAssignWithoutCandidate(t *testing.T) {
	svc := &substitutionServiceMock{auto: &dto.AutoAssignResult{
		Substitution:     &models.TeacherSubstitution{ID: "sub-1", Status: models.SubstitutionStatusPending},
		MatchingStrategy: dto.StrategyEmergency,
	}}
	w := perform(newSubstitutionRouter(svc), http.MethodPost, "/substitutions/sub-1/auto-assign", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var result dto.AutoAssignResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Nil(t, result.AssignedTeacher)
	assert.Equal(t, dto.StrategyEmergency, result.MatchingStrategy)
}

func TestSubstitutionHandlerMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		retry  bool
	}{
		{name: "not found", err: appErrors.Clone(appErrors.ErrNotFound, "substitution not found"), status: http.StatusNotFound},
		{name: "resolved", err: appErrors.Clone(appErrors.ErrAlreadyResolved, "substitution is confirmed"), status: http.StatusConflict},
		{name: "conflict", err: appErrors.Clone(appErrors.ErrConflict, "overlap"), status: http.StatusConflict},
		{name: "persistence", err: appErrors.Persistence(assert.AnError, "failed to assign substitute"), status: http.StatusServiceUnavailable, retry: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &substitutionServiceMock{err: tc.err}
			w := perform(newSubstitutionRouter(svc), http.MethodPost, "/substitutions/sub-1/auto-assign", nil)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.retry, w.Header().Get("Retry-After") != "")
		})
	}
}

func TestSubstitutionHandlerAssignEmergency(t *testing.T) {
	svc := &substitutionServiceMock{sub: &models.TeacherSubstitution{ID: "sub-1", Status: models.SubstitutionStatusConfirmed, IsEmergency: true}}
	w := perform(newSubstitutionRouter(svc), http.MethodPost, "/substitutions/sub-1/assign", []byte(`{"teacher_id":"teacher-d","emergency":true}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.AssignSubstitutionRequest{TeacherID: "teacher-d", Emergency: true}, svc.assignReq)
}

func TestSubstitutionHandlerCompleteAcceptsEmptyBody(t *testing.T) {
	svc := &substitutionServiceMock{sub: &models.TeacherSubstitution{ID: "sub-1", Status: models.SubstitutionStatusCompleted}}
	r := newSubstitutionRouter(svc)

	w := perform(r, http.MethodPost, "/substitutions/sub-1/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.completeReq.Rating)

	w = perform(r, http.MethodPost, "/substitutions/sub-1/complete", []byte(`{"rating":4}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.completeReq.Rating)
	assert.Equal(t, 4, *svc.completeReq.Rating)

	w = perform(r, http.MethodPost, "/substitutions/sub-1/decline", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
