package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
)

var june10 = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func profile(id, name string, subjects, classes []string) models.TeacherProfile {
	p := models.TeacherProfile{
		Teacher:    models.Teacher{ID: id, FullName: name, Email: id + "@school.test", Active: true},
		SubjectIDs: map[string]struct{}{},
		ClassIDs:   map[string]struct{}{},
	}
	for _, s := range subjects {
		p.SubjectIDs[s] = struct{}{}
	}
	for _, c := range classes {
		p.ClassIDs[c] = struct{}{}
	}
	return p
}

func committed(id, teacherID string, date time.Time, start, end string) models.TeacherSubstitution {
	return models.TeacherSubstitution{
		ID:                  id,
		SubstituteTeacherID: strPtr(teacherID),
		SubstitutionDate:    date,
		StartTime:           daytime.MustParse(start),
		EndTime:             daytime.MustParse(end),
		Status:              models.SubstitutionStatusConfirmed,
		PriorityLevel:       models.PriorityNormal,
	}
}

func vacancy(id string, original *string, date time.Time, start, end string) models.TeacherSubstitution {
	return models.TeacherSubstitution{
		ID:                id,
		OriginalTeacherID: original,
		SubjectID:         strPtr("math"),
		ClassID:           strPtr("10A"),
		SubstitutionDate:  date,
		StartTime:         daytime.MustParse(start),
		EndTime:           daytime.MustParse(end),
		Status:            models.SubstitutionStatusPending,
		PriorityLevel:     models.PriorityNormal,
	}
}

type teacherDirectoryStub struct {
	profiles []models.TeacherProfile
	err      error
}

func (s *teacherDirectoryStub) ListActiveProfiles(ctx context.Context) ([]models.TeacherProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	var active []models.TeacherProfile
	for _, p := range s.profiles {
		if p.Active {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *teacherDirectoryStub) ListActiveIDs(ctx context.Context) ([]string, error) {
	profiles, err := s.ListActiveProfiles(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *teacherDirectoryStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	for _, p := range s.profiles {
		if p.ID == id {
			teacher := p.Teacher
			return &teacher, nil
		}
	}
	return nil, sql.ErrNoRows
}

type absenceStub struct {
	items []models.TeacherAbsence
	err   error
}

func (s *absenceStub) ListApprovedCandidates(ctx context.Context, date time.Time) ([]models.TeacherAbsence, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []models.TeacherAbsence
	for _, a := range s.items {
		if a.Status == models.AbsenceStatusApproved && !daytime.Date(a.AbsenceDate).After(daytime.Date(date)) {
			result = append(result, a)
		}
	}
	return result, nil
}

type preferenceStub struct {
	prefs map[string]models.TeacherPreference
}

func (s *preferenceStub) ListAll(ctx context.Context) (map[string]models.TeacherPreference, error) {
	result := make(map[string]models.TeacherPreference, len(s.prefs))
	for k, v := range s.prefs {
		result[k] = v
	}
	return result, nil
}

func (s *preferenceStub) GetByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) (*models.TeacherPreference, error) {
	if pref, ok := s.prefs[teacherID]; ok {
		return &pref, nil
	}
	return nil, nil
}

type subjectStub struct{ ids map[string]bool }

func (s subjectStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s.ids[id] {
		return &models.Subject{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type classStub struct{ ids map[string]bool }

func (s classStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if s.ids[id] {
		return &models.Class{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

// memoryStore keeps substitutions in memory and answers every query the matcher issues.
type memoryStore struct {
	mu      sync.Mutex
	subs    map[string]models.TeacherSubstitution
	seq     int
	elapsed []string

	createErr        error
	listErr          error
	assignErrs       map[string]error
	onLockTeacherDay func(teacherID string)
	lockedDays       []string
}

func newMemoryStore(subs ...models.TeacherSubstitution) *memoryStore {
	m := &memoryStore{subs: make(map[string]models.TeacherSubstitution), assignErrs: make(map[string]error)}
	for _, sub := range subs {
		m.put(sub)
	}
	return m
}

func (m *memoryStore) put(sub models.TeacherSubstitution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.SubstitutionDate = daytime.Date(sub.SubstitutionDate)
	m.subs[sub.ID] = sub
}

func (m *memoryStore) get(id string) models.TeacherSubstitution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[id]
}

func (m *memoryStore) all() []models.TeacherSubstitution {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.TeacherSubstitution, 0, len(m.subs))
	for _, sub := range m.subs {
		result = append(result, sub)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *memoryStore) Create(ctx context.Context, exec sqlx.ExtContext, sub *models.TeacherSubstitution) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	m.seq++
	if sub.ID == "" {
		sub.ID = fmt.Sprintf("sub-new-%d", m.seq)
	}
	m.mu.Unlock()
	sub.SubstitutionDate = daytime.Date(sub.SubstitutionDate)
	m.put(*sub)
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.TeacherSubstitution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sub, nil
}

func (m *memoryStore) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TeacherSubstitution, error) {
	return m.FindByID(ctx, id)
}

func (m *memoryStore) List(ctx context.Context, filter models.SubstitutionFilter) ([]models.TeacherSubstitution, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var result []models.TeacherSubstitution
	for _, sub := range m.all() {
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		if filter.Date != nil && !daytime.SameDay(sub.SubstitutionDate, *filter.Date) {
			continue
		}
		result = append(result, sub)
	}
	return result, len(result), nil
}

func (m *memoryStore) ListCommittedOnDate(ctx context.Context, date time.Time) ([]models.TeacherSubstitution, error) {
	var result []models.TeacherSubstitution
	for _, sub := range m.all() {
		if sub.SubstituteTeacherID != nil && isCommitted(sub) && daytime.SameDay(sub.SubstitutionDate, date) {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (m *memoryStore) CountCommittedByTeacher(ctx context.Context, from, to time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	for _, sub := range m.all() {
		if sub.SubstituteTeacherID != nil && isCommitted(sub) && inRange(sub.SubstitutionDate, from, to) {
			counts[*sub.SubstituteTeacherID]++
		}
	}
	return counts, nil
}

func (m *memoryStore) CountCommitted(ctx context.Context, exec sqlx.ExtContext, teacherID string, from, to time.Time) (int, error) {
	counts, _ := m.CountCommittedByTeacher(ctx, from, to)
	return counts[teacherID], nil
}

func (m *memoryStore) ListLiveForTeacherOnDate(ctx context.Context, exec sqlx.ExtContext, teacherID string, date time.Time) ([]models.TeacherSubstitution, error) {
	var result []models.TeacherSubstitution
	for _, sub := range m.all() {
		if sub.SubstituteTeacherID != nil && *sub.SubstituteTeacherID == teacherID &&
			sub.Status != models.SubstitutionStatusDeclined && daytime.SameDay(sub.SubstitutionDate, date) {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (m *memoryStore) LockTeacherDay(ctx context.Context, exec sqlx.ExtContext, teacherID string, date time.Time) error {
	m.mu.Lock()
	m.lockedDays = append(m.lockedDays, teacherID+":"+daytime.Date(date).Format(daytime.DateLayout))
	hook := m.onLockTeacherDay
	m.mu.Unlock()
	if hook != nil {
		hook(teacherID)
	}
	return nil
}

func (m *memoryStore) Assign(ctx context.Context, exec sqlx.ExtContext, update models.AssignmentUpdate) (bool, error) {
	if err := m.assignErrs[update.TeacherID]; err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[update.SubstitutionID]
	if !ok || sub.Status != models.SubstitutionStatusPending {
		return false, nil
	}
	teacherID := update.TeacherID
	confirmedAt := update.ConfirmedAt
	sub.SubstituteTeacherID = &teacherID
	sub.Status = models.SubstitutionStatusConfirmed
	sub.AutoAssigned = update.AutoAssigned
	sub.IsEmergency = sub.IsEmergency || update.IsEmergency
	sub.ConfirmedAt = &confirmedAt
	if update.Notes != nil {
		sub.Notes = update.Notes
	}
	m.subs[sub.ID] = sub
	return true, nil
}

func (m *memoryStore) Decline(ctx context.Context, exec sqlx.ExtContext, id string, reason *string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok || (sub.Status != models.SubstitutionStatusPending && sub.Status != models.SubstitutionStatusConfirmed) {
		return false, nil
	}
	sub.Status = models.SubstitutionStatusDeclined
	if reason != nil {
		sub.Notes = reason
	}
	m.subs[id] = sub
	return true, nil
}

func (m *memoryStore) Complete(ctx context.Context, exec sqlx.ExtContext, id string, rating *int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok || sub.Status != models.SubstitutionStatusConfirmed {
		return false, nil
	}
	sub.Status = models.SubstitutionStatusCompleted
	sub.Rating = rating
	sub.CompletedAt = &at
	m.subs[id] = sub
	return true, nil
}

func (m *memoryStore) CompleteElapsed(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	for _, sub := range m.all() {
		if sub.Status == models.SubstitutionStatusConfirmed && !sub.EndsAt().After(cutoff) {
			at := cutoff
			sub.Status = models.SubstitutionStatusCompleted
			sub.CompletedAt = &at
			m.put(sub)
			ids = append(ids, *sub.SubstituteTeacherID)
		}
	}
	return ids, nil
}

func (m *memoryStore) Aggregate(ctx context.Context, teacherID string, since *time.Time) (*models.SubstitutionAggregate, error) {
	agg := aggregateOf(m.all(), teacherID, since)
	return &agg, nil
}

func (m *memoryStore) AggregateMany(ctx context.Context, teacherIDs []string, since time.Time) (map[string]models.SubstitutionAggregate, error) {
	result := make(map[string]models.SubstitutionAggregate)
	records := m.all()
	for _, id := range teacherIDs {
		if agg := aggregateOf(records, id, &since); agg.Total > 0 {
			result[id] = agg
		}
	}
	return result, nil
}

func aggregateOf(records []models.TeacherSubstitution, teacherID string, since *time.Time) models.SubstitutionAggregate {
	agg := models.SubstitutionAggregate{TeacherID: teacherID}
	var ratingSum, rated int
	for _, sub := range records {
		if sub.SubstituteTeacherID == nil || *sub.SubstituteTeacherID != teacherID {
			continue
		}
		if since != nil && sub.SubstitutionDate.Before(daytime.Date(*since)) {
			continue
		}
		agg.Total++
		switch sub.Status {
		case models.SubstitutionStatusPending:
			agg.Pending++
		case models.SubstitutionStatusConfirmed:
			agg.Confirmed++
		case models.SubstitutionStatusCompleted:
			agg.Completed++
			if sub.Rating != nil {
				ratingSum += *sub.Rating
				rated++
			}
		case models.SubstitutionStatusDeclined:
			agg.Declined++
		}
		if sub.IsEmergency {
			agg.EmergencyCount++
		}
		if sub.AutoAssigned {
			agg.AutoAssigned++
		}
	}
	if rated > 0 {
		avg := float64(ratingSum) / float64(rated)
		agg.AverageRating = &avg
	}
	return agg
}

func isCommitted(sub models.TeacherSubstitution) bool {
	return sub.Status == models.SubstitutionStatusConfirmed || sub.Status == models.SubstitutionStatusCompleted
}

func inRange(date, from, to time.Time) bool {
	d := daytime.Date(date)
	return !d.Before(daytime.Date(from)) && d.Before(daytime.Date(to))
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
