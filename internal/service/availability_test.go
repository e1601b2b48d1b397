package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
)

type availabilityFixture struct {
	teachers *teacherDirectoryStub
	absences *absenceStub
	store    *memoryStore
	prefs    *preferenceStub
	filter   *AvailabilityFilter
}

func newAvailabilityFixture(profiles ...models.TeacherProfile) *availabilityFixture {
	f := &availabilityFixture{
		teachers: &teacherDirectoryStub{profiles: profiles},
		absences: &absenceStub{},
		store:    newMemoryStore(),
		prefs:    &preferenceStub{prefs: map[string]models.TeacherPreference{}},
	}
	f.filter = NewAvailabilityFilter(f.teachers, f.absences, f.store, f.prefs, zap.NewNop(), AvailabilityConfig{DailyCap: 3, WeeklyCap: 12})
	return f
}

func slot(start, end string) AvailabilityQuery {
	return AvailabilityQuery{Date: june10, Window: daytime.Window{Start: daytime.MustParse(start), End: daytime.MustParse(end)}}
}

func ids(profiles []models.TeacherProfile) []string {
	result := make([]string, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, p.ID)
	}
	return result
}

func TestAvailabilityScenarioAbsentAndOverlapExcluded(t *testing.T) {
	f := newAvailabilityFixture(
		profile("teacher-a", "Ani", nil, nil),
		profile("teacher-b", "Budi", nil, nil),
		profile("teacher-c", "Citra", nil, nil),
	)
	f.absences.items = []models.TeacherAbsence{{ID: "abs-1", TeacherID: "teacher-a", AbsenceDate: june10, Status: models.AbsenceStatusApproved}}
	f.store.put(committed("sub-b", "teacher-b", june10, "08:30", "09:30"))

	available, err := f.filter.Find(context.Background(), slot("09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-c"}, ids(available))
}

func TestAvailabilityAbsenceCoversWholeDay(t *testing.T) {
	f := newAvailabilityFixture(profile("teacher-a", "Ani", nil, nil), profile("teacher-c", "Citra", nil, nil))
	f.absences.items = []models.TeacherAbsence{
		{ID: "abs-1", TeacherID: "teacher-a", AbsenceDate: june10, Status: models.AbsenceStatusApproved},
		{ID: "abs-2", TeacherID: "teacher-c", AbsenceDate: june10, Status: models.AbsenceStatusPending},
	}

	for _, window := range [][2]string{{"07:00", "08:00"}, {"12:00", "13:00"}, {"15:00", "16:30"}} {
		available, err := f.filter.Find(context.Background(), slot(window[0], window[1]))
		require.NoError(t, err)
		assert.Equal(t, []string{"teacher-c"}, ids(available), "window %v", window)
	}
}

func TestAvailabilityRecurringAbsence(t *testing.T) {
	f := newAvailabilityFixture(profile("teacher-a", "Ani", nil, nil), profile("teacher-c", "Citra", nil, nil))
	anchor := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	f.absences.items = []models.TeacherAbsence{
		{ID: "abs-1", TeacherID: "teacher-a", AbsenceDate: anchor, Status: models.AbsenceStatusApproved, Recurrence: strPtr("FREQ=WEEKLY;BYDAY=TU")},
		{ID: "abs-2", TeacherID: "teacher-c", AbsenceDate: anchor, Status: models.AbsenceStatusApproved, Recurrence: strPtr("FREQ=WEEKLY;BYDAY=FR")},
	}

	available, err := f.filter.Find(context.Background(), slot("09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-c"}, ids(available))
}

func TestAvailabilityUnreadableRecurrenceTreatedAsAbsent(t *testing.T) {
	f := newAvailabilityFixture(profile("teacher-a", "Ani", nil, nil), profile("teacher-c", "Citra", nil, nil))
	f.absences.items = []models.TeacherAbsence{{
		ID: "abs-1", TeacherID: "teacher-a", AbsenceDate: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		Status: models.AbsenceStatusApproved, Recurrence: strPtr("FREQ=SOMETIMES"),
	}}

	available, err := f.filter.Find(context.Background(), slot("09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-c"}, ids(available))
}

func TestAvailabilityOverlapVersusTouching(t *testing.T) {
	cases := []struct {
		name      string
		busy      [2]string
		available bool
	}{
		{name: "overlap at start", busy: [2]string{"08:30", "09:30"}, available: false},
		{name: "overlap at end", busy: [2]string{"09:45", "11:00"}, available: false},
		{name: "contains", busy: [2]string{"08:00", "11:00"}, available: false},
		{name: "inside", busy: [2]string{"09:15", "09:45"}, available: false},
		{name: "touches before", busy: [2]string{"08:00", "09:00"}, available: true},
		{name: "touches after", busy: [2]string{"10:00", "11:00"}, available: true},
		{name: "disjoint", busy: [2]string{"13:00", "14:00"}, available: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAvailabilityFixture(profile("teacher-b", "Budi", nil, nil))
			f.store.put(committed("sub-b", "teacher-b", june10, tc.busy[0], tc.busy[1]))

			available, err := f.filter.Find(context.Background(), slot("09:00", "10:00"))
			require.NoError(t, err)
			assert.Equal(t, tc.available, len(available) == 1)
		})
	}
}

func TestAvailabilityIgnoresOtherDaysAndDeclined(t *testing.T) {
	f := newAvailabilityFixture(profile("teacher-b", "Budi", nil, nil))
	f.store.put(committed("sub-1", "teacher-b", june10.AddDate(0, 0, 1), "09:00", "10:00"))
	declined := committed("sub-2", "teacher-b", june10, "09:00", "10:00")
	declined.Status = models.SubstitutionStatusDeclined
	f.store.put(declined)

	available, err := f.filter.Find(context.Background(), slot("09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-b"}, ids(available))
}

func TestAvailabilityDailyCap(t *testing.T) {
	f := newAvailabilityFixture(profile("teacher-b", "Budi", nil, nil))
	f.store.put(committed("sub-1", "teacher-b", june10, "07:00", "08:00"))
	f.store.put(committed("sub-2", "teacher-b", june10, "11:00", "12:00"))

	available, err := f.filter.Find(context.Background(), slot("09:00", "10:00"))
	require.NoError(t, err)
	assert.Len(t, available, 1, "two confirmed substitutions keep the teacher eligible")

	third := committed("sub-3", "teacher-b", june10, "13:00", "14:00")
	third.Status = models.SubstitutionStatusCompleted
	f.store.put(third)

	available, err = f.filter.Find(context.Background(), slot("09:00", "10:00"))
	require.NoError(t, err)
	assert.Empty(t, available, "three substitutions reach the daily cap")

	relaxed := slot("09:00", "10:00")
	relaxed.IgnoreCaps = true
	available, err = f.filter.Find(context.Background(), relaxed)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestAvailabilityPreferenceCaps(t *testing.T) {
	f := newAvailabilityFixture(profile("teacher-b", "Budi", nil, nil), profile("teacher-c", "Citra", nil, nil))
	f.prefs.prefs["teacher-b"] = models.TeacherPreference{TeacherID: "teacher-b", MaxSubstitutionsPerDay: 1}
	f.prefs.prefs["teacher-c"] = models.TeacherPreference{TeacherID: "teacher-c", MaxSubstitutionsPerWeek: 2}
	f.store.put(committed("sub-1", "teacher-b", june10, "07:00", "08:00"))
	monday := june10.AddDate(0, 0, -1)
	f.store.put(committed("sub-2", "teacher-c", monday, "07:00", "08:00"))
	f.store.put(committed("sub-3", "teacher-c", monday, "08:00", "09:00"))
	// Previous week does not count.
	f.store.put(committed("sub-4", "teacher-c", monday.AddDate(0, 0, -1), "08:00", "09:00"))

	available, err := f.filter.Find(context.Background(), slot("09:00", "10:00"))
	require.NoError(t, err)
	assert.Empty(t, available)

	delete(f.prefs.prefs, "teacher-c")
	available, err = f.filter.Find(context.Background(), slot("09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-c"}, ids(available))
}

func TestAvailabilityExclusionsAndOrdering(t *testing.T) {
	inactive := profile("teacher-z", "Zaki", nil, nil)
	inactive.Active = false
	f := newAvailabilityFixture(
		profile("teacher-3", "Citra", nil, nil),
		profile("teacher-2", "Agus", nil, nil),
		profile("teacher-1", "Agus", nil, nil),
		profile("teacher-a", "Ani", nil, nil),
		inactive,
	)

	query := slot("09:00", "10:00")
	query.ExcludeTeacherIDs = []string{"teacher-a"}
	first, err := f.filter.Find(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-1", "teacher-2", "teacher-3"}, ids(first))

	second, err := f.filter.Find(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
