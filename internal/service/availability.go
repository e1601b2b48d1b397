package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
)

type availabilityTeacherReader interface {
	ListActiveProfiles(ctx context.Context) ([]models.TeacherProfile, error)
}

type availabilityAbsenceReader interface {
	ListApprovedCandidates(ctx context.Context, date time.Time) ([]models.TeacherAbsence, error)
}

type availabilitySubstitutionReader interface {
	ListCommittedOnDate(ctx context.Context, date time.Time) ([]models.TeacherSubstitution, error)
	CountCommittedByTeacher(ctx context.Context, from, to time.Time) (map[string]int, error)
}

type availabilityPreferenceReader interface {
	ListAll(ctx context.Context) (map[string]models.TeacherPreference, error)
}

// AvailabilityQuery is the slot a substitute is needed for.
type AvailabilityQuery struct {
	Date              time.Time
	Window            daytime.Window
	SubjectID         *string
	ClassID           *string
	ExcludeTeacherIDs []string
	// IgnoreCaps keeps teachers that already reached their workload caps.
	IgnoreCaps bool
}

// Criteria extracts the scoring criteria of the query.
func (q AvailabilityQuery) Criteria() Criteria {
	return Criteria{SubjectID: q.SubjectID, ClassID: q.ClassID}
}

// AvailabilityConfig carries the default workload caps.
type AvailabilityConfig struct {
	DailyCap  int
	WeeklyCap int
}

// AvailabilityFilter narrows the active staff down to teachers free for a slot.
type AvailabilityFilter struct {
	teachers      availabilityTeacherReader
	absences      availabilityAbsenceReader
	substitutions availabilitySubstitutionReader
	preferences   availabilityPreferenceReader
	logger        *zap.Logger
	dailyCap      int
	weeklyCap     int
}

// NewAvailabilityFilter wires the filter.
func NewAvailabilityFilter(
	teachers availabilityTeacherReader,
	absences availabilityAbsenceReader,
	substitutions availabilitySubstitutionReader,
	preferences availabilityPreferenceReader,
	logger *zap.Logger,
	cfg AvailabilityConfig,
) *AvailabilityFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DailyCap <= 0 {
		cfg.DailyCap = 3
	}
	if cfg.WeeklyCap <= 0 {
		cfg.WeeklyCap = 12
	}
	return &AvailabilityFilter{
		teachers:      teachers,
		absences:      absences,
		substitutions: substitutions,
		preferences:   preferences,
		logger:        logger,
		dailyCap:      cfg.DailyCap,
		weeklyCap:     cfg.WeeklyCap,
	}
}

// Find returns the teachers free for the slot, ordered by name then id. It never writes.
func (f *AvailabilityFilter) Find(ctx context.Context, q AvailabilityQuery) ([]models.TeacherProfile, error) {
	date := daytime.Date(q.Date)

	profiles, err := f.teachers.ListActiveProfiles(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(q.ExcludeTeacherIDs))
	for _, id := range q.ExcludeTeacherIDs {
		excluded[id] = struct{}{}
	}

	absent, err := f.absentOn(ctx, date)
	if err != nil {
		return nil, err
	}

	committed, err := f.substitutions.ListCommittedOnDate(ctx, date)
	if err != nil {
		return nil, err
	}
	byTeacher := make(map[string][]models.TeacherSubstitution)
	for _, sub := range committed {
		if sub.SubstituteTeacherID == nil {
			continue
		}
		byTeacher[*sub.SubstituteTeacherID] = append(byTeacher[*sub.SubstituteTeacherID], sub)
	}

	var weekly map[string]int
	var prefs map[string]models.TeacherPreference
	if !q.IgnoreCaps {
		from, to := daytime.WeekBounds(date)
		if weekly, err = f.substitutions.CountCommittedByTeacher(ctx, from, to); err != nil {
			return nil, err
		}
		if prefs, err = f.preferences.ListAll(ctx); err != nil {
			return nil, err
		}
	}

	available := make([]models.TeacherProfile, 0, len(profiles))
	for _, profile := range profiles {
		if !profile.Active {
			continue
		}
		if _, skip := excluded[profile.ID]; skip {
			continue
		}
		if _, skip := absent[profile.ID]; skip {
			continue
		}
		daySubs := byTeacher[profile.ID]
		if len(overlapping(daySubs, date, q.Window, "")) > 0 {
			continue
		}
		if !q.IgnoreCaps {
			var pref *models.TeacherPreference
			if p, ok := prefs[profile.ID]; ok {
				pref = &p
			}
			daily, week := pref.Caps(f.dailyCap, f.weeklyCap)
			if len(daySubs) >= daily || weekly[profile.ID] >= week {
				continue
			}
		}
		available = append(available, profile)
	}

	sort.Slice(available, func(i, j int) bool {
		if available[i].FullName != available[j].FullName {
			return available[i].FullName < available[j].FullName
		}
		return available[i].ID < available[j].ID
	})
	return available, nil
}

func (f *AvailabilityFilter) absentOn(ctx context.Context, date time.Time) (map[string]struct{}, error) {
	absences, err := f.absences.ListApprovedCandidates(ctx, date)
	if err != nil {
		return nil, err
	}
	absent := make(map[string]struct{}, len(absences))
	for _, absence := range absences {
		applies, err := absence.AppliesOn(date)
		if err != nil {
			f.logger.Warn("treating teacher as absent, recurrence unreadable",
				zap.String("absence_id", absence.ID),
				zap.String("teacher_id", absence.TeacherID),
				zap.Error(err))
			applies = true
		}
		if applies {
			absent[absence.TeacherID] = struct{}{}
		}
	}
	return absent, nil
}
