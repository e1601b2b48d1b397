package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
)

type liveSubstitutionReader interface {
	ListLiveForTeacherOnDate(ctx context.Context, exec sqlx.ExtContext, teacherID string, date time.Time) ([]models.TeacherSubstitution, error)
}

// ConflictCheck identifies a proposed assignment of TeacherID to Window on Date.
type ConflictCheck struct {
	TeacherID             string
	Date                  time.Time
	Window                daytime.Window
	ExcludeSubstitutionID string
}

// ConflictDetector finds live substitutions that would collide with a proposed assignment.
type ConflictDetector struct {
	repo liveSubstitutionReader
}

// NewConflictDetector constructs a detector.
func NewConflictDetector(repo liveSubstitutionReader) *ConflictDetector {
	return &ConflictDetector{repo: repo}
}

// Conflicts returns the colliding substitutions. Pass a transaction as exec to read under its locks.
func (d *ConflictDetector) Conflicts(ctx context.Context, exec sqlx.ExtContext, check ConflictCheck) ([]models.TeacherSubstitution, error) {
	live, err := d.repo.ListLiveForTeacherOnDate(ctx, exec, check.TeacherID, check.Date)
	if err != nil {
		return nil, err
	}
	return overlapping(live, check.Date, check.Window, check.ExcludeSubstitutionID), nil
}

// HasConflict reports whether any live substitution collides with check.
func (d *ConflictDetector) HasConflict(ctx context.Context, exec sqlx.ExtContext, check ConflictCheck) (bool, error) {
	conflicts, err := d.Conflicts(ctx, exec, check)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// overlapping filters subs down to non-declined rows on date whose window overlaps window.
// Touching windows (one ends when the other starts) do not overlap.
func overlapping(subs []models.TeacherSubstitution, date time.Time, window daytime.Window, excludeID string) []models.TeacherSubstitution {
	var result []models.TeacherSubstitution
	for _, sub := range subs {
		if sub.Status == models.SubstitutionStatusDeclined {
			continue
		}
		if excludeID != "" && sub.ID == excludeID {
			continue
		}
		if !daytime.SameDay(sub.SubstitutionDate, date) {
			continue
		}
		if sub.Window().Overlaps(window) {
			result = append(result, sub)
		}
	}
	return result
}

func substitutionIDs(subs []models.TeacherSubstitution) []string {
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	return ids
}
