package models

import "time"

// TeacherPreference stores per-teacher substitution caps. Zero means the configured default applies.
type TeacherPreference struct {
	ID                      string    `db:"id" json:"id"`
	TeacherID               string    `db:"teacher_id" json:"teacher_id"`
	MaxSubstitutionsPerDay  int       `db:"max_substitutions_per_day" json:"max_substitutions_per_day"`
	MaxSubstitutionsPerWeek int       `db:"max_substitutions_per_week" json:"max_substitutions_per_week"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// Caps resolves the effective daily and weekly caps against the defaults.
func (p *TeacherPreference) Caps(defaultDaily, defaultWeekly int) (int, int) {
	daily, weekly := defaultDaily, defaultWeekly
	if p == nil {
		return daily, weekly
	}
	if p.MaxSubstitutionsPerDay > 0 {
		daily = p.MaxSubstitutionsPerDay
	}
	if p.MaxSubstitutionsPerWeek > 0 {
		weekly = p.MaxSubstitutionsPerWeek
	}
	return daily, weekly
}
