package dto

// UpsertCapsRequest overrides a teacher's substitution caps. Zero restores the configured default.
type UpsertCapsRequest struct {
	MaxSubstitutionsPerDay  int `json:"max_substitutions_per_day" validate:"min=0,max=10"`
	MaxSubstitutionsPerWeek int `json:"max_substitutions_per_week" validate:"min=0,max=50"`
}

// SubstitutionCaps reports the caps the matcher applies to a teacher.
type SubstitutionCaps struct {
	TeacherID  string `json:"teacher_id"`
	DailyCap   int    `json:"daily_cap"`
	WeeklyCap  int    `json:"weekly_cap"`
	Customised bool   `json:"customised"`
}

// CreateAbsenceRequest records leave for a teacher. Recurrence is an RRULE such as
// "FREQ=WEEKLY;BYDAY=FR;COUNT=6" anchored on Date.
type CreateAbsenceRequest struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Status     string  `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Recurrence *string `json:"recurrence,omitempty" validate:"omitempty,max=255"`
	Reason     *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}
