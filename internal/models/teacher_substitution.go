package models

import (
	"time"

	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
)

// SubstitutionStatus is the lifecycle state of a vacancy.
type SubstitutionStatus string

const (
	SubstitutionStatusPending   SubstitutionStatus = "pending"
	SubstitutionStatusConfirmed SubstitutionStatus = "confirmed"
	SubstitutionStatusCompleted SubstitutionStatus = "completed"
	SubstitutionStatusDeclined  SubstitutionStatus = "declined"
)

// Valid reports whether s is a known status.
func (s SubstitutionStatus) Valid() bool {
	switch s {
	case SubstitutionStatusPending, SubstitutionStatusConfirmed, SubstitutionStatusCompleted, SubstitutionStatusDeclined:
		return true
	}
	return false
}

// PriorityLevel expresses the urgency of a vacancy.
type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "low"
	PriorityNormal PriorityLevel = "normal"
	PriorityHigh   PriorityLevel = "high"
	PriorityUrgent PriorityLevel = "urgent"
)

// TeacherSubstitution is one vacancy and, once assigned, its substitute.
type TeacherSubstitution struct {
	ID                  string             `db:"id" json:"id"`
	OriginalTeacherID   *string            `db:"original_teacher_id" json:"original_teacher_id,omitempty"`
	SubstituteTeacherID *string            `db:"substitute_teacher_id" json:"substitute_teacher_id,omitempty"`
	SubjectID           *string            `db:"subject_id" json:"subject_id,omitempty"`
	ClassID             *string            `db:"class_id" json:"class_id,omitempty"`
	SubstitutionDate    time.Time          `db:"substitution_date" json:"substitution_date"`
	StartTime           daytime.TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime             daytime.TimeOfDay  `db:"end_time" json:"end_time"`
	Status              SubstitutionStatus `db:"status" json:"status"`
	PriorityLevel       PriorityLevel      `db:"priority_level" json:"priority_level"`
	IsEmergency         bool               `db:"is_emergency" json:"is_emergency"`
	AutoAssigned        bool               `db:"auto_assigned" json:"auto_assigned"`
	Rating              *int               `db:"rating" json:"rating,omitempty"`
	Reason              *string            `db:"reason" json:"reason,omitempty"`
	Notes               *string            `db:"notes" json:"notes,omitempty"`
	ReplacesID          *string            `db:"replaces_id" json:"replaces_id,omitempty"`
	ConfirmedAt         *time.Time         `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CompletedAt         *time.Time         `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updated_at"`
}

// Window returns the lesson period as a half-open interval.
func (s TeacherSubstitution) Window() daytime.Window {
	return daytime.Window{Start: s.StartTime, End: s.EndTime}
}

// EndsAt anchors the end of the period on its date.
func (s TeacherSubstitution) EndsAt() time.Time {
	return s.EndTime.On(s.SubstitutionDate)
}

// SubstitutionFilter captures list filters.
type SubstitutionFilter struct {
	TeacherID string
	Date      *time.Time
	Status    SubstitutionStatus
	Page      int
	PageSize  int
}

// AssignmentUpdate is the compare-and-swap payload that moves a pending vacancy to confirmed.
type AssignmentUpdate struct {
	SubstitutionID string
	TeacherID      string
	AutoAssigned   bool
	IsEmergency    bool
	Notes          *string
	ConfirmedAt    time.Time
}
