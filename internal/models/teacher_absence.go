package models

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
)

// AbsenceStatus captures the approval state of a leave record.
type AbsenceStatus string

const (
	AbsenceStatusPending  AbsenceStatus = "pending"
	AbsenceStatusApproved AbsenceStatus = "approved"
	AbsenceStatusRejected AbsenceStatus = "rejected"
)

// TeacherAbsence blocks a teacher for a whole day. Recurrence, when set, is an RFC 5545
// RRULE anchored on AbsenceDate (for example "FREQ=WEEKLY;BYDAY=FR;COUNT=6").
type TeacherAbsence struct {
	ID          string        `db:"id" json:"id"`
	TeacherID   string        `db:"teacher_id" json:"teacher_id"`
	AbsenceDate time.Time     `db:"absence_date" json:"absence_date"`
	Status      AbsenceStatus `db:"status" json:"status"`
	Recurrence  *string       `db:"recurrence" json:"recurrence,omitempty"`
	Reason      *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// AppliesOn reports whether this approved absence covers date.
func (a TeacherAbsence) AppliesOn(date time.Time) (bool, error) {
	if a.Status != AbsenceStatusApproved {
		return false, nil
	}
	day := daytime.Date(date)
	anchor := daytime.Date(a.AbsenceDate)
	if day.Equal(anchor) {
		return true, nil
	}
	if a.Recurrence == nil || *a.Recurrence == "" || day.Before(anchor) {
		return false, nil
	}

	rule, err := rrule.StrToRRule(*a.Recurrence)
	if err != nil {
		return false, fmt.Errorf("absence %s has invalid recurrence: %w", a.ID, err)
	}
	rule.DTStart(anchor)
	return len(rule.Between(day, day.Add(24*time.Hour-time.Second), true)) > 0, nil
}

// ValidateRecurrence checks that raw parses as an RRULE.
func ValidateRecurrence(raw string) error {
	if _, err := rrule.StrToRRule(raw); err != nil {
		return fmt.Errorf("invalid recurrence rule: %w", err)
	}
	return nil
}
