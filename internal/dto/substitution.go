package dto

import (
	"time"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// Matching strategies reported by the matcher.
const (
	StrategyOptimal       = "optimal"
	StrategyBestAvailable = "best_available"
	StrategyEmergency     = "emergency"
)

// Match reasons attached to ranked candidates.
const (
	ReasonSubjectExpertise = "subject_expertise"
	ReasonClassFamiliarity = "class_familiarity"
	ReasonHighReliability  = "high_reliability"
	ReasonRelaxedCaps      = "workload_cap_relaxed"
)

// Reasons a ranked candidate was rejected inside the assignment transaction.
const (
	SkipScheduleConflict = "schedule_conflict"
	SkipDailyCap         = "daily_cap_reached"
	SkipWeeklyCap        = "weekly_cap_reached"
)

// SlotRequest describes a lesson window. Times accept HH:MM or HH:MM:SS.
type SlotRequest struct {
	Date      string  `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	StartTime string  `json:"start_time" form:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" form:"end_time" validate:"required"`
	SubjectID *string `json:"subject_id,omitempty" form:"subject_id" validate:"omitempty"`
	ClassID   *string `json:"class_id,omitempty" form:"class_id" validate:"omitempty"`
}

// AvailabilityRequest is the query behind GET /substitutes/available.
type AvailabilityRequest struct {
	SlotRequest
	ExcludeTeacherID *string `json:"exclude_teacher_id,omitempty" form:"exclude_teacher_id"`
}

// BestSubstituteRequest asks for a ranked recommendation without committing anything.
type BestSubstituteRequest struct {
	SlotRequest
	OriginalTeacherID *string `json:"original_teacher_id,omitempty"`
	PriorityLevel     string  `json:"priority_level,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	BackupCount       *int    `json:"backup_count,omitempty" validate:"omitempty,min=0,max=10"`
}

// CreateSubstitutionRequest opens a pending vacancy.
type CreateSubstitutionRequest struct {
	SlotRequest
	OriginalTeacherID *string `json:"original_teacher_id,omitempty"`
	PriorityLevel     string  `json:"priority_level,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	Reason            *string `json:"reason,omitempty" validate:"omitempty,max=500"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// AssignSubstitutionRequest confirms a substitute chosen by a person.
type AssignSubstitutionRequest struct {
	TeacherID string  `json:"teacher_id" validate:"required"`
	Emergency bool    `json:"emergency"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// DeclineSubstitutionRequest records a rejection.
type DeclineSubstitutionRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// CompleteSubstitutionRequest closes a confirmed substitution.
type CompleteSubstitutionRequest struct {
	Rating *int `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
}

// SubstitutionListQuery is the query string of GET /substitutions.
type SubstitutionListQuery struct {
	TeacherID string `form:"teacher_id"`
	Date      string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Status    string `form:"status" validate:"omitempty,oneof=pending confirmed completed declined"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// CandidateScore is a ranked teacher with the reasons behind the score.
type CandidateScore struct {
	Teacher          models.Teacher `json:"teacher"`
	ConfidenceScore  float64        `json:"confidence_score"`
	ReliabilityScore int            `json:"reliability_score"`
	MatchReasons     []string       `json:"match_reasons"`
}

// BestSubstituteResult is the full recommendation for a vacancy.
type BestSubstituteResult struct {
	PrimarySubstitute *CandidateScore  `json:"primary_substitute"`
	BackupSubstitutes []CandidateScore `json:"backup_substitutes"`
	EmergencyOptions  []CandidateScore `json:"emergency_options"`
	MatchingStrategy  string           `json:"matching_strategy"`
	ConfidenceScore   float64          `json:"confidence_score"`
	Recommendations   []string         `json:"recommendations"`
}

// SkippedCandidate explains why a ranked teacher lost the assignment race.
type SkippedCandidate struct {
	TeacherID string `json:"teacher_id"`
	Reason    string `json:"reason"`
}

// AutoAssignResult reports the outcome of auto-assignment. AssignedTeacher is nil when no
// candidate qualified; the vacancy then stays pending.
type AutoAssignResult struct {
	Substitution     *models.TeacherSubstitution `json:"substitution"`
	AssignedTeacher  *models.Teacher             `json:"assigned_teacher"`
	MatchingStrategy string                      `json:"matching_strategy"`
	ConfidenceScore  float64                     `json:"confidence_score"`
	EmergencyOptions []CandidateScore            `json:"emergency_options,omitempty"`
	Skipped          []SkippedCandidate          `json:"skipped,omitempty"`
}

// CompletionSweepResult summarises one sweep run.
type CompletionSweepResult struct {
	Cutoff    time.Time `json:"cutoff"`
	Completed int       `json:"completed"`
}
