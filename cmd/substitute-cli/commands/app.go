package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// Matcher is the part of the substitution service the CLI drives.
type Matcher interface {
	AutoAssign(ctx context.Context, id string) (*dto.AutoAssignResult, error)
	CompleteElapsed(ctx context.Context) (*dto.CompletionSweepResult, error)
}

// ReliabilityRefresher recomputes cached reliability scores.
type ReliabilityRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// CapsWriter overrides per-teacher workload caps.
type CapsWriter interface {
	Upsert(ctx context.Context, teacherID string, req dto.UpsertCapsRequest) (*dto.SubstitutionCaps, error)
}

// AbsenceRecorder records teacher leave.
type AbsenceRecorder interface {
	Record(ctx context.Context, teacherID string, req dto.CreateAbsenceRequest) (*models.TeacherAbsence, error)
}

// AppContext holds what commands need. It is filled in by the root command before any
// subcommand runs.
type AppContext struct {
	Ctx         context.Context
	Logger      *zap.Logger
	Migrate     func(ctx context.Context) ([]string, error)
	Matcher     Matcher
	Reliability ReliabilityRefresher
	Caps        CapsWriter
	Absences    AbsenceRecorder
}
