package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
)

const absenceColumns = `id, teacher_id, absence_date, status, recurrence, reason, created_at, updated_at`

// TeacherAbsenceRepository reads leave records produced by the leave workflow.
type TeacherAbsenceRepository struct {
	db *sqlx.DB
}

// NewTeacherAbsenceRepository constructs the repository.
func NewTeacherAbsenceRepository(db *sqlx.DB) *TeacherAbsenceRepository {
	return &TeacherAbsenceRepository{db: db}
}

// ListApprovedCandidates returns approved absences that may cover date: those dated on it and
// recurring ones anchored on or before it. Callers resolve recurrence with AppliesOn.
func (r *TeacherAbsenceRepository) ListApprovedCandidates(ctx context.Context, date time.Time) ([]models.TeacherAbsence, error) {
	query := `SELECT ` + absenceColumns + ` FROM teacher_absences
		WHERE status = 'approved'
		  AND (absence_date = $1 OR (recurrence IS NOT NULL AND recurrence <> '' AND absence_date <= $1))
		ORDER BY teacher_id, absence_date`
	var absences []models.TeacherAbsence
	if err := r.db.SelectContext(ctx, &absences, query, daytime.Date(date)); err != nil {
		return nil, fmt.Errorf("list approved absences: %w", err)
	}
	return absences, nil
}

// Create records an absence. Used by the admin CLI when importing leave data.
func (r *TeacherAbsenceRepository) Create(ctx context.Context, absence *models.TeacherAbsence) error {
	if absence.ID == "" {
		absence.ID = uuid.NewString()
	}
	if absence.Status == "" {
		absence.Status = models.AbsenceStatusPending
	}
	absence.AbsenceDate = daytime.Date(absence.AbsenceDate)
	now := time.Now().UTC()
	if absence.CreatedAt.IsZero() {
		absence.CreatedAt = now
	}
	absence.UpdatedAt = now

	const query = `INSERT INTO teacher_absences (id, teacher_id, absence_date, status, recurrence, reason, created_at, updated_at)
		VALUES (:id, :teacher_id, :absence_date, :status, :recurrence, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("create teacher absence: %w", err)
	}
	return nil
}
