package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

const preferenceColumns = `id, teacher_id, max_substitutions_per_day, max_substitutions_per_week, created_at, updated_at`

// TeacherPreferenceRepository persists per-teacher substitution caps.
type TeacherPreferenceRepository struct {
	db *sqlx.DB
}

// NewTeacherPreferenceRepository constructs the repository.
func NewTeacherPreferenceRepository(db *sqlx.DB) *TeacherPreferenceRepository {
	return &TeacherPreferenceRepository{db: db}
}

func (r *TeacherPreferenceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// GetByTeacher returns the stored caps or nil when the teacher has none.
func (r *TeacherPreferenceRepository) GetByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) (*models.TeacherPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM teacher_preferences WHERE teacher_id = $1`
	var pref models.TeacherPreference
	if err := sqlx.GetContext(ctx, r.exec(exec), &pref, query, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher preference: %w", err)
	}
	return &pref, nil
}

// ListAll returns every stored preference keyed by teacher.
func (r *TeacherPreferenceRepository) ListAll(ctx context.Context) (map[string]models.TeacherPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM teacher_preferences`
	var prefs []models.TeacherPreference
	if err := r.db.SelectContext(ctx, &prefs, query); err != nil {
		return nil, fmt.Errorf("list teacher preferences: %w", err)
	}
	result := make(map[string]models.TeacherPreference, len(prefs))
	for _, pref := range prefs {
		result[pref.TeacherID] = pref
	}
	return result, nil
}

// Upsert creates or updates a teacher's caps.
func (r *TeacherPreferenceRepository) Upsert(ctx context.Context, pref *models.TeacherPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now

	const query = `INSERT INTO teacher_preferences (id, teacher_id, max_substitutions_per_day, max_substitutions_per_week, created_at, updated_at)
		VALUES (:id, :teacher_id, :max_substitutions_per_day, :max_substitutions_per_week, :created_at, :updated_at)
		ON CONFLICT (teacher_id) DO UPDATE
		SET max_substitutions_per_day = EXCLUDED.max_substitutions_per_day,
		    max_substitutions_per_week = EXCLUDED.max_substitutions_per_week,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert teacher preference: %w", err)
	}
	return nil
}
