package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
)

const substitutionColumns = `id, original_teacher_id, substitute_teacher_id, subject_id, class_id, substitution_date,
	start_time, end_time, status, priority_level, is_emergency, auto_assigned, rating, reason, notes, replaces_id,
	confirmed_at, completed_at, created_at, updated_at`

const aggregateSelect = `SELECT substitute_teacher_id AS teacher_id,
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = 'pending') AS pending,
	COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
	COUNT(*) FILTER (WHERE status = 'completed') AS completed,
	COUNT(*) FILTER (WHERE status = 'declined') AS declined,
	COUNT(*) FILTER (WHERE is_emergency) AS emergency_count,
	COUNT(*) FILTER (WHERE auto_assigned) AS auto_assigned,
	(AVG(rating) FILTER (WHERE status = 'completed' AND rating IS NOT NULL))::float8 AS average_rating
FROM teacher_substitutions`

// SubstitutionRepository persists vacancies and their assignments.
type SubstitutionRepository struct {
	db *sqlx.DB
}

// NewSubstitutionRepository constructs the repository.
func NewSubstitutionRepository(db *sqlx.DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db}
}

func (r *SubstitutionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a vacancy.
func (r *SubstitutionRepository) Create(ctx context.Context, exec sqlx.ExtContext, sub *models.TeacherSubstitution) error {
	if sub == nil {
		return fmt.Errorf("substitution payload is nil")
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Status == "" {
		sub.Status = models.SubstitutionStatusPending
	}
	if sub.PriorityLevel == "" {
		sub.PriorityLevel = models.PriorityNormal
	}
	sub.SubstitutionDate = daytime.Date(sub.SubstitutionDate)
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	const query = `INSERT INTO teacher_substitutions (id, original_teacher_id, substitute_teacher_id, subject_id, class_id,
		substitution_date, start_time, end_time, status, priority_level, is_emergency, auto_assigned, rating, reason, notes,
		replaces_id, confirmed_at, completed_at, created_at, updated_at)
		VALUES (:id, :original_teacher_id, :substitute_teacher_id, :subject_id, :class_id, :substitution_date, :start_time,
		:end_time, :status, :priority_level, :is_emergency, :auto_assigned, :rating, :reason, :notes, :replaces_id,
		:confirmed_at, :completed_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, sub); err != nil {
		return fmt.Errorf("create substitution: %w", err)
	}
	return nil
}

// FindByID fetches a substitution. sql.ErrNoRows is returned unwrapped for missing rows.
func (r *SubstitutionRepository) FindByID(ctx context.Context, id string) (*models.TeacherSubstitution, error) {
	query := `SELECT ` + substitutionColumns + ` FROM teacher_substitutions WHERE id = $1`
	var sub models.TeacherSubstitution
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// LockByID fetches a substitution with a row lock held until the transaction ends.
func (r *SubstitutionRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TeacherSubstitution, error) {
	query := `SELECT ` + substitutionColumns + ` FROM teacher_substitutions WHERE id = $1 FOR UPDATE`
	var sub models.TeacherSubstitution
	if err := sqlx.GetContext(ctx, r.exec(exec), &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns substitutions matching filters along with total count.
func (r *SubstitutionRepository) List(ctx context.Context, filter models.SubstitutionFilter) ([]models.TeacherSubstitution, int, error) {
	base := "FROM teacher_substitutions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("(substitute_teacher_id = $%d OR original_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("substitution_date = $%d", len(args)+1))
		args = append(args, daytime.Date(*filter.Date))
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY substitution_date DESC, start_time, id LIMIT %d OFFSET %d", substitutionColumns, base, size, offset)
	var subs []models.TeacherSubstitution
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list substitutions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count substitutions: %w", err)
	}
	return subs, total, nil
}

// ListCommittedOnDate returns confirmed and completed assignments on date.
func (r *SubstitutionRepository) ListCommittedOnDate(ctx context.Context, date time.Time) ([]models.TeacherSubstitution, error) {
	query := `SELECT ` + substitutionColumns + ` FROM teacher_substitutions
		WHERE substitution_date = $1 AND substitute_teacher_id IS NOT NULL AND status IN ('confirmed', 'completed')
		ORDER BY substitute_teacher_id, start_time`
	var subs []models.TeacherSubstitution
	if err := r.db.SelectContext(ctx, &subs, query, daytime.Date(date)); err != nil {
		return nil, fmt.Errorf("list committed substitutions: %w", err)
	}
	return subs, nil
}

// CountCommittedByTeacher counts confirmed and completed assignments per teacher in [from, to).
func (r *SubstitutionRepository) CountCommittedByTeacher(ctx context.Context, from, to time.Time) (map[string]int, error) {
	const query = `SELECT substitute_teacher_id AS teacher_id, COUNT(*) AS total FROM teacher_substitutions
		WHERE substitute_teacher_id IS NOT NULL AND status IN ('confirmed', 'completed')
		  AND substitution_date >= $1 AND substitution_date < $2
		GROUP BY substitute_teacher_id`
	var rows []struct {
		TeacherID string `db:"teacher_id"`
		Total     int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, daytime.Date(from), daytime.Date(to)); err != nil {
		return nil, fmt.Errorf("count committed substitutions: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.TeacherID] = row.Total
	}
	return counts, nil
}

// CountCommitted counts one teacher's confirmed and completed assignments in [from, to).
func (r *SubstitutionRepository) CountCommitted(ctx context.Context, exec sqlx.ExtContext, teacherID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM teacher_substitutions
		WHERE substitute_teacher_id = $1 AND status IN ('confirmed', 'completed')
		  AND substitution_date >= $2 AND substitution_date < $3`
	var total int
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, query, teacherID, daytime.Date(from), daytime.Date(to)); err != nil {
		return 0, fmt.Errorf("count teacher substitutions: %w", err)
	}
	return total, nil
}

// ListLiveForTeacherOnDate returns a teacher's non-declined substitutions on date.
func (r *SubstitutionRepository) ListLiveForTeacherOnDate(ctx context.Context, exec sqlx.ExtContext, teacherID string, date time.Time) ([]models.TeacherSubstitution, error) {
	query := `SELECT ` + substitutionColumns + ` FROM teacher_substitutions
		WHERE substitute_teacher_id = $1 AND substitution_date = $2 AND status <> 'declined'
		ORDER BY start_time`
	var subs []models.TeacherSubstitution
	if err := sqlx.SelectContext(ctx, r.exec(exec), &subs, query, teacherID, daytime.Date(date)); err != nil {
		return nil, fmt.Errorf("list teacher substitutions on date: %w", err)
	}
	return subs, nil
}

// LockTeacherDay serialises assignment attempts for one teacher and day until the
// surrounding transaction ends.
func (r *SubstitutionRepository) LockTeacherDay(ctx context.Context, exec sqlx.ExtContext, teacherID string, date time.Time) error {
	key := teacherID + ":" + daytime.Date(date).Format(daytime.DateLayout)
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock teacher day: %w", err)
	}
	return nil
}

// Assign moves a pending vacancy to confirmed. It reports false when the vacancy was no longer pending.
func (r *SubstitutionRepository) Assign(ctx context.Context, exec sqlx.ExtContext, update models.AssignmentUpdate) (bool, error) {
	const query = `UPDATE teacher_substitutions
		SET substitute_teacher_id = $2, status = 'confirmed', auto_assigned = $3, is_emergency = is_emergency OR $4,
		    notes = COALESCE($6, notes), confirmed_at = $5, updated_at = $5
		WHERE id = $1 AND status = 'pending'`
	res, err := r.exec(exec).ExecContext(ctx, query, update.SubstitutionID, update.TeacherID, update.AutoAssigned, update.IsEmergency,
		update.ConfirmedAt, update.Notes)
	if err != nil {
		return false, fmt.Errorf("assign substitution: %w", err)
	}
	return affectedOne(res)
}

// Decline marks a pending or confirmed substitution as declined, keeping the substitute for stats.
func (r *SubstitutionRepository) Decline(ctx context.Context, exec sqlx.ExtContext, id string, reason *string, at time.Time) (bool, error) {
	const query = `UPDATE teacher_substitutions
		SET status = 'declined', notes = COALESCE($2, notes), updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'confirmed')`
	res, err := r.exec(exec).ExecContext(ctx, query, id, reason, at)
	if err != nil {
		return false, fmt.Errorf("decline substitution: %w", err)
	}
	return affectedOne(res)
}

// Complete closes a confirmed substitution with an optional rating.
func (r *SubstitutionRepository) Complete(ctx context.Context, exec sqlx.ExtContext, id string, rating *int, at time.Time) (bool, error) {
	const query = `UPDATE teacher_substitutions
		SET status = 'completed', rating = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'confirmed'`
	res, err := r.exec(exec).ExecContext(ctx, query, id, rating, at)
	if err != nil {
		return false, fmt.Errorf("complete substitution: %w", err)
	}
	return affectedOne(res)
}

// CompleteElapsed completes every confirmed substitution that ended at or before cutoff,
// stamping cutoff as completed_at, and returns the affected substitute teacher IDs.
// Lesson slots are UTC wall-clock values, so the cutoff is compared as a plain timestamp
// and the session TimeZone never shifts it.
func (r *SubstitutionRepository) CompleteElapsed(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `UPDATE teacher_substitutions
		SET status = 'completed', completed_at = $1, updated_at = $1
		WHERE status = 'confirmed' AND (substitution_date + end_time) <= $2::timestamp
		RETURNING substitute_teacher_id`
	var teacherIDs []string
	if err := r.db.SelectContext(ctx, &teacherIDs, query, cutoff.UTC(), cutoff.UTC()); err != nil {
		return nil, fmt.Errorf("complete elapsed substitutions: %w", err)
	}
	return teacherIDs, nil
}

// Aggregate summarises one teacher's substitutions, optionally since a date.
func (r *SubstitutionRepository) Aggregate(ctx context.Context, teacherID string, since *time.Time) (*models.SubstitutionAggregate, error) {
	query := aggregateSelect + ` WHERE substitute_teacher_id = $1`
	args := []interface{}{teacherID}
	if since != nil {
		query += ` AND substitution_date >= $2`
		args = append(args, daytime.Date(*since))
	}
	query += ` GROUP BY substitute_teacher_id`

	var rows []models.SubstitutionAggregate
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate substitutions: %w", err)
	}
	if len(rows) == 0 {
		return &models.SubstitutionAggregate{TeacherID: teacherID}, nil
	}
	return &rows[0], nil
}

// AggregateMany summarises several teachers in one grouped query.
func (r *SubstitutionRepository) AggregateMany(ctx context.Context, teacherIDs []string, since time.Time) (map[string]models.SubstitutionAggregate, error) {
	result := make(map[string]models.SubstitutionAggregate, len(teacherIDs))
	if len(teacherIDs) == 0 {
		return result, nil
	}
	query := aggregateSelect + ` WHERE substitute_teacher_id = ANY($1) AND substitution_date >= $2 GROUP BY substitute_teacher_id`
	var rows []models.SubstitutionAggregate
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(teacherIDs), daytime.Date(since)); err != nil {
		return nil, fmt.Errorf("aggregate substitutions for teachers: %w", err)
	}
	for _, row := range rows {
		result[row.TeacherID] = row
	}
	return result, nil
}

func affectedOne(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}
