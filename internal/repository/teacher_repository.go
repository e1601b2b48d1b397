package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

const teacherColumns = `id, nip, email, full_name, phone, expertise, active, created_at, updated_at`

// TeacherRepository reads the staff directory and its subject/class associations.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListActiveIDs returns the IDs of every active teacher.
func (r *TeacherRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM teachers WHERE active = TRUE ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list active teacher ids: %w", err)
	}
	return ids, nil
}

// ListActiveProfiles loads active teachers with their subject competencies and class familiarities.
func (r *TeacherRepository) ListActiveProfiles(ctx context.Context) ([]models.TeacherProfile, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE active = TRUE ORDER BY full_name, id`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	if len(teachers) == 0 {
		return nil, nil
	}

	subjects, err := r.links(ctx, `SELECT ts.teacher_id, ts.subject_id AS ref_id FROM teacher_subjects ts JOIN teachers t ON t.id = ts.teacher_id WHERE t.active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}
	classes, err := r.links(ctx, `SELECT tc.teacher_id, tc.class_id AS ref_id FROM teacher_classes tc JOIN teachers t ON t.id = tc.teacher_id WHERE t.active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("list teacher classes: %w", err)
	}

	profiles := make([]models.TeacherProfile, 0, len(teachers))
	for _, teacher := range teachers {
		profiles = append(profiles, models.TeacherProfile{
			Teacher:    teacher,
			SubjectIDs: subjects[teacher.ID],
			ClassIDs:   classes[teacher.ID],
		})
	}
	return profiles, nil
}

func (r *TeacherRepository) links(ctx context.Context, query string) (map[string]map[string]struct{}, error) {
	var rows []models.TeacherLink
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	result := make(map[string]map[string]struct{})
	for _, row := range rows {
		set, ok := result[row.TeacherID]
		if !ok {
			set = make(map[string]struct{})
			result[row.TeacherID] = set
		}
		set[row.RefID] = struct{}{}
	}
	return result, nil
}
