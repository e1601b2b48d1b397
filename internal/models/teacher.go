package models

import "time"

// Teacher represents a staff member who may cover a vacancy.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	NIP       *string   `db:"nip" json:"nip,omitempty"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Expertise *string   `db:"expertise" json:"expertise,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherProfile is a teacher with the association sets the scorer reads.
type TeacherProfile struct {
	Teacher
	SubjectIDs map[string]struct{} `json:"-"`
	ClassIDs   map[string]struct{} `json:"-"`
}

// TeachesSubject reports subject competency.
func (p TeacherProfile) TeachesSubject(subjectID string) bool {
	_, ok := p.SubjectIDs[subjectID]
	return ok
}

// KnowsClass reports class familiarity.
func (p TeacherProfile) KnowsClass(classID string) bool {
	_, ok := p.ClassIDs[classID]
	return ok
}

// TeacherLink is one row of a teacher_subjects or teacher_classes join table.
type TeacherLink struct {
	TeacherID string `db:"teacher_id"`
	RefID     string `db:"ref_id"`
}
