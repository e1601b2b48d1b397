package models

// Subject and Class are timetable reference data. The matching engine only checks that a
// vacancy points at existing rows and scores teachers against their ids.

// Subject is a taught subject.
type Subject struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Class is a student group.
type Class struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Grade string `db:"grade" json:"grade"`
}
