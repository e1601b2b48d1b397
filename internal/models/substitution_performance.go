package models

// TeacherPerformance summarises a teacher's substitution outcomes in a period.
type TeacherPerformance struct {
	TeacherID        string  `json:"teacher_id"`
	PeriodMonths     int     `json:"period_months"`
	Total            int     `json:"total"`
	Completed        int     `json:"completed"`
	Declined         int     `json:"declined"`
	ReliabilityScore int     `json:"reliability_score"`
	AverageRating    float64 `json:"average_rating"`
}

// SubstitutionStats is the all-time breakdown for a teacher.
type SubstitutionStats struct {
	TeacherID         string  `json:"teacher_id"`
	Total             int     `json:"total"`
	EmergencyCount    int     `json:"emergency_count"`
	AutoAssignedCount int     `json:"auto_assigned_count"`
	Pending           int     `json:"pending"`
	Confirmed         int     `json:"confirmed"`
	Completed         int     `json:"completed"`
	Declined          int     `json:"declined"`
	AverageRating     float64 `json:"average_rating"`
}

// SubstitutionAggregate is the raw row behind both summaries.
type SubstitutionAggregate struct {
	TeacherID      string   `db:"teacher_id"`
	Total          int      `db:"total"`
	Pending        int      `db:"pending"`
	Confirmed      int      `db:"confirmed"`
	Completed      int      `db:"completed"`
	Declined       int      `db:"declined"`
	EmergencyCount int      `db:"emergency_count"`
	AutoAssigned   int      `db:"auto_assigned"`
	AverageRating  *float64 `db:"average_rating"`
}
