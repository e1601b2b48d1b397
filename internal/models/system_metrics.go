package models

import "time"

// SystemMetrics is a JSON snapshot of the service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64          `json:"cache_hit_ratio"`
	CacheHits                uint64           `json:"cache_hits"`
	CacheMisses              uint64           `json:"cache_misses"`
	RequestsTotal            uint64           `json:"requests_total"`
	AverageRequestDurationMs float64          `json:"average_request_duration_ms"`
	DBQueryCount             uint64           `json:"db_query_count"`
	AverageDBQueryDurationMs float64          `json:"average_db_query_duration_ms"`
	MatchesByStrategy        map[string]uint64 `json:"matches_by_strategy"`
	AutoAssignOutcomes       map[string]uint64 `json:"auto_assign_outcomes"`
	AssignmentConflicts      uint64           `json:"assignment_conflicts"`
	Goroutines               int              `json:"goroutines"`
	GeneratedAt              time.Time        `json:"generated_at"`
}
