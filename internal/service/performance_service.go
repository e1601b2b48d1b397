package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type performanceStore interface {
	Aggregate(ctx context.Context, teacherID string, since *time.Time) (*models.SubstitutionAggregate, error)
	AggregateMany(ctx context.Context, teacherIDs []string, since time.Time) (map[string]models.SubstitutionAggregate, error)
}

type performanceTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
}

type reliabilityCache interface {
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// PerformanceConfig governs the aggregation window and the reliability cache.
type PerformanceConfig struct {
	PeriodMonths int
	CacheTTL     time.Duration
	Now          func() time.Time
}

// PerformanceService summarises substitution outcomes per teacher and serves the
// reliability scores consumed by the scorer.
type PerformanceService struct {
	store    performanceStore
	teachers performanceTeacherReader
	cache    reliabilityCache
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      PerformanceConfig
}

// NewPerformanceService wires the aggregator. cache may be nil.
func NewPerformanceService(
	store performanceStore,
	teachers performanceTeacherReader,
	cache reliabilityCache,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg PerformanceConfig,
) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PeriodMonths <= 0 {
		cfg.PeriodMonths = 6
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PerformanceService{
		store:    store,
		teachers: teachers,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// GetTeacherPerformance reports reliability over the last periodMonths (configured default when <= 0).
func (s *PerformanceService) GetTeacherPerformance(ctx context.Context, teacherID string, periodMonths int) (*models.TeacherPerformance, error) {
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	if periodMonths <= 0 {
		periodMonths = s.cfg.PeriodMonths
	}
	since := s.since(periodMonths)

	start := time.Now()
	agg, err := s.store.Aggregate(ctx, teacherID, &since)
	s.metrics.ObserveDBQuery("substitution_performance", time.Since(start))
	if err != nil {
		return nil, storageError(err, "failed to aggregate substitution performance")
	}

	return &models.TeacherPerformance{
		TeacherID:        teacherID,
		PeriodMonths:     periodMonths,
		Total:            agg.Total,
		Completed:        agg.Completed,
		Declined:         agg.Declined,
		ReliabilityScore: reliabilityOf(*agg),
		AverageRating:    averageRating(agg.AverageRating),
	}, nil
}

// GetSubstitutionStats reports the all-time breakdown for a teacher.
func (s *PerformanceService) GetSubstitutionStats(ctx context.Context, teacherID string) (*models.SubstitutionStats, error) {
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}

	start := time.Now()
	agg, err := s.store.Aggregate(ctx, teacherID, nil)
	s.metrics.ObserveDBQuery("substitution_stats", time.Since(start))
	if err != nil {
		return nil, storageError(err, "failed to aggregate substitution stats")
	}

	return &models.SubstitutionStats{
		TeacherID:         teacherID,
		Total:             agg.Total,
		EmergencyCount:    agg.EmergencyCount,
		AutoAssignedCount: agg.AutoAssigned,
		Pending:           agg.Pending,
		Confirmed:         agg.Confirmed,
		Completed:         agg.Completed,
		Declined:          agg.Declined,
		AverageRating:     averageRating(agg.AverageRating),
	}, nil
}

// ReliabilityFor returns the reliability score of each teacher over the default period.
// Cached scores are used when present; the rest are computed in one grouped query and cached.
func (s *PerformanceService) ReliabilityFor(ctx context.Context, teacherIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(teacherIDs))
	if len(teacherIDs) == 0 {
		return result, nil
	}

	unique := make([]string, 0, len(teacherIDs))
	keys := make([]string, 0, len(teacherIDs))
	seen := make(map[string]struct{}, len(teacherIDs))
	for _, id := range teacherIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
		keys = append(keys, s.key(id))
	}

	var cached map[string][]byte
	if s.cache != nil {
		var err error
		if cached, err = s.cache.GetMany(ctx, keys); err != nil {
			s.logger.Warn("reliability cache unavailable, computing from database", zap.Error(err))
		}
	}
	var missing []string
	for _, id := range unique {
		if raw, ok := cached[s.key(id)]; ok {
			var score int
			if err := json.Unmarshal(raw, &score); err == nil {
				result[id] = score
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	computed, err := s.compute(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, score := range computed {
		result[id] = score
		s.remember(ctx, id, score)
	}
	return result, nil
}

// RefreshAll recomputes and caches reliability for every active teacher.
func (s *PerformanceService) RefreshAll(ctx context.Context) (int, error) {
	ids, err := s.teachers.ListActiveIDs(ctx)
	if err != nil {
		return 0, storageError(err, "failed to list active teachers")
	}
	computed, err := s.compute(ctx, ids)
	if err != nil {
		return 0, err
	}
	for id, score := range computed {
		s.remember(ctx, id, score)
	}
	s.logger.Info("reliability refreshed", zap.Int("teachers", len(computed)))
	return len(computed), nil
}

// Invalidate drops the cached reliability of the given teachers.
func (s *PerformanceService) Invalidate(ctx context.Context, teacherIDs ...string) {
	if s.cache == nil || len(teacherIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(teacherIDs))
	for _, id := range teacherIDs {
		if id != "" {
			keys = append(keys, s.key(id))
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate reliability cache", zap.Strings("teacher_ids", teacherIDs), zap.Error(err))
	}
}

func (s *PerformanceService) compute(ctx context.Context, ids []string) (map[string]int, error) {
	start := time.Now()
	aggs, err := s.store.AggregateMany(ctx, ids, s.since(s.cfg.PeriodMonths))
	s.metrics.ObserveDBQuery("substitution_reliability", time.Since(start))
	if err != nil {
		return nil, storageError(err, "failed to compute reliability")
	}
	scores := make(map[string]int, len(ids))
	for _, id := range ids {
		scores[id] = reliabilityOf(aggs[id])
	}
	return scores, nil
}

func (s *PerformanceService) remember(ctx context.Context, teacherID string, score int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.key(teacherID), score, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("reliability not cached", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

func (s *PerformanceService) ensureTeacher(ctx context.Context, teacherID string) error {
	if teacherID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return storageError(err, "failed to load teacher")
	}
	return nil
}

func (s *PerformanceService) since(months int) time.Time {
	return s.cfg.Now().UTC().AddDate(0, -months, 0)
}

func (s *PerformanceService) key(teacherID string) string {
	return cache.Key("reliability", strconv.Itoa(s.cfg.PeriodMonths), teacherID)
}

// reliabilityOf is the completed share of all substitutions as a 0..100 integer.
func reliabilityOf(agg models.SubstitutionAggregate) int {
	if agg.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(agg.Completed) / float64(agg.Total) * 100))
}

func averageRating(avg *float64) float64 {
	if avg == nil {
		return 0
	}
	return roundTo(*avg, 2)
}
