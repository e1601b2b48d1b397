// Package app wires repositories and services for the HTTP gateway and the admin CLI.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/repository"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
)

// Container holds the wired services shared by every entry point.
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  *redis.Client
	Logger *zap.Logger

	Metrics       *service.MetricsService
	Cache         *service.CacheService
	Substitutions *service.SubstitutionService
	Performance   *service.PerformanceService
	Preferences   *service.TeacherPreferenceService
	Absences      *service.AbsenceService
	Maintenance   *service.MaintenanceWorker

	cacheRepo *repository.CacheRepository
}

// New builds the service graph. redisClient may be nil when caching is disabled.
func New(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	metrics := service.NewMetricsService()

	teachers := repository.NewTeacherRepository(db)
	subjects := repository.NewSubjectRepository(db)
	classes := repository.NewClassRepository(db)
	absences := repository.NewTeacherAbsenceRepository(db)
	preferences := repository.NewTeacherPreferenceRepository(db)
	substitutions := repository.NewSubstitutionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logger)

	subCfg := cfg.Substitution
	scorer, err := service.NewScorer(subCfg.Weights, subCfg.HighConfidenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring policy: %w", err)
	}

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Performance.CacheTTL, logger, cfg.Performance.CacheEnabled && redisClient != nil)
	performance := service.NewPerformanceService(substitutions, teachers, cacheSvc, metrics, logger, service.PerformanceConfig{
		PeriodMonths: subCfg.ReliabilityPeriodMonths,
		CacheTTL:     cfg.Performance.CacheTTL,
	})
	availability := service.NewAvailabilityFilter(teachers, absences, substitutions, preferences, logger, service.AvailabilityConfig{
		DailyCap:  subCfg.DailyCap,
		WeeklyCap: subCfg.WeeklyCap,
	})
	matcher := service.NewSubstitutionService(
		substitutions,
		teachers,
		subjects,
		classes,
		preferences,
		availability,
		scorer,
		service.NewConflictDetector(substitutions),
		performance,
		db,
		metrics,
		validate,
		logger,
		service.SubstitutionServiceConfig{
			DailyCap:    subCfg.DailyCap,
			WeeklyCap:   subCfg.WeeklyCap,
			BackupCount: subCfg.BackupCount,
		},
	)

	return &Container{
		Config:        cfg,
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
		Metrics:       metrics,
		Cache:         cacheSvc,
		Substitutions: matcher,
		Performance:   performance,
		Preferences:   service.NewTeacherPreferenceService(teachers, preferences, validate, logger, subCfg.DailyCap, subCfg.WeeklyCap),
		Absences:      service.NewAbsenceService(teachers, absences, validate, logger),
		Maintenance:   service.NewMaintenanceWorker(matcher, performance, logger),
		cacheRepo:     cacheRepo,
	}, nil
}

// StartMaintenance starts the background queue and schedules the sweep and the reliability
// refresh. Callers stop the returned queue on shutdown.
func (c *Container) StartMaintenance(ctx context.Context) (*jobs.Queue, error) {
	queue := jobs.NewQueue("maintenance", c.Maintenance.Handle, jobs.QueueConfig{
		Workers:    c.Config.Jobs.Workers,
		MaxRetries: c.Config.Jobs.Retries,
		RetryDelay: c.Config.Jobs.RetryDelay,
		Logger:     c.Logger,
	})
	queue.Start(ctx)

	if err := queue.Every(c.Config.Jobs.CompletionSweepInterval, service.JobCompletionSweep, nil); err != nil {
		queue.Stop()
		return nil, err
	}
	if c.Cache.Enabled() {
		if err := queue.Every(c.Config.Jobs.PerformanceRefresh, service.JobPerformanceRefresh, nil); err != nil {
			queue.Stop()
			return nil, err
		}
		if err := queue.Enqueue(jobs.Job{Type: service.JobPerformanceRefresh}); err != nil {
			c.Logger.Warn("initial performance refresh not queued", zap.Error(err))
		}
	}
	return queue, nil
}

// Close releases the database and cache connections.
func (c *Container) Close() {
	if err := c.cacheRepo.Close(); err != nil {
		c.Logger.Warn("failed to close redis", zap.Error(err))
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
