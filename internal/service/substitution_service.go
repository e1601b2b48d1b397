package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/database"
	"github.com/noah-isme/sma-substitution-api/pkg/daytime"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type substitutionStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, sub *models.TeacherSubstitution) error
	FindByID(ctx context.Context, id string) (*models.TeacherSubstitution, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TeacherSubstitution, error)
	List(ctx context.Context, filter models.SubstitutionFilter) ([]models.TeacherSubstitution, int, error)
	CountCommitted(ctx context.Context, exec sqlx.ExtContext, teacherID string, from, to time.Time) (int, error)
	LockTeacherDay(ctx context.Context, exec sqlx.ExtContext, teacherID string, date time.Time) error
	Assign(ctx context.Context, exec sqlx.ExtContext, update models.AssignmentUpdate) (bool, error)
	Decline(ctx context.Context, exec sqlx.ExtContext, id string, reason *string, at time.Time) (bool, error)
	Complete(ctx context.Context, exec sqlx.ExtContext, id string, rating *int, at time.Time) (bool, error)
	CompleteElapsed(ctx context.Context, cutoff time.Time) ([]string, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type teacherPreferenceReader interface {
	GetByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) (*models.TeacherPreference, error)
}

type candidateFinder interface {
	Find(ctx context.Context, q AvailabilityQuery) ([]models.TeacherProfile, error)
}

type conflictFinder interface {
	Conflicts(ctx context.Context, exec sqlx.ExtContext, check ConflictCheck) ([]models.TeacherSubstitution, error)
}

type reliabilitySource interface {
	ReliabilityFor(ctx context.Context, teacherIDs []string) (map[string]int, error)
	Invalidate(ctx context.Context, teacherIDs ...string)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// SubstitutionServiceConfig carries the matching policy.
type SubstitutionServiceConfig struct {
	DailyCap    int
	WeeklyCap   int
	BackupCount int
	Now         func() time.Time
}

// SubstitutionService matches vacancies to substitutes and drives their lifecycle.
type SubstitutionService struct {
	repo         substitutionStore
	teachers     teacherReader
	subjects     subjectReader
	classes      classReader
	preferences  teacherPreferenceReader
	availability candidateFinder
	scorer       *Scorer
	conflicts    conflictFinder
	performance  reliabilitySource
	tx           txProvider
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          SubstitutionServiceConfig
}

// NewSubstitutionService wires matching dependencies.
func NewSubstitutionService(
	repo substitutionStore,
	teachers teacherReader,
	subjects subjectReader,
	classes classReader,
	preferences teacherPreferenceReader,
	availability candidateFinder,
	scorer *Scorer,
	conflicts conflictFinder,
	performance reliabilitySource,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SubstitutionServiceConfig,
) *SubstitutionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DailyCap <= 0 {
		cfg.DailyCap = 3
	}
	if cfg.WeeklyCap <= 0 {
		cfg.WeeklyCap = 12
	}
	if cfg.BackupCount < 0 {
		cfg.BackupCount = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SubstitutionService{
		repo:         repo,
		teachers:     teachers,
		subjects:     subjects,
		classes:      classes,
		preferences:  preferences,
		availability: availability,
		scorer:       scorer,
		conflicts:    conflicts,
		performance:  performance,
		tx:           tx,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// FindAvailable lists teachers free for the requested slot.
func (s *SubstitutionService) FindAvailable(ctx context.Context, req dto.AvailabilityRequest) ([]models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	date, window, err := parseSlot(req.SlotRequest)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.SlotRequest, req.ExcludeTeacherID); err != nil {
		return nil, err
	}
	query := AvailabilityQuery{Date: date, Window: window, SubjectID: req.SubjectID, ClassID: req.ClassID}
	if req.ExcludeTeacherID != nil && *req.ExcludeTeacherID != "" {
		query.ExcludeTeacherIDs = []string{*req.ExcludeTeacherID}
	}

	profiles, err := s.availability.Find(ctx, query)
	if err != nil {
		return nil, storageError(err, "failed to load available teachers")
	}
	teachers := make([]models.Teacher, 0, len(profiles))
	for _, profile := range profiles {
		teachers = append(teachers, profile.Teacher)
	}
	return teachers, nil
}

// FindBest ranks the available teachers for a slot without committing anything.
func (s *SubstitutionService) FindBest(ctx context.Context, req dto.BestSubstituteRequest) (*dto.BestSubstituteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitute request")
	}
	date, window, err := parseSlot(req.SlotRequest)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.SlotRequest, req.OriginalTeacherID); err != nil {
		return nil, err
	}
	query := AvailabilityQuery{Date: date, Window: window, SubjectID: req.SubjectID, ClassID: req.ClassID}
	if req.OriginalTeacherID != nil && *req.OriginalTeacherID != "" {
		query.ExcludeTeacherIDs = []string{*req.OriginalTeacherID}
	}
	backups := s.cfg.BackupCount
	if req.BackupCount != nil {
		backups = *req.BackupCount
	}

	result, ranked, err := s.recommend(ctx, "find_best", query, backups)
	if err != nil {
		return nil, err
	}
	// Urgent and high priority slots also list the over-cap teachers, even when
	// a qualified candidate exists.
	if isEscalated(models.PriorityLevel(req.PriorityLevel)) && len(ranked) > 0 {
		options, err := s.emergencyOptions(ctx, query, 0)
		if err != nil {
			return nil, err
		}
		result.EmergencyOptions = overCapOnly(options, ranked, backups+1)
	}
	return result, nil
}

// Create opens a pending vacancy.
func (s *SubstitutionService) Create(ctx context.Context, req dto.CreateSubstitutionRequest) (*models.TeacherSubstitution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitution payload")
	}
	date, window, err := parseSlot(req.SlotRequest)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.SlotRequest, req.OriginalTeacherID); err != nil {
		return nil, err
	}

	priority := models.PriorityLevel(req.PriorityLevel)
	if priority == "" {
		priority = models.PriorityNormal
	}
	sub := &models.TeacherSubstitution{
		OriginalTeacherID: req.OriginalTeacherID,
		SubjectID:         req.SubjectID,
		ClassID:           req.ClassID,
		SubstitutionDate:  date,
		StartTime:         window.Start,
		EndTime:           window.End,
		Status:            models.SubstitutionStatusPending,
		PriorityLevel:     priority,
		Reason:            req.Reason,
		Notes:             req.Notes,
	}
	if err := s.repo.Create(ctx, nil, sub); err != nil {
		return nil, storageError(err, "failed to create substitution")
	}
	s.logger.Info("substitution opened",
		zap.String("substitution_id", sub.ID),
		zap.String("date", date.Format(daytime.DateLayout)),
		zap.String("window", fmt.Sprintf("%s-%s", window.Start, window.End)))
	return sub, nil
}

// Get returns one substitution.
func (s *SubstitutionService) Get(ctx context.Context, id string) (*models.TeacherSubstitution, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "substitution")
	}
	return sub, nil
}

// List returns substitutions matching the query.
func (s *SubstitutionService) List(ctx context.Context, query dto.SubstitutionListQuery) ([]models.TeacherSubstitution, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid list query")
	}
	filter := models.SubstitutionFilter{
		TeacherID: query.TeacherID,
		Status:    models.SubstitutionStatus(query.Status),
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if query.Date != "" {
		date, err := daytime.ParseDate(query.Date)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
		}
		filter.Date = &date
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	subs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storageError(err, "failed to list substitutions")
	}
	return subs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// AutoAssign picks the best available substitute for a pending vacancy and confirms it.
// When nobody qualifies the vacancy stays pending and the result carries emergency options
// that a person has to confirm through Assign.
func (s *SubstitutionService) AutoAssign(ctx context.Context, id string) (*dto.AutoAssignResult, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "substitution")
	}
	if sub.Status != models.SubstitutionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("substitution is %s", sub.Status))
	}

	query := vacancyQuery(sub)
	recommendation, ranked, err := s.recommend(ctx, "auto_assign", query, s.cfg.BackupCount)
	if err != nil {
		s.metrics.RecordAutoAssign(OutcomeFailed)
		return nil, err
	}

	result := &dto.AutoAssignResult{Substitution: sub}
	for _, candidate := range ranked {
		outcome, err := s.tryAssign(ctx, id, candidate.Teacher.ID, assignOptions{auto: true, enforceCaps: true})
		if err != nil {
			s.metrics.RecordAutoAssign(OutcomeFailed)
			return nil, err
		}
		if outcome.rejection != "" {
			s.metrics.RecordAssignmentConflict()
			s.logger.Info("candidate rejected at commit",
				zap.String("substitution_id", id),
				zap.String("teacher_id", candidate.Teacher.ID),
				zap.String("reason", outcome.rejection))
			result.Skipped = append(result.Skipped, dto.SkippedCandidate{TeacherID: candidate.Teacher.ID, Reason: outcome.rejection})
			continue
		}

		teacher := candidate.Teacher
		result.Substitution = outcome.substitution
		result.AssignedTeacher = &teacher
		result.MatchingStrategy = recommendation.MatchingStrategy
		result.ConfidenceScore = candidate.ConfidenceScore
		s.metrics.RecordAutoAssign(OutcomeAssigned)
		s.performance.Invalidate(ctx, teacher.ID)
		s.logger.Info("substitute auto-assigned",
			zap.String("substitution_id", id),
			zap.String("teacher_id", teacher.ID),
			zap.Float64("confidence", candidate.ConfidenceScore),
			zap.String("strategy", recommendation.MatchingStrategy))
		return result, nil
	}

	result.MatchingStrategy = dto.StrategyEmergency
	if len(ranked) == 0 {
		result.EmergencyOptions = recommendation.EmergencyOptions
		s.metrics.RecordAutoAssign(OutcomeNoCandidate)
	} else {
		options, err := s.emergencyOptions(ctx, query, s.cfg.BackupCount+1)
		if err != nil {
			s.metrics.RecordAutoAssign(OutcomeFailed)
			return nil, err
		}
		result.EmergencyOptions = options
		s.metrics.RecordAutoAssign(OutcomeRejected)
	}
	s.logger.Warn("no substitute could be assigned",
		zap.String("substitution_id", id),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("emergency_options", len(result.EmergencyOptions)))
	return result, nil
}

// Assign confirms a substitute chosen by a person. An emergency assignment bypasses the
// workload caps but never the schedule conflict check.
func (s *SubstitutionService) Assign(ctx context.Context, id string, req dto.AssignSubstitutionRequest) (*models.TeacherSubstitution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "substitution")
	}
	if sub.Status != models.SubstitutionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("substitution is %s", sub.Status))
	}
	if sub.OriginalTeacherID != nil && *sub.OriginalTeacherID == req.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute must differ from the original teacher")
	}
	teacher, err := s.loadTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}

	outcome, err := s.tryAssign(ctx, id, teacher.ID, assignOptions{
		emergency:   req.Emergency,
		enforceCaps: !req.Emergency,
		notes:       req.Notes,
	})
	if err != nil {
		return nil, err
	}
	switch outcome.rejection {
	case "":
	case dto.SkipScheduleConflict:
		s.metrics.RecordAssignmentConflict()
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, "teacher already has an overlapping substitution"),
			map[string]interface{}{"teacher_id": teacher.ID, "conflicting_ids": outcome.conflicts},
		)
	default:
		s.metrics.RecordAssignmentConflict()
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, "teacher reached the substitution cap; use an emergency assignment"),
			map[string]interface{}{"teacher_id": teacher.ID, "reason": outcome.rejection},
		)
	}

	s.performance.Invalidate(ctx, teacher.ID)
	s.logger.Info("substitute assigned",
		zap.String("substitution_id", id),
		zap.String("teacher_id", teacher.ID),
		zap.Bool("emergency", req.Emergency))
	return outcome.substitution, nil
}

// Decline records that the substitute rejected a pending or confirmed substitution.
func (s *SubstitutionService) Decline(ctx context.Context, id string, req dto.DeclineSubstitutionRequest) (*models.TeacherSubstitution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decline payload")
	}
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "substitution")
	}
	if sub.Status != models.SubstitutionStatusPending && sub.Status != models.SubstitutionStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("substitution is %s", sub.Status))
	}

	now := s.cfg.Now().UTC()
	ok, err := s.repo.Decline(ctx, nil, id, req.Reason, now)
	if err != nil {
		return nil, storageError(err, "failed to decline substitution")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, "substitution changed state concurrently")
	}

	sub.Status = models.SubstitutionStatusDeclined
	sub.UpdatedAt = now
	if req.Reason != nil {
		sub.Notes = req.Reason
	}
	if sub.SubstituteTeacherID != nil {
		s.performance.Invalidate(ctx, *sub.SubstituteTeacherID)
	}
	return sub, nil
}

// Complete closes a confirmed substitution with an optional 1-5 rating.
func (s *SubstitutionService) Complete(ctx context.Context, id string, req dto.CompleteSubstitutionRequest) (*models.TeacherSubstitution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "substitution")
	}
	if sub.Status != models.SubstitutionStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("only confirmed substitutions can be completed, substitution is %s", sub.Status))
	}

	now := s.cfg.Now().UTC()
	ok, err := s.repo.Complete(ctx, nil, id, req.Rating, now)
	if err != nil {
		return nil, storageError(err, "failed to complete substitution")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, "substitution changed state concurrently")
	}

	sub.Status = models.SubstitutionStatusCompleted
	sub.Rating = req.Rating
	sub.CompletedAt = &now
	sub.UpdatedAt = now
	if sub.SubstituteTeacherID != nil {
		s.performance.Invalidate(ctx, *sub.SubstituteTeacherID)
	}
	return sub, nil
}

// Rematch reopens a declined substitution as a new pending vacancy that points back at it.
func (s *SubstitutionService) Rematch(ctx context.Context, id string) (*models.TeacherSubstitution, error) {
	declined, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "substitution")
	}
	if declined.Status != models.SubstitutionStatusDeclined {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("only declined substitutions can be rematched, substitution is %s", declined.Status))
	}

	replacement := &models.TeacherSubstitution{
		OriginalTeacherID: declined.OriginalTeacherID,
		SubjectID:         declined.SubjectID,
		ClassID:           declined.ClassID,
		SubstitutionDate:  declined.SubstitutionDate,
		StartTime:         declined.StartTime,
		EndTime:           declined.EndTime,
		Status:            models.SubstitutionStatusPending,
		PriorityLevel:     declined.PriorityLevel,
		Reason:            declined.Reason,
		ReplacesID:        &declined.ID,
	}
	if err := s.repo.Create(ctx, nil, replacement); err != nil {
		return nil, storageError(err, "failed to reopen substitution")
	}
	s.logger.Info("substitution reopened", zap.String("substitution_id", replacement.ID), zap.String("replaces_id", id))
	return replacement, nil
}

// CompleteElapsed completes every confirmed substitution whose period has ended.
func (s *SubstitutionService) CompleteElapsed(ctx context.Context) (*dto.CompletionSweepResult, error) {
	cutoff := s.cfg.Now().UTC()
	teacherIDs, err := s.repo.CompleteElapsed(ctx, cutoff)
	if err != nil {
		return nil, storageError(err, "failed to complete elapsed substitutions")
	}
	s.metrics.RecordSweep(len(teacherIDs))
	if len(teacherIDs) > 0 {
		s.performance.Invalidate(ctx, uniqueStrings(teacherIDs)...)
		s.logger.Info("elapsed substitutions completed", zap.Int("count", len(teacherIDs)))
	}
	return &dto.CompletionSweepResult{Cutoff: cutoff, Completed: len(teacherIDs)}, nil
}

// recommend runs filter and scorer and returns both the response payload and the full ranking.
func (s *SubstitutionService) recommend(ctx context.Context, operation string, query AvailabilityQuery, backups int) (*dto.BestSubstituteResult, []dto.CandidateScore, error) {
	start := time.Now()
	ranked, err := s.rank(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	result := &dto.BestSubstituteResult{
		BackupSubstitutes: []dto.CandidateScore{},
		EmergencyOptions:  []dto.CandidateScore{},
		MatchingStrategy:  s.scorer.Strategy(ranked),
	}

	if len(ranked) == 0 {
		options, err := s.emergencyOptions(ctx, query, backups+1)
		if err != nil {
			return nil, nil, err
		}
		result.EmergencyOptions = options
		result.Recommendations = []string{"No teacher is free within the workload caps."}
		if len(options) > 0 {
			result.Recommendations = append(result.Recommendations, "Confirm one of the emergency options manually; it will exceed the teacher's workload cap.")
		} else {
			result.Recommendations = append(result.Recommendations, "Nobody is free for this period; consider rescheduling or merging classes.")
		}
		s.metrics.ObserveMatch(operation, result.MatchingStrategy, time.Since(start))
		return result, ranked, nil
	}

	primary := ranked[0]
	result.PrimarySubstitute = &primary
	result.ConfidenceScore = primary.ConfidenceScore
	if backups > 0 && len(ranked) > 1 {
		end := 1 + backups
		if end > len(ranked) {
			end = len(ranked)
		}
		result.BackupSubstitutes = append(result.BackupSubstitutes, ranked[1:end]...)
	}

	if result.MatchingStrategy == dto.StrategyOptimal {
		result.Recommendations = []string{fmt.Sprintf("Assign %s.", primary.Teacher.FullName)}
	} else {
		result.Recommendations = []string{
			fmt.Sprintf("Best available match is %s with confidence %.2f; review before confirming.", primary.Teacher.FullName, primary.ConfidenceScore),
		}
	}
	if len(result.BackupSubstitutes) == 0 {
		result.Recommendations = append(result.Recommendations, "No backup substitute is available.")
	}

	s.metrics.ObserveMatch(operation, result.MatchingStrategy, time.Since(start))
	return result, ranked, nil
}

func (s *SubstitutionService) rank(ctx context.Context, query AvailabilityQuery) ([]dto.CandidateScore, error) {
	candidates, err := s.availability.Find(ctx, query)
	if err != nil {
		return nil, storageError(err, "failed to load available teachers")
	}
	if len(candidates) == 0 {
		return []dto.CandidateScore{}, nil
	}
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.ID)
	}
	reliability, err := s.performance.ReliabilityFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.scorer.Rank(candidates, query.Criteria(), reliability), nil
}

// emergencyOptions ranks teachers that are free in the period but already at their caps.
func (s *SubstitutionService) emergencyOptions(ctx context.Context, query AvailabilityQuery, limit int) ([]dto.CandidateScore, error) {
	query.IgnoreCaps = true
	ranked, err := s.rank(ctx, query)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].MatchReasons = append(ranked[i].MatchReasons, dto.ReasonRelaxedCaps)
	}
	return ranked, nil
}

type assignOptions struct {
	auto        bool
	emergency   bool
	enforceCaps bool
	notes       *string
}

type assignOutcome struct {
	substitution *models.TeacherSubstitution
	rejection    string
	conflicts    []string
}

// tryAssign confirms teacherID for the vacancy in one transaction. The vacancy row lock and the
// per-teacher-day advisory lock serialise concurrent assignments; a rejected candidate is
// reported in the outcome and nothing is written.
func (s *SubstitutionService) tryAssign(ctx context.Context, vacancyID, teacherID string, opts assignOptions) (outcome assignOutcome, err error) {
	if s.tx == nil {
		return outcome, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return outcome, storageError(err, "failed to begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sub, err := s.repo.LockByID(ctx, tx, vacancyID)
	if err != nil {
		return outcome, mapLookupError(err, "substitution")
	}
	if sub.Status != models.SubstitutionStatusPending {
		return outcome, appErrors.Clone(appErrors.ErrAlreadyResolved, fmt.Sprintf("substitution is %s", sub.Status))
	}
	if err = s.repo.LockTeacherDay(ctx, tx, teacherID, sub.SubstitutionDate); err != nil {
		return outcome, storageError(err, "failed to lock teacher schedule")
	}

	conflicts, err := s.conflicts.Conflicts(ctx, tx, ConflictCheck{
		TeacherID:             teacherID,
		Date:                  sub.SubstitutionDate,
		Window:                sub.Window(),
		ExcludeSubstitutionID: sub.ID,
	})
	if err != nil {
		return outcome, storageError(err, "failed to check schedule conflicts")
	}
	if len(conflicts) > 0 {
		outcome.rejection = dto.SkipScheduleConflict
		outcome.conflicts = substitutionIDs(conflicts)
		return outcome, nil
	}

	if opts.enforceCaps {
		rejection, capErr := s.checkCaps(ctx, tx, teacherID, sub.SubstitutionDate)
		if capErr != nil {
			return outcome, capErr
		}
		if rejection != "" {
			outcome.rejection = rejection
			return outcome, nil
		}
	}

	now := s.cfg.Now().UTC()
	ok, err := s.repo.Assign(ctx, tx, models.AssignmentUpdate{
		SubstitutionID: sub.ID,
		TeacherID:      teacherID,
		AutoAssigned:   opts.auto,
		IsEmergency:    opts.emergency,
		Notes:          opts.notes,
		ConfirmedAt:    now,
	})
	if err != nil {
		if database.IsExclusionViolation(err) {
			outcome.rejection = dto.SkipScheduleConflict
			return outcome, nil
		}
		return outcome, storageError(err, "failed to assign substitute")
	}
	if !ok {
		return outcome, appErrors.Clone(appErrors.ErrAlreadyResolved, "substitution changed state concurrently")
	}
	if err = tx.Commit(); err != nil {
		return outcome, storageError(err, "failed to commit assignment")
	}
	committed = true

	sub.SubstituteTeacherID = &teacherID
	sub.Status = models.SubstitutionStatusConfirmed
	sub.AutoAssigned = opts.auto
	sub.IsEmergency = sub.IsEmergency || opts.emergency
	if opts.notes != nil {
		sub.Notes = opts.notes
	}
	sub.ConfirmedAt = &now
	sub.UpdatedAt = now
	outcome.substitution = sub
	return outcome, nil
}

func (s *SubstitutionService) checkCaps(ctx context.Context, tx *sqlx.Tx, teacherID string, date time.Time) (string, error) {
	pref, err := s.preferences.GetByTeacher(ctx, tx, teacherID)
	if err != nil {
		return "", storageError(err, "failed to load teacher preferences")
	}
	dailyCap, weeklyCap := pref.Caps(s.cfg.DailyCap, s.cfg.WeeklyCap)

	day := daytime.Date(date)
	daily, err := s.repo.CountCommitted(ctx, tx, teacherID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return "", storageError(err, "failed to count daily substitutions")
	}
	if daily >= dailyCap {
		return dto.SkipDailyCap, nil
	}

	from, to := daytime.WeekBounds(day)
	weekly, err := s.repo.CountCommitted(ctx, tx, teacherID, from, to)
	if err != nil {
		return "", storageError(err, "failed to count weekly substitutions")
	}
	if weekly >= weeklyCap {
		return dto.SkipWeeklyCap, nil
	}
	return "", nil
}

func (s *SubstitutionService) loadTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "teacher")
	}
	return teacher, nil
}

func vacancyQuery(sub *models.TeacherSubstitution) AvailabilityQuery {
	query := AvailabilityQuery{
		Date:      sub.SubstitutionDate,
		Window:    sub.Window(),
		SubjectID: sub.SubjectID,
		ClassID:   sub.ClassID,
	}
	if sub.OriginalTeacherID != nil {
		query.ExcludeTeacherIDs = []string{*sub.OriginalTeacherID}
	}
	return query
}

func parseSlot(req dto.SlotRequest) (time.Time, daytime.Window, error) {
	date, err := daytime.ParseDate(req.Date)
	if err != nil {
		return time.Time{}, daytime.Window{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	start, err := daytime.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return time.Time{}, daytime.Window{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
	}
	end, err := daytime.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return time.Time{}, daytime.Window{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
	}
	window, err := daytime.NewWindow(start, end)
	if err != nil {
		return time.Time{}, daytime.Window{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start_time must be before end_time")
	}
	return date, window, nil
}

// checkReferences resolves the subject, class and teacher ids a slot request names.
func (s *SubstitutionService) checkReferences(ctx context.Context, slot dto.SlotRequest, teacherIDs ...*string) error {
	for _, id := range teacherIDs {
		if id == nil || *id == "" {
			continue
		}
		if _, err := s.loadTeacher(ctx, *id); err != nil {
			return err
		}
	}
	if slot.SubjectID != nil {
		if _, err := s.subjects.FindByID(ctx, *slot.SubjectID); err != nil {
			return mapLookupError(err, "subject")
		}
	}
	if slot.ClassID != nil {
		if _, err := s.classes.FindByID(ctx, *slot.ClassID); err != nil {
			return mapLookupError(err, "class")
		}
	}
	return nil
}

func isEscalated(priority models.PriorityLevel) bool {
	return priority == models.PriorityUrgent || priority == models.PriorityHigh
}

// overCapOnly drops emergency options that already rank within the caps.
func overCapOnly(options, ranked []dto.CandidateScore, limit int) []dto.CandidateScore {
	within := make(map[string]struct{}, len(ranked))
	for _, candidate := range ranked {
		within[candidate.Teacher.ID] = struct{}{}
	}
	result := make([]dto.CandidateScore, 0, len(options))
	for _, option := range options {
		if _, ok := within[option.Teacher.ID]; ok {
			continue
		}
		if len(result) == limit {
			break
		}
		result = append(result, option)
	}
	return result
}

func mapLookupError(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return storageError(err, "failed to load "+resource)
}

// storageError keeps PERSISTENCE_FAILURE for failures a retry can fix and reports
// everything else as an internal error.
func storageError(err error, message string) *appErrors.Error {
	if database.IsTransient(err) {
		return appErrors.Persistence(err, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
