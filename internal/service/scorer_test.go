package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	scorer, err := NewScorer(config.DefaultScoringWeights(), 0.7)
	require.NoError(t, err)
	return scorer
}

func TestScorerOrderingHoldsForAnyReliability(t *testing.T) {
	scorer := newTestScorer(t)
	criteria := Criteria{SubjectID: strPtr("math"), ClassID: strPtr("10A")}

	both := profile("both", "Both", []string{"math"}, []string{"10A"})
	subject := profile("subject", "Subject", []string{"math"}, nil)
	class := profile("class", "Class", nil, []string{"10A"})
	neither := profile("neither", "Neither", []string{"bio"}, []string{"11B"})

	levels := []int{0, 25, 50, 79, 80, 100}
	for _, low := range levels {
		for _, high := range levels {
			assert.Greater(t, scorer.Score(both, criteria, low).ConfidenceScore, scorer.Score(subject, criteria, high).ConfidenceScore)
			assert.Greater(t, scorer.Score(subject, criteria, low).ConfidenceScore, scorer.Score(class, criteria, high).ConfidenceScore)
			assert.Greater(t, scorer.Score(class, criteria, low).ConfidenceScore, scorer.Score(neither, criteria, high).ConfidenceScore)
		}
	}
}

func TestScorerScoreComponentsAndReasons(t *testing.T) {
	scorer := newTestScorer(t)
	criteria := Criteria{SubjectID: strPtr("math"), ClassID: strPtr("10A")}

	got := scorer.Score(profile("t1", "Ani", []string{"math"}, []string{"10A"}), criteria, 100)
	assert.InDelta(t, 1.0, got.ConfidenceScore, 1e-9)
	assert.Equal(t, 100, got.ReliabilityScore)
	assert.Equal(t, []string{dto.ReasonSubjectExpertise, dto.ReasonClassFamiliarity, dto.ReasonHighReliability}, got.MatchReasons)

	got = scorer.Score(profile("t2", "Budi", nil, nil), criteria, 50)
	assert.InDelta(t, 0.125, got.ConfidenceScore, 1e-9)
	assert.Empty(t, got.MatchReasons)
	assert.NotNil(t, got.MatchReasons)

	got = scorer.Score(profile("t3", "Citra", nil, nil), criteria, 150)
	assert.Equal(t, 100, got.ReliabilityScore)
	assert.InDelta(t, 0.2, got.ConfidenceScore, 1e-9)
}

func TestScorerMissingCriteriaContributeNothing(t *testing.T) {
	scorer := newTestScorer(t)
	got := scorer.Score(profile("t1", "Ani", []string{"math"}, []string{"10A"}), Criteria{}, 0)
	assert.InDelta(t, 0.05, got.ConfidenceScore, 1e-9)
}

func TestScorerRankBreaksTiesByNameThenID(t *testing.T) {
	scorer := newTestScorer(t)
	candidates := []models.TeacherProfile{
		profile("t-9", "Citra", nil, nil),
		profile("t-2", "Agus", nil, nil),
		profile("t-1", "Agus", nil, nil),
		profile("t-5", "Budi", []string{"math"}, nil),
	}
	ranked := scorer.Rank(candidates, Criteria{SubjectID: strPtr("math")}, map[string]int{})
	require.Len(t, ranked, 4)
	got := []string{ranked[0].Teacher.ID, ranked[1].Teacher.ID, ranked[2].Teacher.ID, ranked[3].Teacher.ID}
	assert.Equal(t, []string{"t-5", "t-1", "t-2", "t-9"}, got)
}

func TestScorerRankPrefersReliabilityOnEqualScore(t *testing.T) {
	scorer, err := NewScorer(config.ScoringWeights{Baseline: 0.05, Subject: 0.5, Class: 0.3, Reliability: 0}, 0.7)
	require.NoError(t, err)
	candidates := []models.TeacherProfile{
		profile("t-1", "Agus", []string{"math"}, nil),
		profile("t-2", "Budi", []string{"math"}, nil),
		profile("t-3", "Citra", []string{"math"}, nil),
	}
	ranked := scorer.Rank(candidates, Criteria{SubjectID: strPtr("math")}, map[string]int{"t-2": 90, "t-3": 40})
	require.Len(t, ranked, 3)
	for _, candidate := range ranked {
		assert.InDelta(t, 0.55, candidate.ConfidenceScore, 1e-9)
	}
	got := []string{ranked[0].Teacher.ID, ranked[1].Teacher.ID, ranked[2].Teacher.ID}
	assert.Equal(t, []string{"t-2", "t-3", "t-1"}, got)
}

func TestScorerStrategy(t *testing.T) {
	scorer := newTestScorer(t)
	assert.Equal(t, dto.StrategyEmergency, scorer.Strategy(nil))
	assert.Equal(t, dto.StrategyOptimal, scorer.Strategy([]dto.CandidateScore{{ConfidenceScore: 0.7}}))
	assert.Equal(t, dto.StrategyBestAvailable, scorer.Strategy([]dto.CandidateScore{{ConfidenceScore: 0.69}}))
}

func TestNewScorerRejectsWeightsBreakingOrder(t *testing.T) {
	_, err := NewScorer(config.ScoringWeights{Baseline: 0.05, Subject: 0.3, Class: 0.3, Reliability: 0.2}, 0.7)
	assert.Error(t, err)
}
