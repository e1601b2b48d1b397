package service

import (
	"math"
	"sort"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
)

// highReliability is the reliability score from which a candidate is flagged as dependable.
const highReliability = 80

// Criteria is what a vacancy asks of its substitute. Nil fields contribute nothing to the score.
type Criteria struct {
	SubjectID *string
	ClassID   *string
}

// Scorer ranks candidates by subject competency, class familiarity and reliability.
type Scorer struct {
	weights   config.ScoringWeights
	threshold float64
}

// NewScorer validates the weights against threshold so that a subject match always
// outranks a class match, which always outranks reliability alone.
func NewScorer(weights config.ScoringWeights, threshold float64) (*Scorer, error) {
	if err := config.ValidateWeights(weights, threshold); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights, threshold: threshold}, nil
}

// Threshold is the confidence from which a recommendation is considered optimal.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score computes one candidate's confidence.
func (s *Scorer) Score(candidate models.TeacherProfile, criteria Criteria, reliability int) dto.CandidateScore {
	if reliability < 0 {
		reliability = 0
	}
	if reliability > 100 {
		reliability = 100
	}

	score := s.weights.Baseline
	reasons := []string{}
	if criteria.SubjectID != nil && candidate.TeachesSubject(*criteria.SubjectID) {
		score += s.weights.Subject
		reasons = append(reasons, dto.ReasonSubjectExpertise)
	}
	if criteria.ClassID != nil && candidate.KnowsClass(*criteria.ClassID) {
		score += s.weights.Class
		reasons = append(reasons, dto.ReasonClassFamiliarity)
	}
	score += float64(reliability) / 100 * s.weights.Reliability
	if reliability >= highReliability {
		reasons = append(reasons, dto.ReasonHighReliability)
	}

	return dto.CandidateScore{
		Teacher:          candidate.Teacher,
		ConfidenceScore:  roundTo(math.Min(1, math.Max(0, score)), 4),
		ReliabilityScore: reliability,
		MatchReasons:     reasons,
	}
}

// Rank scores every candidate and orders them best first. Equal scores fall back to
// reliability, then name, then id so the ranking is stable across calls.
func (s *Scorer) Rank(candidates []models.TeacherProfile, criteria Criteria, reliability map[string]int) []dto.CandidateScore {
	ranked := make([]dto.CandidateScore, 0, len(candidates))
	for _, candidate := range candidates {
		ranked = append(ranked, s.Score(candidate, criteria, reliability[candidate.ID]))
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.ConfidenceScore != b.ConfidenceScore {
			return a.ConfidenceScore > b.ConfidenceScore
		}
		if a.ReliabilityScore != b.ReliabilityScore {
			return a.ReliabilityScore > b.ReliabilityScore
		}
		if a.Teacher.FullName != b.Teacher.FullName {
			return a.Teacher.FullName < b.Teacher.FullName
		}
		return a.Teacher.ID < b.Teacher.ID
	})
	return ranked
}

// Strategy classifies a ranking.
func (s *Scorer) Strategy(ranked []dto.CandidateScore) string {
	switch {
	case len(ranked) == 0:
		return dto.StrategyEmergency
	case ranked[0].ConfidenceScore >= s.threshold:
		return dto.StrategyOptimal
	default:
		return dto.StrategyBestAvailable
	}
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
