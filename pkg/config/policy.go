package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Policy is the optional YAML override for the matching policy, e.g.
//
//	dailyCap: 3
//	weeklyCap: 12
//	highConfidence: 0.7
//	weights:
//	  baseline: 0.05
//	  subject: 0.5
//	  class: 0.3
//	  reliability: 0.15
type Policy struct {
	DailyCap       *int            `yaml:"dailyCap,omitempty" validate:"omitempty,min=1"`
	WeeklyCap      *int            `yaml:"weeklyCap,omitempty" validate:"omitempty,min=1"`
	HighConfidence *float64        `yaml:"highConfidence,omitempty" validate:"omitempty,gt=0,lt=1"`
	BackupCount    *int            `yaml:"backupCount,omitempty" validate:"omitempty,min=0,max=10"`
	Weights        *ScoringWeights `yaml:"weights,omitempty"`
}

var policyValidator = validator.New()

// LoadPolicyFile reads and validates a policy file.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy and checks the ranking guarantees of its weights.
func ParsePolicy(data []byte) (*Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := policyValidator.Struct(policy); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}
	if policy.Weights != nil {
		threshold := 0.7
		if policy.HighConfidence != nil {
			threshold = *policy.HighConfidence
		}
		if err := ValidateWeights(*policy.Weights, threshold); err != nil {
			return nil, err
		}
	}
	return &policy, nil
}

// Apply overlays the policy onto cfg.
func (p *Policy) Apply(cfg *SubstitutionConfig) {
	if p == nil || cfg == nil {
		return
	}
	if p.DailyCap != nil {
		cfg.DailyCap = *p.DailyCap
	}
	if p.WeeklyCap != nil {
		cfg.WeeklyCap = *p.WeeklyCap
	}
	if p.HighConfidence != nil {
		cfg.HighConfidenceThreshold = *p.HighConfidence
	}
	if p.BackupCount != nil {
		cfg.BackupCount = *p.BackupCount
	}
	if p.Weights != nil {
		cfg.Weights = *p.Weights
	}
}

// ValidateWeights enforces the ordering invariants of the scorer:
// subject+class > subject-only > class-only > no match, whatever the reliability.
func ValidateWeights(w ScoringWeights, threshold float64) error {
	if err := policyValidator.Struct(w); err != nil {
		return fmt.Errorf("invalid scoring weights: %w", err)
	}
	if w.Subject <= w.Class+w.Reliability {
		return fmt.Errorf("subject weight %.2f must exceed class+reliability %.2f", w.Subject, w.Class+w.Reliability)
	}
	if w.Class <= w.Reliability {
		return fmt.Errorf("class weight %.2f must exceed reliability weight %.2f", w.Class, w.Reliability)
	}
	if w.Baseline+w.Subject+w.Class <= threshold {
		return fmt.Errorf("baseline+subject+class %.2f must exceed high confidence threshold %.2f", w.Baseline+w.Subject+w.Class, threshold)
	}
	if w.Baseline+w.Subject+w.Class+w.Reliability > 1.0000001 {
		return fmt.Errorf("scoring weights sum to %.2f, must not exceed 1", w.Baseline+w.Subject+w.Class+w.Reliability)
	}
	return nil
}
