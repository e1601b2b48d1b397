package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsAreValid(t *testing.T) {
	require.NoError(t, ValidateWeights(DefaultScoringWeights(), 0.7))
}

func TestValidateWeightsRejectsBrokenOrdering(t *testing.T) {
	cases := map[string]ScoringWeights{
		"class outweighs subject":     {Baseline: 0.05, Subject: 0.3, Class: 0.5, Reliability: 0.1},
		"reliability outweighs class": {Baseline: 0.05, Subject: 0.6, Class: 0.1, Reliability: 0.2},
		"below threshold":             {Baseline: 0, Subject: 0.4, Class: 0.2, Reliability: 0.1},
		"sum above one":               {Baseline: 0.2, Subject: 0.6, Class: 0.3, Reliability: 0.1},
	}
	for name, weights := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateWeights(weights, 0.7))
		})
	}
}

func TestParsePolicy(t *testing.T) {
	raw := []byte(`
dailyCap: 2
highConfidence: 0.75
weights:
  baseline: 0.04
  subject: 0.55
  class: 0.3
  reliability: 0.1
`)
	policy, err := ParsePolicy(raw)
	require.NoError(t, err)

	cfg := SubstitutionConfig{DailyCap: 3, WeeklyCap: 12, HighConfidenceThreshold: 0.7, Weights: DefaultScoringWeights()}
	policy.Apply(&cfg)

	assert.Equal(t, 2, cfg.DailyCap)
	assert.Equal(t, 12, cfg.WeeklyCap)
	assert.InDelta(t, 0.75, cfg.HighConfidenceThreshold, 1e-9)
	assert.InDelta(t, 0.55, cfg.Weights.Subject, 1e-9)
}

func TestParsePolicyRejectsInvalidCap(t *testing.T) {
	_, err := ParsePolicy([]byte("dailyCap: -1\n"))
	assert.Error(t, err)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backupCount: 5\n"), 0o600))

	policy, err := LoadPolicyFile(path)
	require.NoError(t, err)
	require.NotNil(t, policy.BackupCount)
	assert.Equal(t, 5, *policy.BackupCount)

	_, err = LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
