package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Substitution SubstitutionConfig
	Performance  PerformanceConfig
	Jobs         JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SubstitutionConfig holds the matching policy. Weights and caps may be overridden by the
// YAML policy file referenced in PolicyFile.
type SubstitutionConfig struct {
	DailyCap                int
	WeeklyCap               int
	HighConfidenceThreshold float64
	BackupCount             int
	ReliabilityPeriodMonths int
	Weights                 ScoringWeights
	PolicyFile              string
}

// ScoringWeights are the additive components of a candidate's confidence score.
type ScoringWeights struct {
	Baseline    float64 `yaml:"baseline" validate:"gte=0,lte=1"`
	Subject     float64 `yaml:"subject" validate:"gt=0,lte=1"`
	Class       float64 `yaml:"class" validate:"gt=0,lte=1"`
	Reliability float64 `yaml:"reliability" validate:"gte=0,lte=1"`
}

// PerformanceConfig governs the reliability cache.
type PerformanceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// JobsConfig sizes the background queue and the completion sweep.
type JobsConfig struct {
	Workers                 int
	Retries                 int
	RetryDelay              time.Duration
	CompletionSweepInterval time.Duration
	PerformanceRefresh      time.Duration
}

// DefaultScoringWeights satisfy the ranking guarantees: subject > class + reliability,
// class > reliability and baseline + subject + class above the high confidence threshold.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{Baseline: 0.05, Subject: 0.50, Class: 0.30, Reliability: 0.15}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Substitution = SubstitutionConfig{
		DailyCap:                v.GetInt("SUBSTITUTION_DAILY_CAP"),
		WeeklyCap:               v.GetInt("SUBSTITUTION_WEEKLY_CAP"),
		HighConfidenceThreshold: v.GetFloat64("SUBSTITUTION_HIGH_CONFIDENCE"),
		BackupCount:             v.GetInt("SUBSTITUTION_BACKUP_COUNT"),
		ReliabilityPeriodMonths: v.GetInt("SUBSTITUTION_RELIABILITY_MONTHS"),
		Weights: ScoringWeights{
			Baseline:    v.GetFloat64("SUBSTITUTION_WEIGHT_BASELINE"),
			Subject:     v.GetFloat64("SUBSTITUTION_WEIGHT_SUBJECT"),
			Class:       v.GetFloat64("SUBSTITUTION_WEIGHT_CLASS"),
			Reliability: v.GetFloat64("SUBSTITUTION_WEIGHT_RELIABILITY"),
		},
		PolicyFile: v.GetString("SUBSTITUTION_POLICY_FILE"),
	}

	if cfg.Substitution.PolicyFile != "" {
		policy, err := LoadPolicyFile(cfg.Substitution.PolicyFile)
		if err != nil {
			return nil, err
		}
		policy.Apply(&cfg.Substitution)
	}

	cfg.Performance = PerformanceConfig{
		CacheEnabled: v.GetBool("PERFORMANCE_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("PERFORMANCE_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers:                 v.GetInt("JOBS_WORKERS"),
		Retries:                 v.GetInt("JOBS_RETRIES"),
		RetryDelay:              parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
		CompletionSweepInterval: parseDuration(v.GetString("COMPLETION_SWEEP_INTERVAL"), 10*time.Minute),
		PerformanceRefresh:      parseDuration(v.GetString("PERFORMANCE_REFRESH_INTERVAL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_substitution")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	weights := DefaultScoringWeights()
	v.SetDefault("SUBSTITUTION_DAILY_CAP", 3)
	v.SetDefault("SUBSTITUTION_WEEKLY_CAP", 12)
	v.SetDefault("SUBSTITUTION_HIGH_CONFIDENCE", 0.7)
	v.SetDefault("SUBSTITUTION_BACKUP_COUNT", 3)
	v.SetDefault("SUBSTITUTION_RELIABILITY_MONTHS", 6)
	v.SetDefault("SUBSTITUTION_WEIGHT_BASELINE", weights.Baseline)
	v.SetDefault("SUBSTITUTION_WEIGHT_SUBJECT", weights.Subject)
	v.SetDefault("SUBSTITUTION_WEIGHT_CLASS", weights.Class)
	v.SetDefault("SUBSTITUTION_WEIGHT_RELIABILITY", weights.Reliability)
	v.SetDefault("SUBSTITUTION_POLICY_FILE", "")

	v.SetDefault("PERFORMANCE_CACHE_ENABLED", false)
	v.SetDefault("PERFORMANCE_CACHE_TTL", "15m")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")
	v.SetDefault("COMPLETION_SWEEP_INTERVAL", "10m")
	v.SetDefault("PERFORMANCE_REFRESH_INTERVAL", "1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
