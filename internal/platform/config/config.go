package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures service-level configuration. Tunables default to the values
// the product team signed off on; all can be overridden per environment.
type Server struct {
	Addr         string
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string

	// Eligibility tuning
	ConfidenceFloor float64
	CategoryWeight  float64
	FieldWeight     float64
	EvalParallelism int
	CacheTTL        time.Duration

	// Requirement resolution
	RenewalGraceWindow time.Duration

	// Workflow orchestration
	MaxStepRetries   int
	RetryBackoffBase time.Duration
	StaleAfter       time.Duration
	StaleSweepEvery  time.Duration

	// External collaborators
	AuthorityDirectoryFile string
	SubmissionBaseURL      string
	SubmissionAPIKey       string

	Environment string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("BENEFITFLOW_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		ConfidenceFloor:    envFloat("ALTERNATIVE_CONFIDENCE_FLOOR", 0.3),
		CategoryWeight:     envFloat("SIMILARITY_CATEGORY_WEIGHT", 2.0),
		FieldWeight:        envFloat("SIMILARITY_FIELD_WEIGHT", 1.0),
		EvalParallelism:    envInt("EVAL_PARALLELISM", 8),
		CacheTTL:           envDuration("ELIGIBILITY_CACHE_TTL", 5*time.Minute),
		RenewalGraceWindow: envDuration("RENEWAL_GRACE_WINDOW", 30*24*time.Hour),
		MaxStepRetries:     envInt("MAX_STEP_RETRIES", 3),
		RetryBackoffBase:   envDuration("RETRY_BACKOFF_BASE", time.Hour),
		StaleAfter:         envDuration("AUTHORITY_STALE_AFTER", 30*24*time.Hour),
		StaleSweepEvery:    envDuration("STALE_SWEEP_INTERVAL", time.Hour),

		AuthorityDirectoryFile: os.Getenv("AUTHORITY_DIRECTORY_FILE"),
		SubmissionBaseURL:      os.Getenv("SUBMISSION_BASE_URL"),
		SubmissionAPIKey:       os.Getenv("SUBMISSION_API_KEY"),

		Environment: envOr("ENVIRONMENT", "development"),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
