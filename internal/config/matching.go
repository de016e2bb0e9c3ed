package config

import (
	"fmt"
	"time"

	"fleetdispatch/internal/utils"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// MatchingConfig tunes candidate search, scoring and assignment.
type MatchingConfig struct {
	DefaultLimit    int           `yaml:"default_limit"`
	DefaultRadiusKM float64       `yaml:"default_radius_km"`
	DefaultMinScore float64       `yaml:"default_min_score"`
	MaxCandidates   int64         `yaml:"max_candidates"`
	ScoringWorkers  int           `yaml:"scoring_workers"`
	Timezone        string        `yaml:"timezone"`
	CitySpeedKMH    float64       `yaml:"city_speed_kmh"`
	AssignTimeout   time.Duration `yaml:"assign_timeout"`
	BatchInterval   time.Duration `yaml:"batch_interval"`
	BatchBurst      int           `yaml:"batch_burst"`
	LockBackend     string        `yaml:"lock_backend"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	NotifyTimeout   time.Duration `yaml:"notify_timeout"`
}

func loadMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		DefaultLimit:    getEnvAsInt("MATCH_DEFAULT_LIMIT", utils.DefaultMatchLimit),
		DefaultRadiusKM: getEnvAsFloat64("MATCH_DEFAULT_RADIUS_KM", utils.DefaultSearchRadiusKM),
		DefaultMinScore: getEnvAsFloat64("MATCH_DEFAULT_MIN_SCORE", utils.DefaultMinMatchScore),
		MaxCandidates:   int64(getEnvAsInt("MATCH_MAX_CANDIDATES", 200)),
		ScoringWorkers:  getEnvAsInt("MATCH_SCORING_WORKERS", 8),
		Timezone:        getEnv("MATCH_TIMEZONE", getEnv("APP_TIMEZONE", utils.DefaultTimeZone)),
		CitySpeedKMH:    getEnvAsFloat64("MATCH_CITY_SPEED_KMH", utils.DefaultCitySpeedKMH),
		AssignTimeout:   getEnvAsDuration("MATCH_ASSIGN_TIMEOUT", utils.AssignmentTimeout),
		BatchInterval:   getEnvAsDuration("MATCH_BATCH_INTERVAL", 50*time.Millisecond),
		BatchBurst:      getEnvAsInt("MATCH_BATCH_BURST", 5),
		LockBackend:     getEnv("MATCH_LOCK_BACKEND", LockBackendMemory),
		LockTTL:         getEnvAsDuration("MATCH_LOCK_TTL", utils.TripLockTTL),
		NotifyTimeout:   getEnvAsDuration("MATCH_NOTIFY_TIMEOUT", 3*time.Second),
	}
}

func (c *MatchingConfig) Validate() error {
	switch {
	case c.DefaultLimit <= 0 || c.DefaultLimit > utils.MaxMatchLimit:
		return fmt.Errorf("MATCH_DEFAULT_LIMIT must be between 1 and %d", utils.MaxMatchLimit)
	case c.DefaultRadiusKM <= 0 || c.DefaultRadiusKM > utils.MaxSearchRadiusKM:
		return fmt.Errorf("MATCH_DEFAULT_RADIUS_KM must be between 0 and %.0f", utils.MaxSearchRadiusKM)
	case c.DefaultMinScore < 0 || c.DefaultMinScore > utils.MaxMatchScore:
		return fmt.Errorf("MATCH_DEFAULT_MIN_SCORE must be between 0 and 100")
	case c.LockBackend != LockBackendMemory && c.LockBackend != LockBackendRedis:
		return fmt.Errorf("unknown MATCH_LOCK_BACKEND %q", c.LockBackend)
	}
	return nil
}
