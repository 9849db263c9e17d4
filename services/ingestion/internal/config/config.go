package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	State     string
	StateFIPS string

	ScorecardAPIBaseURL string
	ScorecardAPIKey     string
	ScorecardPerPage    int
	ScorecardTimeout    time.Duration
	CIPFamilies         []string

	BLSAPIBaseURL    string
	BLSAPIKeys       []string
	BLSAPITimeout    time.Duration
	BLSBatchSize     int
	BLSBatchDelay    time.Duration
	BLSStartYear     int
	BLSEndYear       int
	BLSAreaType      string
	BLSStatisticType string
	BLSIndustry      string
	BLSSurveyPrefix  string

	CrosswalkPath   string
	CrosswalkRollup bool

	PollingInterval time.Duration
	LogDevelopment  bool

	NATSURL         string
	NATSConnTimeout time.Duration

	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CacheSize     int

	OTELCollectorURL string
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory if one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	state := strings.ToUpper(getEnvString("TARGET_STATE", "TX"))
	fips, ok := StateFIPS[state]
	if !ok {
		return nil, fmt.Errorf("invalid state abbreviation %q", state)
	}

	config := &Config{
		State:     state,
		StateFIPS: fips,

		ScorecardAPIBaseURL: getEnvString("SCORECARD_API_BASE_URL", "https://api.data.gov/ed/collegescorecard/v1"),
		ScorecardAPIKey:     getEnvString("DATA_GOV_API_KEY", ""),
		ScorecardPerPage:    getEnvInt("SCORECARD_PER_PAGE", 100),
		ScorecardTimeout:    getEnvDuration("SCORECARD_API_TIMEOUT", 30*time.Second),
		CIPFamilies:         getEnvList("TARGET_CIP_FAMILIES", []string{"46", "47", "48"}),

		BLSAPIBaseURL:    getEnvString("BLS_API_BASE_URL", "https://api.bls.gov/publicAPI/v2"),
		BLSAPIKeys:       getEnvList("BLS_API_KEY", nil),
		BLSAPITimeout:    getEnvDuration("BLS_API_TIMEOUT", 30*time.Second),
		BLSBatchSize:     getEnvInt("BLS_BATCH_SIZE", 50),
		BLSBatchDelay:    getEnvDuration("BLS_BATCH_DELAY", time.Second),
		BLSStartYear:     getEnvInt("BLS_START_YEAR", 2023),
		BLSEndYear:       getEnvInt("BLS_END_YEAR", 2024),
		BLSAreaType:      getEnvString("BLS_AREA_TYPE", "S"),
		BLSStatisticType: getEnvString("BLS_STATISTIC_TYPE", "04"),
		BLSIndustry:      getEnvString("BLS_INDUSTRY", "000000"),
		BLSSurveyPrefix:  getEnvString("BLS_SURVEY_PREFIX", "OEU"),

		CrosswalkPath:   getEnvString("CROSSWALK_PATH", "CIP_SOC_Crosswalk.csv"),
		CrosswalkRollup: getEnvBool("CROSSWALK_ROLLUP", true),

		PollingInterval: getEnvDuration("POLLING_INTERVAL", 0),
		LogDevelopment:  getEnvBool("LOG_DEVELOPMENT", false),

		NATSURL:         getEnvString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		CacheEnabled:  getEnvBool("CACHE_ENABLED", true),
		RedisAddr:     getEnvString("REDIS_ADDR", ""),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),
		CacheSize:     getEnvInt("CACHE_SIZE", 1024),

		OTELCollectorURL: getEnvString("OTEL_COLLECTOR_URL", ""),
	}

	if config.BLSStartYear > config.BLSEndYear {
		return nil, fmt.Errorf("BLS_START_YEAR %d is after BLS_END_YEAR %d", config.BLSStartYear, config.BLSEndYear)
	}
	return config, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits on commas, semicolons and whitespace.
func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return defaultValue
	}
	return fields
}
