package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis configuration (perceptual-hash index)
	Redis RedisConfig

	// NATS configuration (pass event publishing)
	NATS NATSConfig

	// Storage configuration
	Storage StorageConfig

	// Run configuration for scrape and download passes
	Run RunConfig

	// Pass selection for one invocation
	Pass PassConfig

	// SitesFile is the path of the site definition file.
	SitesFile string

	// Observability
	Environment string
	LogLevel    string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
}

// StorageConfig holds download and archival storage configuration
type StorageConfig struct {
	// Root is the local directory holding one subdirectory per site.
	Root string
	// PreviewRoot holds preview imagery fetched during scrape passes.
	PreviewRoot string

	// S3 mirror of completed downloads; disabled when Bucket is empty.
	S3Bucket   string
	S3Region   string
	S3Endpoint string
}

// RunConfig gathers the knobs of one scrape or download pass. The
// retry ceiling and delays live here rather than at call sites so a
// run's behavior is declared in one place.
type RunConfig struct {
	// MaxRetries is the attempt ceiling per candidate or file.
	MaxRetries int
	// RetryDelay is the pause between attempts of one unit.
	RetryDelay time.Duration
	// CandidateDelay rate-limits successive candidates within a page.
	CandidateDelay time.Duration
	// PageDelay rate-limits page navigation.
	PageDelay time.Duration
	// MinFreeSpace is the free-space floor checked before each
	// transfer; below it the whole download pass aborts.
	MinFreeSpace uint64
	// MaxDownloads caps the files fetched in one pass; zero means
	// unlimited.
	MaxDownloads int
	// ProgressEvery controls how often (in releases) a download pass
	// logs remaining-work counts.
	ProgressEvery int
}

// PassConfig selects what one invocation does. Filters are string
// typed here; main parses them into domain conditions.
type PassConfig struct {
	// Sites restricts the run to these short names; empty means every
	// site in the sites file.
	Sites []string
	// Scrape and Download toggle the two pass kinds.
	Scrape   bool
	Download bool
	// Mode is "incremental" or "full-refresh".
	Mode string
	// Quality is "best", "worst" or "nearest-by-hash".
	Quality string
	// From and To bound release dates, "2006-01-02".
	From string
	To   string
	// Performer restricts downloads to one performer short name.
	Performer string
}

const defaultMinFreeSpace = 5 << 30 // 5 GiB

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "riptide"),
			Password:     getEnv("DB_PASSWORD", "riptide"),
			Database:     getEnv("DB_NAME", "riptide"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			Enabled: getEnvAsBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "RIPTIDE"),
		},
		Storage: StorageConfig{
			Root:        getEnv("STORAGE_ROOT", "/var/riptide/media"),
			PreviewRoot: getEnv("STORAGE_PREVIEW_ROOT", "/var/riptide/previews"),
			S3Bucket:    getEnv("S3_BUCKET", ""),
			S3Region:    getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		},
		Run: RunConfig{
			MaxRetries:     getEnvAsInt("RUN_MAX_RETRIES", 3),
			RetryDelay:     getEnvAsDuration("RUN_RETRY_DELAY", 2*time.Second),
			CandidateDelay: getEnvAsDuration("RUN_CANDIDATE_DELAY", time.Second),
			PageDelay:      getEnvAsDuration("RUN_PAGE_DELAY", 2*time.Second),
			MinFreeSpace:   getEnvAsUint64("RUN_MIN_FREE_SPACE", defaultMinFreeSpace),
			MaxDownloads:   getEnvAsInt("RUN_MAX_DOWNLOADS", 0),
			ProgressEvery:  getEnvAsInt("RUN_PROGRESS_EVERY", 10),
		},
		Pass: PassConfig{
			Sites:     getEnvAsSlice("PASS_SITES"),
			Scrape:    getEnvAsBool("PASS_SCRAPE", true),
			Download:  getEnvAsBool("PASS_DOWNLOAD", true),
			Mode:      getEnv("PASS_MODE", "incremental"),
			Quality:   getEnv("PASS_QUALITY", "best"),
			From:      getEnv("PASS_FROM", ""),
			To:        getEnv("PASS_TO", ""),
			Performer: getEnv("PASS_PERFORMER", ""),
		},
		SitesFile:   getEnv("SITES_FILE", "sites.json"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// DSN returns the database connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := strconv.ParseUint(strValue, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return nil
	}
	parts := strings.Split(strValue, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return defaultValue
}
