// Package config provides configuration loading and management for the sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/healthstats-bd/healthstats-sync/internal/telemetry"
)

// EnvPrefix is the prefix of every environment variable read by the service
const EnvPrefix = "HSS"

const (
	// StorageTypeMemory keeps all records in process memory
	StorageTypeMemory = "memory"

	// StorageTypeFile keeps all records in a single JSON file
	StorageTypeFile = "file"

	// StorageTypeDatabase keeps records in PostgreSQL
	StorageTypeDatabase = "database"

	// StorageTypeMongo keeps records in MongoDB
	StorageTypeMongo = "mongo"
)

// Defaults for every optional setting
const (
	DefaultDistrictBaseURL  = "http://www.iedcr.gov.bd"
	DefaultStatsURL         = "https://corona.gov.bd/lang/en"
	DefaultStatsSelector    = ".live-update-box-wrap-h1>b"
	DefaultDistrictInterval = 30 * time.Minute
	DefaultStatsInterval    = 18 * time.Minute
	DefaultFreezeWindow     = 72 * time.Hour
	DefaultStaleGuardAfter  = time.Hour
	DefaultReportUTCOffset  = 6 * time.Hour
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultMaxAttempts      = 5
	DefaultInitialBackoff   = time.Second
	DefaultStateFile        = "./data/state.json"
	DefaultMongoDatabase    = "healthstats"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path   string
	lookup func(string) (string, bool)
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithEnvLookup replaces the environment lookup, mainly for tests
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(cfg *loaderConfig) error {
		cfg.lookup = lookup
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Sources   SourcesConfig     `yaml:"sources"`
	Sync      SyncConfig        `yaml:"sync,omitempty"`
	HTTP      HTTPConfig        `yaml:"http,omitempty"`
	Storage   StorageConfig     `yaml:"storage,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// SourcesConfig groups the two upstream data sources
type SourcesConfig struct {
	District DistrictSourceConfig `yaml:"district"`
	Stats    StatsSourceConfig    `yaml:"stats"`
}

// DistrictSourceConfig defines where the district report link is published
type DistrictSourceConfig struct {
	// BaseURL is the landing page that links to the current report
	BaseURL string `yaml:"baseURL"`

	// ReportText is the visible text of the anchor pointing at the report.
	// Can be supplied with the REPORT_TEXT or HSS_REPORT_TEXT environment variables.
	ReportText string `yaml:"reportText"`
}

// StatsSourceConfig defines where the national counters are published
type StatsSourceConfig struct {
	// URL is the page holding the counter block
	URL string `yaml:"url"`

	// Selector is the CSS selector matching the 8 counter nodes in order
	Selector string `yaml:"selector,omitempty"`
}

// SyncConfig defines the sync schedule and reconciliation policy
type SyncConfig struct {
	// DistrictInterval is how often the district sync runs (e.g., "30m")
	DistrictInterval string `yaml:"districtInterval,omitempty"`

	// StatsInterval is how often the stats sync runs (e.g., "18m")
	StatsInterval string `yaml:"statsInterval,omitempty"`

	// FreezeWindow is how long a changed count keeps showing its previous value
	FreezeWindow string `yaml:"freezeWindow,omitempty"`

	// ReportUTCOffset is the offset of the report timestamps from UTC
	ReportUTCOffset string `yaml:"reportUTCOffset,omitempty"`

	// SyncOnStart runs both syncs once before the timers start. Defaults to true.
	SyncOnStart *bool `yaml:"syncOnStart,omitempty"`

	// StaleGuardAfter is how long a sync guard may stay set before it is treated as
	// left behind by a process that stopped mid-sync (e.g., "1h")
	StaleGuardAfter string `yaml:"staleGuardAfter,omitempty"`
}

// HTTPConfig defines the behavior of the upstream HTTP client
type HTTPConfig struct {
	// Timeout is the per-request timeout
	Timeout string `yaml:"timeout,omitempty"`

	// MaxAttempts is the number of attempts for 502/503/504 responses
	MaxAttempts uint `yaml:"maxAttempts,omitempty"`

	// InitialBackoff is the wait before the first retry. Later waits double.
	InitialBackoff string `yaml:"initialBackoff,omitempty"`
}

// StorageConfig selects and configures the record store
type StorageConfig struct {
	// Type is one of memory, file, database or mongo. Defaults to file.
	Type     string          `yaml:"type,omitempty"`
	File     *FileConfig     `yaml:"file,omitempty"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
	Mongo    *MongoConfig    `yaml:"mongo,omitempty"`
}

// FileConfig defines local file storage settings
type FileConfig struct {
	// Path is the JSON file holding all records
	Path string `yaml:"path"`
}

// MongoConfig defines MongoDB storage settings
type MongoConfig struct {
	// URI is the connection string. Can be supplied with HSS_MONGO_URI.
	URI string `yaml:"uri,omitempty"`

	// Database is the database name
	Database string `yaml:"database,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// This is the recommended approach for production deployments
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the minimum number of idle connections kept in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from HSS_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable", EnvPrefix,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// LoadConfig loads configuration from a YAML file, fills defaults and applies
// environment overrides. Without a path the configuration is built from defaults
// and environment alone.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	config.applyEnv(newEnvLookup(loaderCfg.lookup))
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// newEnvLookup returns a lookup over the process environment through viper,
// honoring the HSS_ prefix, unless an explicit lookup was injected
func newEnvLookup(lookup func(string) (string, bool)) func(string) (string, bool) {
	if lookup != nil {
		return lookup
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("report_text", EnvPrefix+"_REPORT_TEXT", "REPORT_TEXT")

	return func(key string) (string, bool) {
		if !v.IsSet(key) {
			return "", false
		}
		return v.GetString(key), true
	}
}

// applyEnv overrides file values with environment values
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("report_text"); ok && v != "" {
		c.Sources.District.ReportText = v
	}
	if v, ok := lookup("district_base_url"); ok && v != "" {
		c.Sources.District.BaseURL = v
	}
	if v, ok := lookup("stats_url"); ok && v != "" {
		c.Sources.Stats.URL = v
	}
	if v, ok := lookup("storage_type"); ok && v != "" {
		c.Storage.Type = v
	}
	if v, ok := lookup("mongo_uri"); ok && v != "" {
		if c.Storage.Mongo == nil {
			c.Storage.Mongo = &MongoConfig{}
		}
		c.Storage.Mongo.URI = v
	}
}

// applyDefaults fills every omitted optional setting
func (c *Config) applyDefaults() {
	if c.Sources.District.BaseURL == "" {
		c.Sources.District.BaseURL = DefaultDistrictBaseURL
	}
	if c.Sources.Stats.URL == "" {
		c.Sources.Stats.URL = DefaultStatsURL
	}
	if c.Sources.Stats.Selector == "" {
		c.Sources.Stats.Selector = DefaultStatsSelector
	}
	if c.HTTP.MaxAttempts == 0 {
		c.HTTP.MaxAttempts = DefaultMaxAttempts
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageTypeFile
	}
	if c.Storage.Type == StorageTypeFile && c.Storage.File == nil {
		c.Storage.File = &FileConfig{Path: DefaultStateFile}
	}
	if c.Storage.Mongo != nil && c.Storage.Mongo.Database == "" {
		c.Storage.Mongo.Database = DefaultMongoDatabase
	}
}

// Validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateHTTPURL(c.Sources.District.BaseURL, "sources.district.baseURL"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Sources.District.ReportText) == "" {
		return fmt.Errorf("sources.district.reportText is required (or set REPORT_TEXT)")
	}
	if err := validateHTTPURL(c.Sources.Stats.URL, "sources.stats.url"); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value string
	}{
		{"sync.districtInterval", c.Sync.DistrictInterval},
		{"sync.statsInterval", c.Sync.StatsInterval},
		{"sync.freezeWindow", c.Sync.FreezeWindow},
		{"sync.staleGuardAfter", c.Sync.StaleGuardAfter},
		{"http.timeout", c.HTTP.Timeout},
		{"http.initialBackoff", c.HTTP.InitialBackoff},
	}
	for _, d := range durations {
		if err := validatePositiveDuration(d.value, d.name); err != nil {
			return err
		}
	}

	// The offset may be zero or negative
	if c.Sync.ReportUTCOffset != "" {
		if _, err := time.ParseDuration(c.Sync.ReportUTCOffset); err != nil {
			return fmt.Errorf("sync.reportUTCOffset must be a valid duration (e.g., '6h'): %w", err)
		}
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

// validateStorage ensures the selected storage type has its settings
func (c *Config) validateStorage() error {
	switch c.Storage.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeFile:
		if c.Storage.File == nil || c.Storage.File.Path == "" {
			return fmt.Errorf("storage.file.path is required")
		}
		return nil
	case StorageTypeDatabase:
		return validateDatabaseConfig(c.Storage.Database)
	case StorageTypeMongo:
		if c.Storage.Mongo == nil || c.Storage.Mongo.URI == "" {
			return fmt.Errorf("storage.mongo.uri is required (or set %s_MONGO_URI)", EnvPrefix)
		}
		return nil
	default:
		return fmt.Errorf("storage.type must be one of %s, %s, %s or %s, got %q",
			StorageTypeMemory, StorageTypeFile, StorageTypeDatabase, StorageTypeMongo, c.Storage.Type)
	}
}

func validateDatabaseConfig(db *DatabaseConfig) error {
	if db == nil {
		return fmt.Errorf("storage.database is required when storage.type is %s", StorageTypeDatabase)
	}
	if db.Host == "" {
		return fmt.Errorf("storage.database.host is required")
	}
	if db.Port == 0 {
		return fmt.Errorf("storage.database.port is required")
	}
	if db.User == "" {
		return fmt.Errorf("storage.database.user is required")
	}
	if db.Database == "" {
		return fmt.Errorf("storage.database.database is required")
	}
	if db.ConnMaxLifetime != "" {
		if err := validatePositiveDuration(db.ConnMaxLifetime, "storage.database.connMaxLifetime"); err != nil {
			return err
		}
	}
	return nil
}

func validateHTTPURL(raw, field string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}

func validatePositiveDuration(value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30m', '1h'): %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}

// parseDurationOr parses value, falling back to def when empty or invalid
func parseDurationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// GetDistrictInterval returns the district sync interval
func (s *SyncConfig) GetDistrictInterval() time.Duration {
	return parseDurationOr(s.DistrictInterval, DefaultDistrictInterval)
}

// GetStatsInterval returns the stats sync interval
func (s *SyncConfig) GetStatsInterval() time.Duration {
	return parseDurationOr(s.StatsInterval, DefaultStatsInterval)
}

// GetFreezeWindow returns how long a changed count keeps its previous value
func (s *SyncConfig) GetFreezeWindow() time.Duration {
	return parseDurationOr(s.FreezeWindow, DefaultFreezeWindow)
}

// GetReportUTCOffset returns the offset of report timestamps from UTC
func (s *SyncConfig) GetReportUTCOffset() time.Duration {
	return parseDurationOr(s.ReportUTCOffset, DefaultReportUTCOffset)
}

// GetStaleGuardAfter returns the age after which a set guard is reclaimed
func (s *SyncConfig) GetStaleGuardAfter() time.Duration {
	return parseDurationOr(s.StaleGuardAfter, DefaultStaleGuardAfter)
}

// GetSyncOnStart reports whether both syncs run once at startup
func (s *SyncConfig) GetSyncOnStart() bool {
	if s.SyncOnStart == nil {
		return true
	}
	return *s.SyncOnStart
}

// GetTimeout returns the per-request timeout
func (h *HTTPConfig) GetTimeout() time.Duration {
	return parseDurationOr(h.Timeout, DefaultHTTPTimeout)
}

// GetInitialBackoff returns the wait before the first retry
func (h *HTTPConfig) GetInitialBackoff() time.Duration {
	return parseDurationOr(h.InitialBackoff, DefaultInitialBackoff)
}

// GetMaxAttempts returns the number of attempts for transient failures
func (h *HTTPConfig) GetMaxAttempts() uint {
	if h.MaxAttempts == 0 {
		return DefaultMaxAttempts
	}
	return h.MaxAttempts
}
