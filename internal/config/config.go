package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "READY"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against BaseDir, or the executable directory when BaseDir is empty.
type PathsConfig struct {
	BaseDir  string `yaml:"base_dir" envconfig:"BASE_DIR"`
	MediaDir string `yaml:"media_dir" envconfig:"MEDIA_DIR"`
	LogsDir  string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ReportConfig holds the report engine and upload limits.
type ReportConfig struct {
	BatchWorkers      int    `yaml:"batch_workers" envconfig:"BATCH_WORKERS"`
	MaxUploadMB       int64  `yaml:"max_upload_mb" envconfig:"MAX_UPLOAD_MB"`
	MaxFiles          int    `yaml:"max_files" envconfig:"MAX_FILES"`
	MinDate           string `yaml:"min_date" envconfig:"MIN_DATE"`
	MaxDate           string `yaml:"max_date" envconfig:"MAX_DATE"`
	DefaultDateFormat string `yaml:"default_date_format" envconfig:"DEFAULT_DATE_FORMAT"`
	KeepStaging       bool   `yaml:"keep_staging" envconfig:"KEEP_STAGING"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, then the YAML config file if one
// is found, then READY_* environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg. Keys absent from
// the file keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Report.BatchWorkers < 1 {
		return fmt.Errorf("report batch workers must be at least 1, got %d", c.Report.BatchWorkers)
	}

	if c.Report.MaxUploadMB < 1 {
		return fmt.Errorf("report max upload size must be at least 1 MB")
	}

	if c.Report.MaxFiles < 1 {
		return fmt.Errorf("report max files must be at least 1")
	}

	minDate, err := time.Parse(time.DateOnly, c.Report.MinDate)
	if err != nil {
		return fmt.Errorf("invalid report min date %q: %w", c.Report.MinDate, err)
	}
	maxDate, err := time.Parse(time.DateOnly, c.Report.MaxDate)
	if err != nil {
		return fmt.Errorf("invalid report max date %q: %w", c.Report.MaxDate, err)
	}
	if !minDate.Before(maxDate) {
		return fmt.Errorf("report min date %s must be before max date %s", c.Report.MinDate, c.Report.MaxDate)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1], got %v", c.Telemetry.SampleRatio)
	}

	// JSON is the only supported log format.
	c.Logging.Format = "json"

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists.
// READY_CONFIG_FILE takes precedence over the well-known locations.
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  5 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: false,
		},
		Paths: PathsConfig{
			MediaDir: "media",
			LogsDir:  "logs",
		},
		Report: ReportConfig{
			BatchWorkers:      4,
			MaxUploadMB:       64,
			MaxFiles:          50,
			MinDate:           "1984-01-01",
			MaxDate:           "2200-01-01",
			DefaultDateFormat: "DD/MM/YYYY",
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			EnableTracing:  true,
			EnableMetrics:  true,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
