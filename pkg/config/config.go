package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the environment variable holding the default config file path
const EnvConfigFile = "HARBOR_CONFIG"

// ErrMissingActingUser is returned when no user to act as was given by flag,
// config file, or environment.
var ErrMissingActingUser = errors.New("no user given: set --user/--admin-user or HARBOR_ADMIN_USER")

// Config holds all tool configuration
type Config struct {
	// Harbor connection
	Harbor HarborConfig `yaml:"harbor"`

	// Bulk provisioning behaviour
	Provision ProvisionConfig `yaml:"provision"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`

	// Object storage for s3:// CSV locations
	S3 S3Config `yaml:"s3"`
}

// HarborConfig holds the Harbor endpoint and credentials
type HarborConfig struct {
	Host     string        `yaml:"host"`
	User     string        `yaml:"user"`
	Password string        `yaml:"-"` // environment or prompt only
	Insecure bool          `yaml:"insecure"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ProvisionConfig holds settings for the CSV provisioning run
type ProvisionConfig struct {
	DefaultProjects        []string      `yaml:"default_projects"`
	CreateProjectIfMissing bool          `yaml:"create_project_if_missing"`
	SettleDelay            time.Duration `yaml:"settle_delay"`
	PollInterval           time.Duration `yaml:"poll_interval"`
	PollAttempts           int           `yaml:"poll_attempts"`
	ProjectCacheSize       int           `yaml:"project_cache_size"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Metrics textfile, empty disables
	MetricsFile string `yaml:"metrics_file"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// S3Config holds S3 settings used when the CSV lives in a bucket
type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"-"` // environment only
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Harbor: HarborConfig{
			Timeout: 30 * time.Second,
		},
		Provision: ProvisionConfig{
			SettleDelay:      200 * time.Millisecond,
			PollInterval:     200 * time.Millisecond,
			PollAttempts:     5,
			ProjectCacheSize: 128,
		},
		Observability: ObservabilityConfig{
			LogLevel:        "info",
			LogFormat:       "text",
			OTelEndpoint:    "localhost:4317",
			OTelServiceName: "harbor-usertools",
			OTelInsecure:    true,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $HARBOR_CONFIG when path is empty) and the environment, in that order.
// Flags are applied by the caller afterwards, followed by Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	ApplyEnv(cfg)
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays HARBOR_* environment variables onto cfg
func ApplyEnv(cfg *Config) {
	cfg.Harbor.Host = getEnv("HARBOR_HOST", cfg.Harbor.Host)
	cfg.Harbor.User = getEnv("HARBOR_ADMIN_USER", cfg.Harbor.User)
	cfg.Harbor.Password = getEnv("HARBOR_ADMIN_PASS", cfg.Harbor.Password)
	cfg.Harbor.Insecure = getEnvBool("HARBOR_INSECURE", cfg.Harbor.Insecure)
	cfg.Harbor.Timeout = getEnvDuration("HARBOR_TIMEOUT", cfg.Harbor.Timeout)

	if projects := getEnv("HARBOR_DEFAULT_PROJECTS", ""); projects != "" {
		cfg.Provision.DefaultProjects = splitList(projects)
	}
	cfg.Provision.CreateProjectIfMissing = getEnvBool("HARBOR_CREATE_PROJECT_IF_MISSING", cfg.Provision.CreateProjectIfMissing)
	cfg.Provision.SettleDelay = getEnvDuration("HARBOR_SETTLE_DELAY", cfg.Provision.SettleDelay)
	cfg.Provision.PollInterval = getEnvDuration("HARBOR_POLL_INTERVAL", cfg.Provision.PollInterval)
	cfg.Provision.PollAttempts = getEnvInt("HARBOR_POLL_ATTEMPTS", cfg.Provision.PollAttempts)

	cfg.Observability.LogLevel = getEnv("HARBOR_LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = getEnv("HARBOR_LOG_FORMAT", cfg.Observability.LogFormat)
	cfg.Observability.MetricsFile = getEnv("HARBOR_METRICS_FILE", cfg.Observability.MetricsFile)
	cfg.Observability.OTelEnabled = getEnvBool("HARBOR_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("HARBOR_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelInsecure = getEnvBool("HARBOR_OTEL_INSECURE", cfg.Observability.OTelInsecure)

	cfg.S3.Endpoint = getEnv("HARBOR_S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.Region = getEnv("HARBOR_S3_REGION", cfg.S3.Region)
	cfg.S3.AccessKey = getEnv("HARBOR_S3_ACCESS_KEY", cfg.S3.AccessKey)
	cfg.S3.SecretKey = getEnv("HARBOR_S3_SECRET_KEY", cfg.S3.SecretKey)
	cfg.S3.UsePathStyle = getEnvBool("HARBOR_S3_USE_PATH_STYLE", cfg.S3.UsePathStyle)
}

// ActingUser returns the configured Harbor user or ErrMissingActingUser
func (c *Config) ActingUser() (string, error) {
	user := strings.TrimSpace(c.Harbor.User)
	if user == "" {
		return "", ErrMissingActingUser
	}
	return user, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Harbor.Timeout <= 0 {
		return fmt.Errorf("harbor timeout must be positive")
	}

	// Validate provisioning config
	if c.Provision.PollAttempts < 1 {
		return fmt.Errorf("poll attempts must be at least 1")
	}
	if c.Provision.SettleDelay < 0 || c.Provision.PollInterval < 0 {
		return fmt.Errorf("settle delay and poll interval must not be negative")
	}
	if c.Provision.ProjectCacheSize < 1 {
		return fmt.Errorf("project cache size must be at least 1")
	}

	// Validate observability config
	if level := strings.TrimSpace(c.Observability.LogLevel); level != "" {
		if _, err := logrus.ParseLevel(level); err != nil {
			return fmt.Errorf("invalid log level: %s", c.Observability.LogLevel)
		}
	}
	switch strings.ToLower(c.Observability.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// splitList splits a comma separated list, trimming entries and dropping empty ones
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
