package config

import (
	"fmt"
	"strings"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. PVV_SERVER_PORT
const EnvPrefix = "PVV"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. An empty configFile searches
// the default locations for config.yaml.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from defaults, an optional file and the environment
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/parkinsons-variant-viewer/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || m.configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults registers a default for every key so env overrides bind on Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_upload_size", 32<<20)

	// Database defaults
	v.SetDefault("database.driver", domain.DriverSQLite)
	v.SetDefault("database.path", "instance/parkinsons.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// External API defaults
	v.SetDefault("external_api.clinvar.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/")
	v.SetDefault("external_api.clinvar.api_key", "")
	v.SetDefault("external_api.clinvar.email", "")
	v.SetDefault("external_api.clinvar.tool", "parkinsons-variant-viewer")
	v.SetDefault("external_api.clinvar.timeout", "30s")
	v.SetDefault("external_api.clinvar.rate_limit", 3)

	v.SetDefault("external_api.hgnc.base_url", "https://rest.genenames.org")
	v.SetDefault("external_api.hgnc.timeout", "10s")
	v.SetDefault("external_api.hgnc.rate_limit", 10)

	v.SetDefault("external_api.circuit_breaker.max_requests", 3)
	v.SetDefault("external_api.circuit_breaker.interval", "60s")
	v.SetDefault("external_api.circuit_breaker.timeout", "30s")
	v.SetDefault("external_api.circuit_breaker.failure_ratio", 0.6)
	v.SetDefault("external_api.circuit_breaker.min_requests", 5)

	// Annotation defaults
	v.SetDefault("annotation.batch_delay", "500ms")
	v.SetDefault("annotation.max_attempts", 3)
	v.SetDefault("annotation.initial_backoff", "1s")

	// Storage defaults
	v.SetDefault("storage.upload_dir", "data/uploads")
	v.SetDefault("storage.vcf_dir", "data/input")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "both")
	v.SetDefault("logging.filename", "logs/parkinsons_variant_viewer.log")
	v.SetDefault("logging.max_size", 1)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetExternalAPIConfig returns external API configuration
func (m *Manager) GetExternalAPIConfig() *domain.ExternalAPIConfig {
	return &m.config.ExternalAPI
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Database.Driver {
	case domain.DriverSQLite:
		if config.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	case domain.DriverPostgres:
		if config.Database.URL == "" {
			return fmt.Errorf("database url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", config.Database.Driver)
	}

	if config.ExternalAPI.ClinVar.BaseURL == "" {
		return fmt.Errorf("ClinVar base URL is required")
	}
	if config.ExternalAPI.HGNC.BaseURL == "" {
		return fmt.Errorf("HGNC base URL is required")
	}
	if config.ExternalAPI.ClinVar.RateLimit <= 0 || config.ExternalAPI.HGNC.RateLimit <= 0 {
		return fmt.Errorf("external API rate limits must be positive")
	}

	if config.Annotation.MaxAttempts < 1 {
		return fmt.Errorf("annotation max_attempts must be at least 1, got %d", config.Annotation.MaxAttempts)
	}
	if config.Annotation.BatchDelay < 0 {
		return fmt.Errorf("annotation batch_delay must not be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true, "both": true}
	if !validOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf("invalid log output: %s", config.Logging.Output)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

var _ domain.ConfigManager = (*Manager)(nil)
