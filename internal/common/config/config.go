// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	API      APIConfig      `mapstructure:"api"`
	Form     FormConfig     `mapstructure:"form"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// APIConfig locates the grant backend. Endpoint paths are configuration
// because deployments disagree on them.
type APIConfig struct {
	BaseURL       string          `mapstructure:"base_url"`
	Timeout       int             `mapstructure:"timeout"`        // milliseconds
	SubmitTimeout int             `mapstructure:"submit_timeout"` // milliseconds
	Endpoints     EndpointsConfig `mapstructure:"endpoints"`
}

type EndpointsConfig struct {
	Submit            string `mapstructure:"submit"`
	Login             string `mapstructure:"login"`
	AdminLogin        string `mapstructure:"admin_login"`
	Profile           string `mapstructure:"profile"`
	Register          string `mapstructure:"register"`
	ForgotPassword    string `mapstructure:"forgot_password"`
	ResetPassword     string `mapstructure:"reset_password"`
	AdminApplications string `mapstructure:"admin_applications"`
	Options           string `mapstructure:"options"`
}

// FormConfig holds the application form limits and option sources.
type FormConfig struct {
	MinFundingAmount float64 `mapstructure:"min_funding_amount"`
	MaxFundingAmount float64 `mapstructure:"max_funding_amount"`
	OptionsFile      string  `mapstructure:"options_file"`
	FetchOptions     bool    `mapstructure:"fetch_options"`
	OptionsCacheTTL  int     `mapstructure:"options_cache_ttl"` // seconds
}

// SessionConfig selects where bearer tokens are kept between CLI runs.
type SessionConfig struct {
	Store     string `mapstructure:"store"` // memory | file | redis
	File      string `mapstructure:"file"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuditConfig toggles the Postgres audit trail of submission attempts.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Table   string `mapstructure:"table"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
