// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. GRANT_API_BASE_URL.
const EnvPrefix = "GRANT"

// defaults are registered with viper so every key is known to AutomaticEnv.
var defaults = map[string]interface{}{
	"app.name":        "grant-portal",
	"app.version":     "0.1.0",
	"app.environment": "development",

	"api.base_url":                     "http://localhost:5000/api",
	"api.timeout":                      15000,
	"api.submit_timeout":               20000,
	"api.endpoints.submit":             "/grants/submit",
	"api.endpoints.login":              "/auth/login",
	"api.endpoints.admin_login":        "/auth/admin/login",
	"api.endpoints.profile":            "/auth/profile",
	"api.endpoints.register":           "/auth/register",
	"api.endpoints.forgot_password":    "/auth/forgot-password",
	"api.endpoints.reset_password":     "/auth/reset-password",
	"api.endpoints.admin_applications": "/admin/applications",
	"api.endpoints.options":            "/grants/options",

	"form.min_funding_amount": 75000,
	"form.max_funding_amount": 750000,
	"form.options_file":       "",
	"form.fetch_options":      false,
	"form.options_cache_ttl":  300,

	"session.store":      "file",
	"session.file":       "~/.grant-portal/session.json",
	"session.key_prefix": "grant-portal:session",

	"database.postgres.host":            "",
	"database.postgres.port":            5432,
	"database.postgres.database":        "",
	"database.postgres.user":            "",
	"database.postgres.password":        "",
	"database.postgres.max_connections": 5,
	"database.postgres.max_idle":        2,
	"database.postgres.sslmode":         "disable",
	"database.redis.address":            "",
	"database.redis.password":           "",
	"database.redis.db":                 0,

	"audit.enabled": false,
	"audit.table":   "submission_audit",

	"logging.level":  "info",
	"logging.format": "console",
	"logging.output": "stderr",

	"metrics.enabled": false,
	"metrics.address": ":9464",
}

// Load reads configs/config.yaml (plus config.<env>.yaml when present),
// applies GRANT_* environment overrides and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".grant-portal"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = v.GetString("app.environment")
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finalize(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finalize(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the unprefixed variable names used by older
// deployments when the prefixed ones are not set.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDR"); val != "" {
			cfg.Database.Redis.Address = val
		}
	}
}

// applyDefaults fills values that depend on other settings.
func applyDefaults(cfg *Config) {
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")

	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = 15000
	}
	if cfg.API.SubmitTimeout <= 0 {
		cfg.API.SubmitTimeout = cfg.API.Timeout
	}
	if cfg.Form.OptionsCacheTTL <= 0 {
		cfg.Form.OptionsCacheTTL = 300
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 5
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Audit.Table == "" {
		cfg.Audit.Table = "submission_audit"
	}
	cfg.Session.Store = strings.ToLower(cfg.Session.Store)
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", cfg.API.BaseURL)
	}

	if cfg.API.Endpoints.Submit == "" {
		return fmt.Errorf("api.endpoints.submit is required")
	}

	if cfg.Form.MinFundingAmount < 0 || cfg.Form.MaxFundingAmount <= cfg.Form.MinFundingAmount {
		return fmt.Errorf("form.max_funding_amount must be greater than form.min_funding_amount")
	}

	switch cfg.Session.Store {
	case "memory":
	case "file":
		if cfg.Session.File == "" {
			return fmt.Errorf("session.file is required when session.store is file")
		}
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required when session.store is redis")
		}
	default:
		return fmt.Errorf("session.store must be memory, file or redis, got %q", cfg.Session.Store)
	}

	if cfg.Audit.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required when audit is enabled")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when audit is enabled")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required when audit is enabled")
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// URL joins the API base URL with an endpoint path.
func (a APIConfig) URL(endpoint string) string {
	return a.BaseURL + "/" + strings.TrimPrefix(endpoint, "/")
}
