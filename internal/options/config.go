package options

import (
	"fmt"
	"time"

	"grant-portal/internal/common/config"
)

type Config struct {
	File        string
	FetchRemote bool
	Endpoint    string
	CacheKey    string
	CacheTTL    time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Endpoint: "/grants/options",
		CacheKey: "grant-portal:options",
		CacheTTL: 5 * time.Minute,
	}
}

// ConfigFrom derives the provider settings from the application config.
func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.File = cfg.Form.OptionsFile
	c.FetchRemote = cfg.Form.FetchOptions
	if cfg.API.Endpoints.Options != "" {
		c.Endpoint = cfg.API.Endpoints.Options
	}
	if cfg.Form.OptionsCacheTTL > 0 {
		c.CacheTTL = time.Duration(cfg.Form.OptionsCacheTTL) * time.Second
	}
	return c
}

func (c *Config) Validate() error {
	if c.FetchRemote && c.Endpoint == "" {
		return fmt.Errorf("options endpoint is required when fetching remotely")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	return nil
}
