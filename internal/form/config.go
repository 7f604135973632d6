package form

import (
	"fmt"
	"time"

	"grant-portal/internal/common/config"
	"grant-portal/internal/common/validation"
	"grant-portal/internal/options"
)

const (
	DefaultSubmitTimeout      = 20 * time.Second
	DefaultMaxAttachmentBytes = 10 << 20
)

// DefaultAttachmentTypes are the content types accepted for ID card uploads.
var DefaultAttachmentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

type Config struct {
	FundingRange       validation.FundingRange
	Options            options.Set
	SubmitTimeout      time.Duration
	MaxAttachmentBytes int64
	AttachmentTypes    []string
}

func DefaultConfig() *Config {
	return &Config{
		FundingRange:       validation.DefaultFundingRange,
		Options:            options.Defaults(),
		SubmitTimeout:      DefaultSubmitTimeout,
		MaxAttachmentBytes: DefaultMaxAttachmentBytes,
		AttachmentTypes:    append([]string(nil), DefaultAttachmentTypes...),
	}
}

// ConfigFrom builds the form settings from the application config and a
// resolved option set.
func ConfigFrom(cfg *config.Config, set options.Set) *Config {
	c := DefaultConfig()
	if cfg.Form.MinFundingAmount > 0 {
		c.FundingRange.Min = cfg.Form.MinFundingAmount
	}
	if cfg.Form.MaxFundingAmount > 0 {
		c.FundingRange.Max = cfg.Form.MaxFundingAmount
	}
	if set != nil {
		c.Options = set
	}
	if d := config.GetDuration(cfg.API.SubmitTimeout); d > 0 {
		c.SubmitTimeout = d
	}
	return c
}

func (c *Config) Validate() error {
	if c.FundingRange.Max <= c.FundingRange.Min {
		return fmt.Errorf("funding range max (%.2f) must exceed min (%.2f)", c.FundingRange.Max, c.FundingRange.Min)
	}
	if c.SubmitTimeout < 0 {
		return fmt.Errorf("submit timeout must not be negative")
	}
	if c.MaxAttachmentBytes < 0 {
		return fmt.Errorf("max attachment size must not be negative")
	}
	return nil
}

func (c *Config) acceptsType(contentType string) bool {
	if len(c.AttachmentTypes) == 0 {
		return true
	}
	for _, t := range c.AttachmentTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
