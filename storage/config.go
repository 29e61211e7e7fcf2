package storage

import (
	"fmt"
	"strings"

	"github.com/kbukum/transcriptcheck/errors"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Default configuration values.
const (
	DefaultProvider = ProviderLocal
	DefaultBasePath = "/tmp/transcriptcheck/cas"
	DefaultRegion   = "us-east-1"
	DefaultPrefix   = "chunks"
)

// Config holds storage configuration.
type Config struct {
	// Provider selects the storage backend: "local" or "s3".
	Provider string `mapstructure:"provider" json:"provider"`

	// BasePath is the root directory for local storage.
	BasePath string `mapstructure:"base_path" json:"base_path"`

	// Bucket is the S3 bucket name.
	Bucket string `mapstructure:"bucket" json:"bucket"`

	// Region is the AWS region for S3.
	Region string `mapstructure:"region" json:"region"`

	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	AccessKey string `mapstructure:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`

	// ForcePathStyle forces path-style URLs. Always on with a custom endpoint.
	ForcePathStyle bool `mapstructure:"force_path_style" json:"force_path_style"`

	// Prefix is prepended to every content-store object key.
	Prefix string `mapstructure:"prefix" json:"prefix"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return errors.Configuration("storage: base_path is required for local provider")
		}
	case ProviderS3:
		var missing []string
		if c.Bucket == "" {
			missing = append(missing, "bucket")
		}
		if c.Region == "" {
			missing = append(missing, "region")
		}
		if len(missing) > 0 {
			return errors.Configuration(fmt.Sprintf("storage: %s required for s3 provider", strings.Join(missing, ", "))).
				WithDetail("missing", missing)
		}
	default:
		return errors.Configuration(fmt.Sprintf("storage: unsupported provider %q", c.Provider))
	}
	return nil
}
