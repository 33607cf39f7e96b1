package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/dermis/pkg/formatting"
	"github.com/JaimeStill/dermis/pkg/middleware"
	"github.com/JaimeStill/dermis/pkg/pagination"
)

const (
	EnvAPIBasePath      = "DERMIS_API_BASE_PATH"
	EnvAPIMaxUploadSize = "DERMIS_API_MAX_UPLOAD_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "DERMIS_CORS_ENABLED",
	Origins:          "DERMIS_CORS_ORIGINS",
	AllowedMethods:   "DERMIS_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "DERMIS_CORS_ALLOWED_HEADERS",
	AllowCredentials: "DERMIS_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "DERMIS_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "DERMIS_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "DERMIS_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds the BFF module settings: mount point, upload limit, CORS and
// gallery pagination.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxUploadSizeBytes returns MaxUploadSize as a byte count. The value is
// validated during Finalize.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxUploadSize)
	return size
}

// BlobPath returns the path revocable image handles are served under.
func (c *APIConfig) BlobPath() string {
	return c.BasePath + "/blobs"
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "10MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
}

func (c *APIConfig) validate() error {
	if !strings.HasPrefix(c.BasePath, "/") || strings.Count(c.BasePath, "/") != 1 {
		return fmt.Errorf("base_path must be a single-level path: %q", c.BasePath)
	}
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	return nil
}
