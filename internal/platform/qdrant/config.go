package qdrant

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/lessongen/internal/platform/envutil"
)

type Config struct {
	URL             string
	Collection      string
	NamespacePrefix string
	VectorDim       int
	Timeout         time.Duration
}

type ConfigErrorCode string

const (
	ConfigErrorMissingURL        ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL        ConfigErrorCode = "invalid_url"
	ConfigErrorMissingCollection ConfigErrorCode = "missing_collection"
	ConfigErrorInvalidVectorDim  ConfigErrorCode = "invalid_vector_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	switch e.Code {
	case ConfigErrorMissingURL:
		return "QDRANT_URL is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid QDRANT_URL=%q; expected absolute URL like http://qdrant:6333", e.Value)
	case ConfigErrorMissingCollection:
		return "QDRANT_COLLECTION is required"
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf("invalid QDRANT_VECTOR_DIM=%q; expected positive integer", e.Value)
	default:
		return "invalid qdrant config"
	}
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		URL:             envutil.String("QDRANT_URL", ""),
		Collection:      envutil.String("QDRANT_COLLECTION", "lessongen_corpus"),
		NamespacePrefix: envutil.String("QDRANT_NAMESPACE_PREFIX", "lg"),
		Timeout:         envutil.Duration("QDRANT_TIMEOUT_SECONDS", 10*time.Second),
	}
	if raw := envutil.String("QDRANT_VECTOR_DIM", ""); raw != "" {
		dim, err := strconv.Atoi(raw)
		if err != nil || dim <= 0 {
			return Config{}, &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: raw, Cause: err}
		}
		cfg.VectorDim = dim
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig checks cfg. VectorDim 0 disables dimension checks.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: cfg.URL, Cause: err}
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection}
	}
	if cfg.VectorDim < 0 {
		return &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: strconv.Itoa(cfg.VectorDim)}
	}
	return nil
}
