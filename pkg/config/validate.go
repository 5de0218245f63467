package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// Load and LoadFile call it automatically.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q (got %q)", DriverSQLite, DriverPostgres, c.Database.Driver))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range (got %d)", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit_per_minute must be >= 0 (got %d)", c.Server.RateLimitPerMinute))
	}

	if err := c.Translate.validate(); err != nil {
		errs = append(errs, fmt.Errorf("translate: %w", err))
	}

	if c.Annotate.Workers <= 0 {
		errs = append(errs, fmt.Errorf("annotate.workers must be > 0 (got %d)", c.Annotate.Workers))
	}

	if c.Generate.Timeout < 0 {
		errs = append(errs, fmt.Errorf("generate.timeout must be >= 0 (got %v)", c.Generate.Timeout))
	}
	if c.Generate.MaxTopicLength < 0 {
		errs = append(errs, fmt.Errorf("generate.max_topic_length must be >= 0 (got %d)", c.Generate.MaxTopicLength))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format))
	}

	return errors.Join(errs...)
}

func (t *TranslateConfig) validate() error {
	if t.Spacing < 0 {
		return fmt.Errorf("spacing must be >= 0 (got %v)", t.Spacing)
	}
	if t.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %v)", t.Timeout)
	}
	if t.CacheSize < 0 {
		return fmt.Errorf("cache_size must be >= 0 (got %d)", t.CacheSize)
	}
	if t.MaxGlossLen <= 0 {
		return fmt.Errorf("max_gloss_len must be > 0 (got %d)", t.MaxGlossLen)
	}
	for _, p := range t.ProviderList() {
		switch p {
		case ProviderMyMemory:
		case ProviderLLM:
			if t.LLM.APIKey == "" {
				return errors.New("llm provider requires llm.api_key")
			}
		default:
			return fmt.Errorf("unknown provider %q", p)
		}
	}
	return nil
}
