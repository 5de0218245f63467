// Package config loads zhreader settings from YAML and the environment.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Remote translation provider names.
const (
	ProviderMyMemory = "mymemory"
	ProviderLLM      = "llm"
	// ProviderNone disables remote lookups.
	ProviderNone = "none"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Lexicon   LexiconConfig   `yaml:"lexicon"`
	Translate TranslateConfig `yaml:"translate"`
	Annotate  AnnotateConfig  `yaml:"annotate"`
	Generate  GenerateConfig  `yaml:"generate"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string        `yaml:"host"                  env:"SERVER_HOST"                  env-default:"0.0.0.0"`
	Port               int           `yaml:"port"                  env:"SERVER_PORT"                  env-default:"8080"`
	ReadTimeout        time.Duration `yaml:"read_timeout"          env:"SERVER_READ_TIMEOUT"          env-default:"10s"`
	WriteTimeout       time.Duration `yaml:"write_timeout"         env:"SERVER_WRITE_TIMEOUT"         env-default:"60s"`
	IdleTimeout        time.Duration `yaml:"idle_timeout"          env:"SERVER_IDLE_TIMEOUT"          env-default:"60s"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"      env:"SERVER_SHUTDOWN_TIMEOUT"      env-default:"10s"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" env:"SERVER_RATE_LIMIT_PER_MINUTE" env-default:"100"`
	CORSAllowedOrigins string        `yaml:"cors_allowed_origins"  env:"SERVER_CORS_ALLOWED_ORIGINS"  env-default:"*"`
	MaxTextLength      int           `yaml:"max_text_length"       env:"SERVER_MAX_TEXT_LENGTH"       env-default:"50000"`
}

// Addr is host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// AllowedOrigins splits CORSAllowedOrigins on commas.
func (s ServerConfig) AllowedOrigins() []string {
	return splitList(s.CORSAllowedOrigins)
}

// DatabaseConfig selects and tunes the vocabulary store.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"             env:"DATABASE_DRIVER"             env-default:"sqlite"`
	Path            string        `yaml:"path"               env:"DATABASE_PATH"               env-default:"zhreader.db"`
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LexiconConfig points at an optional dictionary file merged over the
// built-in lexicon.
type LexiconConfig struct {
	Path      string `yaml:"path"       env:"LEXICON_PATH"`
	CEDICTURL string `yaml:"cedict_url" env:"LEXICON_CEDICT_URL" env-default:"https://www.mdbg.net/chinese/export/cedict/cedict_1_0_ts_utf-8_mdbg.txt.gz"`
}

// TranslateConfig tunes the translation resolver and its remote providers.
type TranslateConfig struct {
	Spacing     time.Duration  `yaml:"spacing"       env:"TRANSLATE_SPACING"       env-default:"500ms"`
	Timeout     time.Duration  `yaml:"timeout"       env:"TRANSLATE_TIMEOUT"       env-default:"5s"`
	CacheSize   int            `yaml:"cache_size"    env:"TRANSLATE_CACHE_SIZE"    env-default:"10000"`
	MaxGlossLen int            `yaml:"max_gloss_len" env:"TRANSLATE_MAX_GLOSS_LEN" env-default:"200"`
	Providers   string         `yaml:"providers"     env:"TRANSLATE_PROVIDERS"     env-default:"mymemory"`
	MyMemory    MyMemoryConfig `yaml:"mymemory"`
	LLM         LLMConfig      `yaml:"llm"`
}

// ProviderList returns the configured provider names in priority order.
// "none" yields an empty list.
func (t TranslateConfig) ProviderList() []string {
	list := splitList(t.Providers)
	if len(list) == 1 && strings.EqualFold(list[0], ProviderNone) {
		return nil
	}
	return list
}

// MyMemoryConfig configures the MyMemory translation API client.
type MyMemoryConfig struct {
	BaseURL string `yaml:"base_url" env:"MYMEMORY_BASE_URL" env-default:"https://api.mymemory.translated.net"`
	Email   string `yaml:"email"    env:"MYMEMORY_EMAIL"`
}

// LLMConfig configures the OpenAI-compatible gloss provider.
type LLMConfig struct {
	APIKey     string `yaml:"api_key"     env:"OPENAI_API_KEY"`
	Model      string `yaml:"model"       env:"LLM_MODEL"       env-default:"gpt-4o-mini"`
	BaseURL    string `yaml:"base_url"    env:"LLM_BASE_URL"`
	MaxRetries int    `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"2"`
}

// AnnotateConfig holds batch annotation settings.
type AnnotateConfig struct {
	Workers int `yaml:"workers" env:"ANNOTATE_WORKERS" env-default:"8"`
}

// GenerateConfig tunes reading passage generation. The LLM settings are
// shared with the gloss provider; without an API key, or with TemplatesOnly
// set, only the built-in templates are used.
type GenerateConfig struct {
	TemplatesOnly  bool          `yaml:"templates_only"   env:"GENERATE_TEMPLATES_ONLY"`
	Timeout        time.Duration `yaml:"timeout"          env:"GENERATE_TIMEOUT"          env-default:"20s"`
	MaxTopicLength int           `yaml:"max_topic_length" env:"GENERATE_MAX_TOPIC_LENGTH" env-default:"100"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
