// Package config provides application-wide configuration loaded from a YAML
// file. All tunables have safe defaults so a minimal config runs locally; the
// model API key is never read from the file, only from the environment.
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

// Config holds runtime configuration for the sitechat backend.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Site      SiteConfig      `yaml:"site"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	CORSOrigins     []string `yaml:"cors_origins"`
	RateLimitWindow Duration `yaml:"rate_limit_window"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// LLMConfig selects and tunes the model provider. The API key is resolved
// from the environment variable named by APIKeyEnv.
type LLMConfig struct {
	Provider       string        `yaml:"provider"` // "openai" | "gemini"
	APIKeyEnv      string        `yaml:"api_key_env"`
	BaseURL        string        `yaml:"base_url"` // openai-compatible endpoints only
	ChatModel      string        `yaml:"chat_model"`
	EmbedModel     string        `yaml:"embed_model"`
	RequestTimeout Duration `yaml:"request_timeout"`
	EmbedCacheSize int      `yaml:"embed_cache_size"`
	EmbedCacheTTL  Duration `yaml:"embed_cache_ttl"`
}

// RetrievalConfig holds corpus/index file locations and ranking parameters.
type RetrievalConfig struct {
	CorpusPath string `yaml:"corpus_path"`
	IndexPath  string `yaml:"index_path"`
	TopK       int    `yaml:"top_k"`
}

// SiteConfig describes the hosted site: which pages navigation may target,
// which section selectors exist per page, and the deploy prefix when the site
// is hosted under a sub-path.
type SiteConfig struct {
	AllowedPages []string            `yaml:"allowed_pages"`
	Sections     map[string][]string `yaml:"sections"` // page path -> CSS selectors
	BasePath     string              `yaml:"base_path"`
}

// Load reads the YAML config at path and applies defaults and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configurationf("read config %s: %v", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Configurationf("parse config %s: %v", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Dur(15 * time.Second)
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Dur(30 * time.Second)
	}
	if c.Server.IdleTimeout.Duration == 0 {
		c.Server.IdleTimeout = Dur(60 * time.Second)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = defaultKeyEnv(c.LLM.Provider)
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = defaultChatModel(c.LLM.Provider)
	}
	if c.LLM.EmbedModel == "" {
		c.LLM.EmbedModel = defaultEmbedModel(c.LLM.Provider)
	}
	if c.LLM.RequestTimeout.Duration == 0 {
		c.LLM.RequestTimeout = Dur(30 * time.Second)
	}
	if c.LLM.EmbedCacheSize == 0 {
		c.LLM.EmbedCacheSize = 256
	}
	if c.LLM.EmbedCacheTTL.Duration == 0 {
		c.LLM.EmbedCacheTTL = Dur(10 * time.Minute)
	}
	if c.Retrieval.CorpusPath == "" {
		c.Retrieval.CorpusPath = "data/docs.json"
	}
	if c.Retrieval.IndexPath == "" {
		c.Retrieval.IndexPath = "data/vectors.json"
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 4
	}
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return errs.Configurationf("llm.provider must be openai or gemini, got %q", c.LLM.Provider)
	}
	if c.Retrieval.TopK < 0 {
		return errs.Configurationf("retrieval.top_k must not be negative, got %d", c.Retrieval.TopK)
	}
	if len(c.Site.AllowedPages) == 0 {
		return errs.Configurationf("site.allowed_pages must list at least one page")
	}
	for _, p := range c.Site.AllowedPages {
		if !strings.HasPrefix(p, "/") {
			return errs.Configurationf("site.allowed_pages entries must be site-relative, got %q", p)
		}
	}
	if c.Site.BasePath != "" && !strings.HasPrefix(c.Site.BasePath, "/") {
		return errs.Configurationf("site.base_path must start with /, got %q", c.Site.BasePath)
	}
	return nil
}

// APIKey resolves the model API key from the configured environment variable.
// Returns a configuration error when the variable is unset, so both serve and
// ingest fail before attempting any model call.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.LLM.APIKeyEnv)
	if key == "" {
		return "", errs.Configurationf("missing env var: %s", c.LLM.APIKeyEnv)
	}
	return key, nil
}

func defaultKeyEnv(provider string) string {
	if provider == "gemini" {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func defaultChatModel(provider string) string {
	if provider == "gemini" {
		return "gemini-2.0-flash"
	}
	return "gpt-4o-mini"
}

func defaultEmbedModel(provider string) string {
	if provider == "gemini" {
		return "text-embedding-004"
	}
	return "text-embedding-3-small"
}
