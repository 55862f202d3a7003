// Package config loads logtrail's YAML configuration, following the
// teacher's pattern of custom UnmarshalYAML methods that resolve
// "os.environ/VAR_NAME" placeholders before parsing typed fields.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMProvider is the closed set of supported analysis-engine providers.
type LLMProvider string

const (
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderOpenAI    LLMProvider = "openai"
)

func (p LLMProvider) IsValid() bool {
	switch p {
	case ProviderAnthropic, ProviderOpenAI:
		return true
	}
	return false
}

// Config is the top-level configuration for both the collector and
// analysis processes; each binary only reads the sections it needs.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	Cache      CacheConfig      `yaml:"cache"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Anomaly    AnomalyConfig    `yaml:"anomaly"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	LoggingLevel   string        `yaml:"logging_level"`
	LoggingFormat  string        `yaml:"logging_format"` // "pretty" or "json"
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

func (s *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Port           string   `yaml:"port"`
		LoggingLevel   string   `yaml:"logging_level"`
		LoggingFormat  string   `yaml:"logging_format"`
		RequestTimeout string   `yaml:"request_timeout"`
		CORSOrigins    []string `yaml:"cors_origins"`
	}
	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	if s.Port, err = parseField(temp.Port, 8000, parseInt, "server.port"); err != nil {
		return err
	}
	s.LoggingLevel = resolveEnvString(temp.LoggingLevel)
	if s.LoggingLevel == "" {
		s.LoggingLevel = "info"
	}
	s.LoggingFormat = resolveEnvString(temp.LoggingFormat)
	if s.LoggingFormat == "" {
		s.LoggingFormat = "pretty"
	}
	if s.RequestTimeout, err = parseField(temp.RequestTimeout, 30*time.Second, time.ParseDuration, "server.request_timeout"); err != nil {
		return err
	}
	s.CORSOrigins = temp.CORSOrigins
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	return nil
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ConnectRetries  int           `yaml:"connect_retries"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

func (d *DatabaseConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		URL            string `yaml:"url"`
		MaxConns       string `yaml:"max_conns"`
		MinConns       string `yaml:"min_conns"`
		ConnectTimeout string `yaml:"connect_timeout"`
		ConnectRetries string `yaml:"connect_retries"`
		AutoMigrate    string `yaml:"auto_migrate"`
	}
	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	d.URL = resolveEnvString(temp.URL)
	if d.MaxConns, err = parseField(temp.MaxConns, 10, parseInt, "database.max_conns"); err != nil {
		return err
	}
	if d.MinConns, err = parseField(temp.MinConns, 2, parseInt, "database.min_conns"); err != nil {
		return err
	}
	if d.ConnectTimeout, err = parseField(temp.ConnectTimeout, 10*time.Second, time.ParseDuration, "database.connect_timeout"); err != nil {
		return err
	}
	if d.ConnectRetries, err = parseField(temp.ConnectRetries, 3, parseInt, "database.connect_retries"); err != nil {
		return err
	}
	if d.AutoMigrate, err = parseField(temp.AutoMigrate, true, parseBool, "database.auto_migrate"); err != nil {
		return err
	}
	return nil
}

type LLMConfig struct {
	Provider     LLMProvider   `yaml:"provider"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryMinWait time.Duration `yaml:"retry_min_wait"`
	RetryMaxWait time.Duration `yaml:"retry_max_wait"`
}

func (l *LLMConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Provider     string `yaml:"provider"`
		APIKey       string `yaml:"api_key"`
		Model        string `yaml:"model"`
		Timeout      string `yaml:"timeout"`
		MaxRetries   string `yaml:"max_retries"`
		RetryMinWait string `yaml:"retry_min_wait"`
		RetryMaxWait string `yaml:"retry_max_wait"`
	}
	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	l.Provider = LLMProvider(resolveEnvString(temp.Provider))
	if l.Provider == "" {
		l.Provider = ProviderAnthropic
	}
	l.APIKey = resolveEnvString(temp.APIKey)
	l.Model = resolveEnvString(temp.Model)
	if l.Model == "" {
		if l.Provider == ProviderOpenAI {
			l.Model = "gpt-5-nano"
		} else {
			l.Model = "claude-sonnet-4-5-20250929"
		}
	}
	if l.Timeout, err = parseField(temp.Timeout, 60*time.Second, time.ParseDuration, "llm.timeout"); err != nil {
		return err
	}
	if l.MaxRetries, err = parseField(temp.MaxRetries, 3, parseInt, "llm.max_retries"); err != nil {
		return err
	}
	if l.RetryMinWait, err = parseField(temp.RetryMinWait, 2*time.Second, time.ParseDuration, "llm.retry_min_wait"); err != nil {
		return err
	}
	if l.RetryMaxWait, err = parseField(temp.RetryMaxWait, 30*time.Second, time.ParseDuration, "llm.retry_max_wait"); err != nil {
		return err
	}
	return nil
}

type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
}

func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		TTL     string `yaml:"ttl"`
		MaxSize string `yaml:"max_size"`
	}
	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}
	var err error
	if c.TTL, err = parseField(temp.TTL, 300*time.Second, time.ParseDuration, "cache.ttl"); err != nil {
		return err
	}
	if c.MaxSize, err = parseField(temp.MaxSize, 100, parseInt, "cache.max_size"); err != nil {
		return err
	}
	return nil
}

type IngestConfig struct {
	MaxBatchRows int `yaml:"max_batch_rows"`
	// AnalysisServiceURL, if set, is POSTed a /invalidate_cache request
	// after every successfully inserted batch, matching spec's "cache
	// invalidated by the collector after inserts" policy. Empty disables
	// it (the analysis engine's cache then only expires by TTL/eviction).
	AnalysisServiceURL string `yaml:"analysis_service_url"`
}

func (i *IngestConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		MaxBatchRows       string `yaml:"max_batch_rows"`
		AnalysisServiceURL string `yaml:"analysis_service_url"`
	}
	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}
	var err error
	if i.MaxBatchRows, err = parseField(temp.MaxBatchRows, 10000, parseInt, "ingest.max_batch_rows"); err != nil {
		return err
	}
	i.AnalysisServiceURL = resolveEnvString(temp.AnalysisServiceURL)
	return nil
}

type AnomalyConfig struct {
	CheckInterval   time.Duration `yaml:"check_interval"`
	HistorySize     int           `yaml:"history_size"`
	ErrorSpikeRatio float64       `yaml:"error_spike_ratio"`
	SlowAPIMS       float64       `yaml:"slow_api_ms"`
}

func (a *AnomalyConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		CheckInterval   string `yaml:"check_interval"`
		HistorySize     string `yaml:"history_size"`
		ErrorSpikeRatio string `yaml:"error_spike_ratio"`
		SlowAPIMS       string `yaml:"slow_api_ms"`
	}
	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}
	var err error
	if a.CheckInterval, err = parseField(temp.CheckInterval, 300*time.Second, time.ParseDuration, "anomaly.check_interval"); err != nil {
		return err
	}
	if a.HistorySize, err = parseField(temp.HistorySize, 100, parseInt, "anomaly.history_size"); err != nil {
		return err
	}
	if a.ErrorSpikeRatio, err = parseField(temp.ErrorSpikeRatio, 0.1, parseFloat, "anomaly.error_spike_ratio"); err != nil {
		return err
	}
	if a.SlowAPIMS, err = parseField(temp.SlowAPIMS, 2000.0, parseFloat, "anomaly.slow_api_ms"); err != nil {
		return err
	}
	return nil
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	HealthCheckPath   string `yaml:"health_check_path"`
}

func (m *MonitoringConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		PrometheusEnabled string `yaml:"prometheus_enabled"`
		HealthCheckPath   string `yaml:"health_check_path"`
	}
	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}
	var err error
	if m.PrometheusEnabled, err = parseField(temp.PrometheusEnabled, true, parseBool, "monitoring.prometheus_enabled"); err != nil {
		return err
	}
	m.HealthCheckPath = resolveEnvString(temp.HealthCheckPath)
	if m.HealthCheckPath == "" {
		m.HealthCheckPath = "/"
	}
	return nil
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	// yaml.v3 never calls UnmarshalYAML for a section that is absent from
	// the file, so every section is first filled with its defaults.
	empty := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, section := range []yaml.Unmarshaler{&cfg.Server, &cfg.Database, &cfg.LLM, &cfg.Cache, &cfg.Ingest, &cfg.Anomaly, &cfg.Monitoring} {
		if err := section.UnmarshalYAML(empty); err != nil {
			return nil, fmt.Errorf("applying config defaults: %w", err)
		}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
