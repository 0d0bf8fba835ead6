package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIURLEnv overrides Analysis.BaseURL when set
const APIURLEnv = "CONTRACTLENS_API_URL"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Upload   UploadConfig   `yaml:"upload"`
	Progress ProgressConfig `yaml:"progress"`
	Library  LibraryConfig  `yaml:"library"`
	Report   ReportConfig   `yaml:"report"`
	Minio    MinioConfig    `yaml:"minio"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      int      `yaml:"rate_limit"` // requests per minute per client IP
}

type AnalysisConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type UploadConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"`
}

type ProgressConfig struct {
	StepIntervalMS int `yaml:"step_interval_ms"`
}

type LibraryConfig struct {
	Source         string `yaml:"source"`       // api, mock
	CatalogPath    string `yaml:"catalog_path"` // mock only; empty = embedded catalog
	Watch          bool   `yaml:"watch"`
	LoadingDelayMS int    `yaml:"loading_delay_ms"`
}

type ReportConfig struct {
	Mode             string `yaml:"mode"` // simulated, api
	SimulatedDelayMS int    `yaml:"simulated_delay_ms"`
}

type MinioConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	Region     string `yaml:"region"`
	ExpireDays int    `yaml:"expire_days"`
}

type SessionConfig struct {
	Secret      string `yaml:"secret"`
	TTLHours    int    `yaml:"ttl_hours"`
	MaxSessions int    `yaml:"max_sessions"`
	CookieName  string `yaml:"cookie_name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	LibrarySourceAPI  = "api"
	LibrarySourceMock = "mock"

	ReportModeSimulated = "simulated"
	ReportModeAPI       = "api"
)

// Load reads the YAML file at path. A missing file is not an error:
// the defaults alone describe a working local setup.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if v := strings.TrimSpace(os.Getenv(APIURLEnv)); v != "" {
		cfg.Analysis.BaseURL = v
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 100
	}
	if c.Analysis.BaseURL == "" {
		c.Analysis.BaseURL = "http://localhost:8000"
	}
	c.Analysis.BaseURL = strings.TrimRight(c.Analysis.BaseURL, "/")
	if c.Analysis.TimeoutSeconds == 0 {
		c.Analysis.TimeoutSeconds = 30
	}
	if c.Upload.MaxSizeMB == 0 {
		c.Upload.MaxSizeMB = 10
	}
	if c.Progress.StepIntervalMS == 0 {
		c.Progress.StepIntervalMS = 1000
	}
	if c.Library.Source == "" {
		c.Library.Source = LibrarySourceAPI
	}
	if c.Report.Mode == "" {
		c.Report.Mode = ReportModeSimulated
	}
	if c.Report.SimulatedDelayMS == 0 {
		c.Report.SimulatedDelayMS = 2000
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Minio.Bucket == "" {
		c.Minio.Bucket = "contract-reports"
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 24
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 1000
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "contractlens_session"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// AnalysisTimeout is the fixed deadline for every call to the analysis service
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSeconds) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) << 20
}

func (c *Config) StepInterval() time.Duration {
	return time.Duration(c.Progress.StepIntervalMS) * time.Millisecond
}

func (c *Config) SimulatedExportDelay() time.Duration {
	return time.Duration(c.Report.SimulatedDelayMS) * time.Millisecond
}

func (c *Config) LibraryLoadingDelay() time.Duration {
	return time.Duration(c.Library.LoadingDelayMS) * time.Millisecond
}

// TTL is the session cookie lifetime, 24 hours when unset
func (c *SessionConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TTLHours) * time.Hour
}
