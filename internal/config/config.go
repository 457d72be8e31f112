// Package config loads and validates the application configuration:
// built-in defaults, overridden by an optional config.yaml file,
// overridden by environment variables (prefix INDEXCLI).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"indexcli/internal/period"
	"indexcli/pkg/contracts/domain"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Publisher PublisherConfig `yaml:"publisher" envconfig:"PUBLISHER"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Ingest    IngestConfig    `yaml:"ingest" envconfig:"INGEST"`
}

// ServerConfig configures the ingestd HTTP surface.
type ServerConfig struct {
	Port         int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PublisherConfig locates the remote publisher: the spreadsheet endpoint
// for the primary path and the interactive portal for the fallback.
type PublisherConfig struct {
	BaseURL        string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	PortalURL      string        `yaml:"portal_url" envconfig:"PORTAL_URL" validate:"required,url"`
	PortalUser     string        `yaml:"portal_user" envconfig:"PORTAL_USER"`
	PortalPassword string        `yaml:"portal_password" envconfig:"PORTAL_PASSWORD"`
	UserAgent      string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MinInterval    time.Duration `yaml:"min_interval" envconfig:"MIN_INTERVAL"`
	Headless       bool          `yaml:"headless" envconfig:"HEADLESS"`
	SettleDelay    time.Duration `yaml:"settle_delay" envconfig:"SETTLE_DELAY"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" envconfig:"CONFIRM_TIMEOUT"`
}

// StorageConfig locates the local database and download scratch space.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" envconfig:"DATABASE_PATH" validate:"required"`
	DownloadDir  string `yaml:"download_dir" envconfig:"DOWNLOAD_DIR" validate:"required"`
}

// IngestConfig describes the planning range and region set. From and End
// use the planner's period grammar: From is "MM/YYYY"; End is "now",
// "now-N", or "MM/YYYY".
type IngestConfig struct {
	From     string   `yaml:"from" envconfig:"FROM" validate:"required"`
	End      string   `yaml:"end" envconfig:"END" validate:"required"`
	MinYear  int      `yaml:"min_year" envconfig:"MIN_YEAR"`
	MaxYear  int      `yaml:"max_year" envconfig:"MAX_YEAR"`
	Regions  []string `yaml:"regions" envconfig:"REGIONS" validate:"required,min=1,dive,len=2"`
	GapMode  bool     `yaml:"gap_mode" envconfig:"GAP_MODE"`
	Families []string `yaml:"families" envconfig:"FAMILIES" validate:"required,min=1"`
}

// Load layers configuration: built-in defaults, then an optional yaml
// file, then environment variables. Later layers win, and a layer that
// does not mention a field leaves the lower layer's value in place.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("INDEXCLI", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the structural tags and the period grammar.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	// Period grammar is beyond struct tags; the planner owns it.
	if _, err := c.PlanConfig(); err != nil {
		return err
	}
	return nil
}

// PlanConfig resolves the ingest section into a planner configuration.
func (c *Config) PlanConfig() (period.Config, error) {
	from, err := period.ParsePeriod(c.Ingest.From)
	if err != nil {
		return period.Config{}, err
	}
	end, err := period.ParseEnd(c.Ingest.End)
	if err != nil {
		return period.Config{}, err
	}
	return period.Config{
		From:    from,
		End:     end,
		MinYear: c.Ingest.MinYear,
		MaxYear: c.Ingest.MaxYear,
	}, nil
}

// RegionCodes returns the configured region set as typed codes.
func (c *Config) RegionCodes() []domain.RegionCode {
	out := make([]domain.RegionCode, 0, len(c.Ingest.Regions))
	for _, r := range c.Ingest.Regions {
		out = append(out, domain.RegionCode(r))
	}
	return out
}

// RestrictRegions narrows a run to a subset of the configured regions.
// Codes outside the configured set are rejected.
func (c *Config) RestrictRegions(codes []string) error {
	configured := c.RegionCodes()
	for _, code := range codes {
		if !domain.ValidRegion(domain.RegionCode(code), configured) {
			return fmt.Errorf("region %s is not in the configured set %v", code, c.Ingest.Regions)
		}
	}
	c.Ingest.Regions = codes
	return nil
}

// configFilePath probes the conventional config file locations.
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the built-in defaults without touching the environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/indexcli.log",
		},
		Publisher: PublisherConfig{
			BaseURL:        "https://stats.publisher.example",
			PortalURL:      "https://portal.publisher.example",
			UserAgent:      "indexcli/1.0 (+monthly index ingestion)",
			Timeout:        60 * time.Second,
			MinInterval:    500 * time.Millisecond,
			Headless:       true,
			SettleDelay:    3 * time.Second,
			ConfirmTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			DatabasePath: "data/indexcli.db",
			DownloadDir:  "data/downloads",
		},
		Ingest: IngestConfig{
			From:     "01/2002",
			End:      "now-1",
			MinYear:  1990,
			MaxYear:  2100,
			Regions:  []string{"ES"},
			GapMode:  true,
			Families: []string{"cpi", "ppi", "cci"},
		},
	}
}
