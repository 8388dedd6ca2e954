package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/quillforge/quill/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    logger.Config   `yaml:"logger"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Generator GeneratorConfig `yaml:"generator"`
	Social    SocialConfig    `yaml:"social"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type SchedulerConfig struct {
	// Enabled controls the internal poll loop. The check-schedules endpoint
	// works either way, so an external cron trigger can drive polling instead.
	Enabled      bool   `yaml:"enabled"`
	PollInterval string `yaml:"poll_interval"`
	ClaimTTL     string `yaml:"claim_ttl"`
}

type GeneratorConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
}

type SocialConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	// Accounts normalizes portal slugs to social account identifiers.
	// An explicit enumerated map, not pattern matching on portal names.
	Accounts map[string]string `yaml:"accounts"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5610
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Scheduler.PollInterval == "" {
		cfg.Scheduler.PollInterval = "1m"
	}
	if cfg.Scheduler.ClaimTTL == "" {
		cfg.Scheduler.ClaimTTL = "5m"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
	if cfg.Generator.ImageModel == "" {
		cfg.Generator.ImageModel = "dall-e-3"
	}
	if cfg.Social.Accounts == nil {
		cfg.Social.Accounts = map[string]string{}
	}

	return cfg, nil
}
