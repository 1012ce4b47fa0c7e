package models

import "time"

// Config is the full bot configuration as read from config.yaml, config/repost.json and the environment.
type Config struct {
	Token       string            `mapstructure:"BOT_TOKEN"`
	Bot         BotConfig         `mapstructure:"bot"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
	Links       LinksConfig       `mapstructure:"links"`
	Images      ImagesConfig      `mapstructure:"images"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	GRPC        GRPCConfig        `mapstructure:"grpc"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Commands    CommandsConfig    `mapstructure:"commands"`
}

type BotConfig struct {
	AdminChannelID string `mapstructure:"adminChannelId"`
	LogLevel       string `mapstructure:"logLevel"`
	CommandPrefix  string `mapstructure:"commandPrefix"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ReconcileConfig tunes the per-server history catch-up loop.
type ReconcileConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	ActiveInterval    time.Duration `mapstructure:"activeInterval"`
	IdleInterval      time.Duration `mapstructure:"idleInterval"`
	ErrorInterval     time.Duration `mapstructure:"errorInterval"`
	IdleProbeChance   float64       `mapstructure:"idleProbeChance"`
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond"`
	Burst             int           `mapstructure:"burst"`
}

type LinksConfig struct {
	Ignored []string `mapstructure:"ignored"`
}

type ImagesConfig struct {
	IgnoredProviders []string      `mapstructure:"ignoredProviders"`
	MaxBytes         int64         `mapstructure:"maxBytes"`
	FetchTimeout     time.Duration `mapstructure:"fetchTimeout"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type GRPCConfig struct {
	HealthAddr string `mapstructure:"healthAddr"`
}

type MaintenanceConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// CommandsConfig holds permission settings for commands.
type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig lists who may run privileged commands.
type AuthConfig struct {
	Developers  []string `mapstructure:"developers"`
	AdminsRoles []string `mapstructure:"adminRoles"`
	Guest       []string `mapstructure:"guest"`
}
