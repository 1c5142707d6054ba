package internal

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig represents the main application configuration.
type AppConfig struct {
	// Server holds HTTP server configuration.
	Server struct {
		Port           int    `yaml:"port"`
		ReadTimeoutMS  int64  `yaml:"read_timeout_ms"`
		WriteTimeoutMS int64  `yaml:"write_timeout_ms"`
		IdleTimeoutMS  int64  `yaml:"idle_timeout_ms"`
		ReadHeaderMS   int64  `yaml:"read_header_timeout_ms"`
		MaxBodyBytes   int64  `yaml:"max_body_bytes"`
		RateLimitRPS   int64  `yaml:"rate_limit_rps"`
		RateLimitBurst int64  `yaml:"rate_limit_burst"`
		MetricsEnabled bool   `yaml:"metrics_enabled"`
		MetricsPath    string `yaml:"metrics_path"`
	} `yaml:"server"`
	// Database holds the relational store configuration.
	Database DatabaseConfig `yaml:"database"`
	// Webhook holds the inbound webhook surface configuration.
	Webhook WebhookConfig `yaml:"webhook"`
	// Poll holds dashboard poller defaults.
	Poll PollConfig `yaml:"poll"`
	// Dispatch holds configuration for the event dispatch publisher.
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// Config represents the application configuration including dispatch rules.
type Config struct {
	AppConfig `yaml:",inline"`
	Rules     []Rule `yaml:"rules"`
}

// DatabaseConfig represents the configuration of the backing store.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	GitHubTable  string `yaml:"github_table"`
	WebhookTable string `yaml:"webhook_table"`
}

// WebhookConfig represents the inbound webhook surface.
type WebhookConfig struct {
	// Secret is the shared HMAC secret. When empty, signature
	// verification is skipped for every delivery.
	Secret      string `yaml:"secret"`
	GitHubPath  string `yaml:"github_path"`
	GenericPath string `yaml:"generic_path"`
	TestPath    string `yaml:"test_path"`
}

// PollConfig holds defaults for the dashboard polling client.
type PollConfig struct {
	IntervalMS int64 `yaml:"interval_ms"`
}

// DispatchConfig holds the configuration for the dispatch publisher.
type DispatchConfig struct {
	Driver       string             `yaml:"driver"`
	Drivers      []string           `yaml:"drivers"`
	GoChannel    GoChannelConfig    `yaml:"gochannel"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	NATS         NATSConfig         `yaml:"nats"`
	AMQP         AMQPConfig         `yaml:"amqp"`
	SQL          SQLConfig          `yaml:"sql"`
	HTTP         HTTPConfig         `yaml:"http"`
	RiverQueue   RiverQueueConfig   `yaml:"riverqueue"`
	PublishRetry PublishRetryConfig `yaml:"publish_retry"`
}

// GoChannelConfig holds configuration for the GoChannel pub/sub.
type GoChannelConfig struct {
	OutputChannelBuffer            int64 `yaml:"output_buffer"`
	Persistent                     bool  `yaml:"persistent"`
	BlockPublishUntilSubscriberAck bool  `yaml:"block_publish_until_subscriber_ack"`
}

// KafkaConfig holds configuration for the Kafka pub/sub.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// NATSConfig holds configuration for the NATS streaming pub/sub.
type NATSConfig struct {
	ClusterID string `yaml:"cluster_id"`
	ClientID  string `yaml:"client_id"`
	URL       string `yaml:"url"`
}

// AMQPConfig holds configuration for the AMQP pub/sub.
type AMQPConfig struct {
	URL  string `yaml:"url"`
	Mode string `yaml:"mode"`
}

// SQLConfig holds configuration for the SQL pub/sub.
type SQLConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	Dialect          string `yaml:"dialect"`
	InitializeSchema bool   `yaml:"initialize_schema"`
}

// HTTPConfig holds configuration for the HTTP publisher.
type HTTPConfig struct {
	BaseURL string `yaml:"base_url"`
	Mode    string `yaml:"mode"`
}

// RiverQueueConfig holds configuration for the RiverQueue dispatch driver.
type RiverQueueConfig struct {
	Driver      string   `yaml:"driver"`
	DSN         string   `yaml:"dsn"`
	Table       string   `yaml:"table"`
	Queue       string   `yaml:"queue"`
	Kind        string   `yaml:"kind"`
	MaxAttempts int      `yaml:"max_attempts"`
	Priority    int      `yaml:"priority"`
	Tags        []string `yaml:"tags"`
}

// PublishRetryConfig controls retries when building dispatch publishers.
type PublishRetryConfig struct {
	Attempts int `yaml:"attempts"`
	DelayMS  int `yaml:"delay_ms"`
}

// LoadConfig loads the application configuration, including dispatch rules,
// from a YAML file. Environment variables referenced in the file are expanded
// before parsing, so the database DSN and webhook secret can stay in the
// environment.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, err
	}

	applyDefaults(&cfg.AppConfig)
	normalized, err := normalizeRules(cfg.Rules)
	if err != nil {
		return cfg, err
	}
	cfg.Rules = normalized

	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeoutMS == 0 {
		cfg.Server.ReadTimeoutMS = 5000
	}
	if cfg.Server.WriteTimeoutMS == 0 {
		cfg.Server.WriteTimeoutMS = 10000
	}
	if cfg.Server.IdleTimeoutMS == 0 {
		cfg.Server.IdleTimeoutMS = 60000
	}
	if cfg.Server.ReadHeaderMS == 0 {
		cfg.Server.ReadHeaderMS = 5000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/debug/vars"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.GitHubTable == "" {
		cfg.Database.GitHubTable = "github_events"
	}
	if cfg.Database.WebhookTable == "" {
		cfg.Database.WebhookTable = "webhook_events"
	}
	if cfg.Webhook.GitHubPath == "" {
		cfg.Webhook.GitHubPath = "/api/github/webhook"
	}
	if cfg.Webhook.GenericPath == "" {
		cfg.Webhook.GenericPath = "/api/webhooks/generic"
	}
	if cfg.Webhook.TestPath == "" {
		cfg.Webhook.TestPath = "/api/webhooks/test"
	}
	if cfg.Poll.IntervalMS == 0 {
		cfg.Poll.IntervalMS = 15000
	}
	if cfg.Dispatch.Driver == "" {
		cfg.Dispatch.Driver = "gochannel"
	}
	if cfg.Dispatch.GoChannel.OutputChannelBuffer == 0 {
		cfg.Dispatch.GoChannel.OutputChannelBuffer = 64
	}
	if cfg.Dispatch.HTTP.Mode == "" {
		cfg.Dispatch.HTTP.Mode = "topic_url"
	}
	if cfg.Dispatch.RiverQueue.Table == "" {
		cfg.Dispatch.RiverQueue.Table = "river_job"
	}
	if cfg.Dispatch.RiverQueue.Queue == "" {
		cfg.Dispatch.RiverQueue.Queue = "default"
	}
	if cfg.Dispatch.RiverQueue.Kind == "" {
		cfg.Dispatch.RiverQueue.Kind = "hookboard.event"
	}
	if cfg.Dispatch.RiverQueue.MaxAttempts == 0 {
		cfg.Dispatch.RiverQueue.MaxAttempts = 25
	}
	if cfg.Dispatch.PublishRetry.Attempts == 0 {
		cfg.Dispatch.PublishRetry.Attempts = 3
	}
	if cfg.Dispatch.PublishRetry.DelayMS == 0 {
		cfg.Dispatch.PublishRetry.DelayMS = 500
	}
}

func normalizeRules(rules []Rule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for i := range rules {
		rule := rules[i]
		rule.When = strings.TrimSpace(rule.When)
		rule.Emit = strings.TrimSpace(rule.Emit)
		if rule.When == "" || rule.Emit == "" {
			return nil, fmt.Errorf("rule %d is missing when or emit", i)
		}
		if len(rule.Drivers) > 0 {
			drivers := make([]string, 0, len(rule.Drivers))
			for _, driver := range rule.Drivers {
				trimmed := strings.TrimSpace(driver)
				if trimmed != "" {
					drivers = append(drivers, trimmed)
				}
			}
			rule.Drivers = drivers
		}
		out = append(out, rule)
	}
	return out, nil
}
