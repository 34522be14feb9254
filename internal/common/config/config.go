package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Push          PushConfig         `mapstructure:"push"`
	Queue         QueueConfig        `mapstructure:"queue"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the relay HTTP server settings.
type ServerConfig struct {
	Address        string `mapstructure:"address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	ReadTimeout    int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PushConfig holds Firebase Cloud Messaging settings.
type PushConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	CredentialsFile string   `mapstructure:"credentials_file"`
	DefaultTopics   []string `mapstructure:"default_topics"`
}

// QueueConfig holds the outbound email/SMS queue settings.
type QueueConfig struct {
	TemplateRegistry string `mapstructure:"template_registry"` // optional JSON template overrides
	AWS              struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
		SQS struct {
			QueueURL        string `mapstructure:"queue_url"`
			BatchSize       int    `mapstructure:"batch_size"`
			WaitTimeSeconds int    `mapstructure:"wait_time_seconds"`
		} `mapstructure:"sqs"`
	} `mapstructure:"aws"`
}

// NotificationConfig holds notification feed and manager settings.
type NotificationConfig struct {
	BatchLimit        int    `mapstructure:"batch_limit"`         // initial load size
	DedupeCacheSize   int    `mapstructure:"dedupe_cache_size"`   // source id dedupe bound
	FeedChannelPrefix string `mapstructure:"feed_channel_prefix"` // redis pub/sub channel prefix
	TopicSetPrefix    string `mapstructure:"topic_set_prefix"`    // redis topic membership key prefix
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
