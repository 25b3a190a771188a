package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BroadcastNone  = "none"
	BroadcastKafka = "kafka"
	BroadcastAMQP  = "amqp"
	BroadcastRedis = "redis"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	SlowQueryThreshold time.Duration
	AutoMigrate        bool
}

type AuthConfig struct {
	AccessSecret string
	BcryptCost   int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type AMQPConfig struct {
	URL   string
	Queue string
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

type BroadcastConfig struct {
	Driver string
	Kafka  KafkaConfig
	AMQP   AMQPConfig
	Outbox OutboxConfig
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Redis       RedisConfig
	Broadcast   BroadcastConfig
	RateLimit   RateLimitConfig
	Seed        SeedConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()
	setDefaults(v)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:                v.GetString("DB_DSN"),
			MaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime:    v.GetDuration("DB_CONN_MAX_LIFETIME"),
			SlowQueryThreshold: v.GetDuration("DB_SLOW_QUERY_THRESHOLD"),
			AutoMigrate:        v.GetBool("DB_AUTO_MIGRATE"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			BcryptCost:   v.GetInt("BCRYPT_COST"),
		},
		Redis: RedisConfig{
			Addr:          v.GetString("REDIS_ADDR"),
			Password:      v.GetString("REDIS_PASSWORD"),
			DB:            v.GetInt("REDIS_DB"),
			ChannelPrefix: v.GetString("REDIS_CHANNEL_PREFIX"),
		},
		Broadcast: BroadcastConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("BROADCAST_DRIVER"))),
			Kafka: KafkaConfig{
				Brokers: splitList(v.GetString("KAFKA_BROKERS")),
				Topic:   v.GetString("KAFKA_TOPIC"),
			},
			AMQP: AMQPConfig{
				URL:   v.GetString("AMQP_URL"),
				Queue: v.GetString("AMQP_QUEUE"),
			},
			Outbox: OutboxConfig{
				PollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
				BatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
				MaxAttempts:  v.GetInt("OUTBOX_MAX_ATTEMPTS"),
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:        v.GetBool("RATE_LIMIT_ENABLED"),
			Capacity:       v.GetInt("RATE_LIMIT_CAPACITY"),
			RefillInterval: v.GetDuration("RATE_LIMIT_REFILL_INTERVAL"),
		},
		Seed: SeedConfig{
			AdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
			AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
		},
	}

	if cfg.Broadcast.Driver == "" {
		cfg.Broadcast.Driver = BroadcastNone
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 7090)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_SLOW_QUERY_THRESHOLD", "500ms")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("BROADCAST_DRIVER", BroadcastNone)
	v.SetDefault("KAFKA_TOPIC", "maintenance.events")
	v.SetDefault("AMQP_QUEUE", "maintenance.events")
	v.SetDefault("REDIS_CHANNEL_PREFIX", "maintenance")
	v.SetDefault("OUTBOX_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("OUTBOX_BATCH_SIZE", 50)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 10)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_CAPACITY", 60)
	v.SetDefault("RATE_LIMIT_REFILL_INTERVAL", time.Second)
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	switch cfg.Broadcast.Driver {
	case BroadcastNone:
	case BroadcastKafka:
		if len(cfg.Broadcast.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for broadcast driver %q", cfg.Broadcast.Driver)
		}
	case BroadcastAMQP:
		if cfg.Broadcast.AMQP.URL == "" {
			return fmt.Errorf("AMQP_URL is required for broadcast driver %q", cfg.Broadcast.Driver)
		}
	case BroadcastRedis:
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for broadcast driver %q", cfg.Broadcast.Driver)
		}
	default:
		return fmt.Errorf("unknown BROADCAST_DRIVER %q", cfg.Broadcast.Driver)
	}

	if cfg.RateLimit.Enabled {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when RATE_LIMIT_ENABLED is set")
		}
		if cfg.RateLimit.Capacity <= 0 || cfg.RateLimit.RefillInterval <= 0 {
			return fmt.Errorf("RATE_LIMIT_CAPACITY and RATE_LIMIT_REFILL_INTERVAL must be positive")
		}
	}

	if cfg.Broadcast.Outbox.BatchSize <= 0 {
		cfg.Broadcast.Outbox.BatchSize = 50
	}
	if cfg.Broadcast.Outbox.MaxAttempts <= 0 {
		cfg.Broadcast.Outbox.MaxAttempts = 10
	}
	if cfg.Broadcast.Outbox.PollInterval <= 0 {
		cfg.Broadcast.Outbox.PollInterval = 2 * time.Second
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
