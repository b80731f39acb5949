package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds every setting of the restaurant-pos services.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	RabbitMQ    RabbitMQConfig    `mapstructure:"rabbitmq"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Redis       RedisConfig       `mapstructure:"redis"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Fulfillment FulfillmentConfig `mapstructure:"fulfillment"`
	Kitchen     KitchenConfig     `mapstructure:"kitchen"`
	Tracker     TrackerConfig     `mapstructure:"tracker"`
	Seed        SeedConfig        `mapstructure:"seed"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

type RabbitMQConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type HTTPConfig struct {
	Port          int           `mapstructure:"port"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type ArchiveConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type FulfillmentConfig struct {
	// Store selects the persistence backend: "postgres" or "memory".
	Store           string        `mapstructure:"store"`
	StoreTimeout    time.Duration `mapstructure:"store_timeout"`
	NotifyTimeout   time.Duration `mapstructure:"notify_timeout"`
	FinalizeToDirty bool          `mapstructure:"finalize_to_dirty"`
	PageLimit       int           `mapstructure:"page_limit"`
}

type TrackerConfig struct {
	Port int `mapstructure:"port"`
}

type SeedConfig struct {
	Tables     int   `mapstructure:"tables"`
	Customers  int   `mapstructure:"customers"`
	RandomSeed int64 `mapstructure:"random_seed"`
}

type KitchenConfig struct {
	WorkerName        string        `mapstructure:"worker_name"`
	OrderKinds        []string      `mapstructure:"order_kinds"`
	Prefetch          int           `mapstructure:"prefetch"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	CookTime          time.Duration `mapstructure:"cook_time"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "restaurant")
	v.SetDefault("database.password", "restaurant")
	v.SetDefault("database.database", "restaurant_pos")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("rabbitmq.enabled", true)
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "/")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "restaurant.order-events")
	v.SetDefault("kafka.client_id", "restaurant-pos")

	v.SetDefault("redis.key_prefix", "rpos:idem")
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("http.port", 3000)
	v.SetDefault("http.max_concurrent", 50)
	v.SetDefault("http.shutdown_grace", 5*time.Second)

	v.SetDefault("auth.issuer", "restaurant-pos")

	v.SetDefault("archive.region", "us-east-1")

	v.SetDefault("fulfillment.store", "postgres")
	v.SetDefault("fulfillment.store_timeout", 3*time.Second)
	v.SetDefault("fulfillment.notify_timeout", 2*time.Second)
	v.SetDefault("fulfillment.finalize_to_dirty", false)
	v.SetDefault("fulfillment.page_limit", 20)

	v.SetDefault("kitchen.prefetch", 1)
	v.SetDefault("kitchen.heartbeat_interval", 30*time.Second)
	v.SetDefault("kitchen.cook_time", 8*time.Second)

	v.SetDefault("tracker.port", 3002)

	v.SetDefault("seed.tables", 12)
	v.SetDefault("seed.customers", 50)
	v.SetDefault("seed.random_seed", 1)
}

// Load reads path (if not empty) and RPOS_* environment overrides into a Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("RPOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("couldn't read the configuration: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Fulfillment.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("fulfillment.store must be postgres or memory, got %q", c.Fulfillment.Store)
	}
	if c.Fulfillment.StoreTimeout <= 0 {
		return errors.New("fulfillment.store_timeout must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	return nil
}
