package config

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	pkgconfig "github.com/parley-chat/parley/pkg/config"
	"github.com/parley-chat/parley/pkg/database"
)

type Config struct {
	Server     ServerConfig
	Instance   InstanceConfig
	WebSocket  WebSocketConfig
	JWT        JWTConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	Database   database.Config
	Presence   PresenceConfig
	Membership MembershipConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// InstanceConfig identifies one gateway process. The id names the
// per-instance broadcast consumer group, so two processes sharing an id
// would split the persisted stream between them instead of each
// receiving all of it.
type InstanceConfig struct {
	ID string
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type JWTConfig struct {
	Secret string
}

type KafkaConfig struct {
	Brokers        string
	Partitions     int
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type PresenceConfig struct {
	TTL time.Duration
}

type MembershipConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("instance.id", "")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 16384)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("kafka.publish_timeout", "5s")
	v.SetDefault("kafka.retry_backoff", "1s")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "parley")
	v.SetDefault("database.password", "parley")
	v.SetDefault("database.dbname", "parley")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("presence.ttl", "60s")
	v.SetDefault("membership.cache_ttl", "30s")
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("instance.id", "INSTANCE_ID")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.partitions", "KAFKA_PARTITIONS")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Kafka.PublishTimeout = parseDuration(v, "kafka.publish_timeout", 5*time.Second)
	cfg.Kafka.RetryBackoff = parseDuration(v, "kafka.retry_backoff", time.Second)
	cfg.Presence.TTL = parseDuration(v, "presence.ttl", 60*time.Second)
	cfg.Membership.CacheTTL = parseDuration(v, "membership.cache_ttl", 30*time.Second)

	// A process without a configured id gets a random one; restarts then
	// leave orphaned broadcast groups behind, so deployments should pin it.
	if cfg.Instance.ID == "" {
		cfg.Instance.ID = uuid.NewString()
	}

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
