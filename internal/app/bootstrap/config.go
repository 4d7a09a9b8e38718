package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string
	LogLevel  string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	MaxDBConns         int32
	KafkaConsumerGroup string
	// Consumed topics keyed by the event type they carry.
	KafkaTopicsIn map[string]string
	// Produced topics keyed by event type.
	KafkaTopicsOut map[string]string

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	ConsumerPollInterval time.Duration
	ConsumerBatchSize    int

	TrustScoreCacheTTL    time.Duration
	RefreshLimitPerMinute int
	PendingQueueLimit     int
	IdempotencyTTL        time.Duration
	EventDedupTTL         time.Duration

	JWTSecret      string
	JWTIssuer      string
	EncryptionSeed string

	RunMigrations bool
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL        string            `yaml:"postgres_url"`
		PostgresMaxConns   int               `yaml:"postgres_max_conns"`
		RedisURL           string            `yaml:"redis_url"`
		KafkaBrokers       []string          `yaml:"kafka_brokers"`
		KafkaConsumerGroup string            `yaml:"kafka_consumer_group"`
		KafkaTopicsIn      map[string]string `yaml:"kafka_topics_in"`
		KafkaTopicsOut     map[string]string `yaml:"kafka_topics_out"`
	} `yaml:"dependencies"`
	Trust struct {
		ScoreCacheSeconds     int `yaml:"score_cache_seconds"`
		RefreshLimitPerMinute int `yaml:"refresh_limit_per_minute"`
		PendingQueueLimit     int `yaml:"pending_queue_limit"`
	} `yaml:"trust"`
	Workers struct {
		OutboxPollSeconds   int `yaml:"outbox_poll_seconds"`
		OutboxBatchSize     int `yaml:"outbox_batch_size"`
		ConsumerPollSeconds int `yaml:"consumer_poll_seconds"`
		ConsumerBatchSize   int `yaml:"consumer_batch_size"`
	} `yaml:"workers"`
	Auth struct {
		JWTIssuer string `yaml:"jwt_issuer"`
	} `yaml:"auth"`
}

func defaultConfig() Config {
	return Config{
		ServiceID:             "trust-service",
		LogLevel:              "info",
		HTTPPort:              8080,
		GRPCPort:              9090,
		MaxDBConns:            20,
		KafkaConsumerGroup:    "trust-service",
		KafkaTopicsIn:         map[string]string{},
		KafkaTopicsOut:        map[string]string{},
		OutboxPollInterval:    2 * time.Second,
		OutboxBatchSize:       100,
		ConsumerPollInterval:  2 * time.Second,
		ConsumerBatchSize:     50,
		TrustScoreCacheTTL:    5 * time.Minute,
		RefreshLimitPerMinute: 5,
		PendingQueueLimit:     50,
		IdempotencyTTL:        7 * 24 * time.Hour,
		EventDedupTTL:         7 * 24 * time.Hour,
		EncryptionSeed:        "trust-default-seed",
		RunMigrations:         true,
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.EncryptionSeed = envOrDefault("ENCRYPTION_SEED", cfg.EncryptionSeed)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.ConsumerBatchSize = envInt("CONSUMER_BATCH_SIZE", cfg.ConsumerBatchSize)
	cfg.TrustScoreCacheTTL = time.Duration(envInt("TRUST_SCORE_CACHE_SECONDS", int(cfg.TrustScoreCacheTTL.Seconds()))) * time.Second
	cfg.RefreshLimitPerMinute = envInt("TRUST_REFRESH_LIMIT_PER_MINUTE", cfg.RefreshLimitPerMinute)
	cfg.PendingQueueLimit = envInt("PENDING_QUEUE_LIMIT", cfg.PendingQueueLimit)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.RunMigrations = envBool("RUN_MIGRATIONS", cfg.RunMigrations)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.PostgresMaxConns > 0 {
		cfg.MaxDBConns = int32(f.Dependencies.PostgresMaxConns)
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
	}
	for eventType, topic := range f.Dependencies.KafkaTopicsIn {
		if t := strings.TrimSpace(topic); t != "" {
			cfg.KafkaTopicsIn[eventType] = t
		}
	}
	for eventType, topic := range f.Dependencies.KafkaTopicsOut {
		if t := strings.TrimSpace(topic); t != "" {
			cfg.KafkaTopicsOut[eventType] = t
		}
	}
	if f.Trust.ScoreCacheSeconds > 0 {
		cfg.TrustScoreCacheTTL = time.Duration(f.Trust.ScoreCacheSeconds) * time.Second
	}
	if f.Trust.RefreshLimitPerMinute > 0 {
		cfg.RefreshLimitPerMinute = f.Trust.RefreshLimitPerMinute
	}
	if f.Trust.PendingQueueLimit > 0 {
		cfg.PendingQueueLimit = f.Trust.PendingQueueLimit
	}
	if f.Workers.OutboxPollSeconds > 0 {
		cfg.OutboxPollInterval = time.Duration(f.Workers.OutboxPollSeconds) * time.Second
	}
	if f.Workers.OutboxBatchSize > 0 {
		cfg.OutboxBatchSize = f.Workers.OutboxBatchSize
	}
	if f.Workers.ConsumerPollSeconds > 0 {
		cfg.ConsumerPollInterval = time.Duration(f.Workers.ConsumerPollSeconds) * time.Second
	}
	if f.Workers.ConsumerBatchSize > 0 {
		cfg.ConsumerBatchSize = f.Workers.ConsumerBatchSize
	}
	if f.Auth.JWTIssuer != "" {
		cfg.JWTIssuer = f.Auth.JWTIssuer
	}
	return nil
}

// ConsumedTopics returns the topic for each event type, defaulting to a topic
// named after the event.
func (c Config) ConsumedTopics(eventTypes []string) (topics []string, eventByTopic map[string]string) {
	eventByTopic = make(map[string]string, len(eventTypes))
	for _, eventType := range eventTypes {
		topic := eventType
		if mapped, ok := c.KafkaTopicsIn[eventType]; ok && mapped != "" {
			topic = mapped
		}
		if _, seen := eventByTopic[topic]; !seen {
			topics = append(topics, topic)
		}
		eventByTopic[topic] = eventType
	}
	return topics, eventByTopic
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
