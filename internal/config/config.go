package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "config.yaml"

type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	DB     DBConfig     `yaml:"db"`
	Redis  RedisConfig  `yaml:"redis"`
	JWT    JWTConfig    `yaml:"jwt"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	MinIO  MinIOConfig  `yaml:"minio"`
	SMTP   SMTPConfig   `yaml:"smtp"`
	Log    LogConfig    `yaml:"log"`
	Feed   FeedConfig   `yaml:"feed"`
	Worker WorkerConfig `yaml:"worker"`
}

type HTTPConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: debug / release / test
}

type DBConfig struct {
	Driver string `yaml:"driver"` // mysql / postgres
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	AccessSecret  string        `yaml:"access_secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
}

// KafkaConfig Brokers 为空时不连 kafka，outbox 事件只写日志
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

type FeedConfig struct {
	// 首页推荐关注数量
	HomeSuggestions      int `yaml:"home_suggestions"`
	FollowingSuggestions int `yaml:"following_suggestions"`
}

type WorkerConfig struct {
	OutboxInterval    time.Duration `yaml:"outbox_interval"`
	OutboxBatch       int           `yaml:"outbox_batch"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileBatch    int           `yaml:"reconcile_batch"`
}

// Default 开发环境默认值
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Port: "8080", Mode: "debug"},
		DB: DBConfig{
			Driver: "mysql",
			DSN:    "user:password@tcp(127.0.0.1:3306)/tweeter?charset=utf8mb4&parseTime=True",
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379"},
		JWT: JWTConfig{
			AccessSecret:  "secret-key",
			RefreshSecret: "refresh-key",
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
		Kafka: KafkaConfig{Topic: "social.follow"},
		MinIO: MinIOConfig{Endpoint: "127.0.0.1:9000", Bucket: "profile-pics"},
		SMTP:  SMTPConfig{Port: 587, From: "NoReply <no-reply@example.com>"},
		Log:   LogConfig{Dir: "./logs", Level: "info"},
		Feed:  FeedConfig{HomeSuggestions: 6, FollowingSuggestions: 5},
		Worker: WorkerConfig{
			OutboxInterval:    time.Second,
			OutboxBatch:       200,
			ReconcileInterval: 5 * time.Minute,
			ReconcileBatch:    500,
		},
	}
}

// Load 读取顺序：默认值 -> yaml 文件 -> .env -> 环境变量
func Load() (Config, error) {
	cfg := Default()

	path := getEnv("TWEETER_CONFIG", DefaultConfigPath)
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}

	// .env 不存在时直接用系统环境变量
	_ = godotenv.Load()

	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err = yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Port = getEnv("PORT", cfg.HTTP.Port)
	cfg.HTTP.Mode = getEnv("GIN_MODE", cfg.HTTP.Mode)

	cfg.DB.Driver = getEnv("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.DSN = getEnv("DB_DSN", cfg.DB.DSN)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.JWT.AccessSecret = getEnv("JWT_ACCESS_SECRET", cfg.JWT.AccessSecret)
	cfg.JWT.RefreshSecret = getEnv("JWT_REFRESH_SECRET", cfg.JWT.RefreshSecret)
	cfg.JWT.AccessTTL = getEnvDuration("JWT_ACCESS_TTL", cfg.JWT.AccessTTL)
	cfg.JWT.RefreshTTL = getEnvDuration("JWT_REFRESH_TTL", cfg.JWT.RefreshTTL)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", cfg.MinIO.Endpoint)
	cfg.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.MinIO.AccessKey)
	cfg.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.MinIO.SecretKey)
	cfg.MinIO.Bucket = getEnv("MINIO_BUCKET", cfg.MinIO.Bucket)

	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.From = getEnv("SMTP_FROM", cfg.SMTP.From)

	cfg.Log.Dir = getEnv("LOG_DIR", cfg.Log.Dir)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
