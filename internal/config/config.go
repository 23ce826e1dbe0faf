// Package config читает конфигурацию сервиса из переменных окружения.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Store   StoreConfig
	Redis   RedisConfig
	MySQL   MySQLConfig
	Receipt ReceiptConfig
	Mail    MailConfig
	Kafka   KafkaConfig
}

type ServerConfig struct {
	AppEnv          string
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

// StoreConfig выбирает хранилище документов: file, memory, redis или mysql.
type StoreConfig struct {
	Backend string
	DataDir string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	LockTTL   time.Duration
}

type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type ReceiptConfig struct {
	OutputDir string
}

// MailConfig реквизиты SMTP для отправки чеков.
// Пустой Host выключает отправку.
type MailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Workers   int
	QueueSize int
}

// KafkaConfig для публикации уведомлений о пополнении. Без брокеров публикация выключена.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:          getEnv("APP_ENV", "dev"),
			HTTPAddr:        getEnv("HTTP_ADDR", ":9091"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":9092"),
			ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 5)) * time.Second,
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", "file")),
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "stockbill:"),
			LockTTL:   time.Duration(getEnvInt("REDIS_LOCK_TTL_MS", 10000)) * time.Millisecond,
		},
		MySQL: MySQLConfig{
			DSN:          getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/stockbill?parseTime=true"),
			MaxOpenConns: getEnvInt("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("MYSQL_MAX_IDLE_CONNS", 5),
		},
		Receipt: ReceiptConfig{
			OutputDir: getEnv("PDF_OUTPUT_DIR", "bills"),
		},
		Mail: MailConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			From:      getEnv("MAIL_FROM", ""),
			Workers:   getEnvInt("MAIL_WORKERS", 2),
			QueueSize: getEnvInt("MAIL_QUEUE_SIZE", 100),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "inventory.refill-alerts"),
		},
	}
}

// IsDevelopment сообщает, что APP_ENV задаёт окружение разработки.
func IsDevelopment(appEnv string) bool {
	switch strings.ToLower(strings.TrimSpace(appEnv)) {
	case "dev", "development":
		return true
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
