package config

import (
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// RequiredVars must be present for the service to start.
var RequiredVars = []string{"DATABASE_URL"}

// Config holds everything the comments service reads from the environment.
type Config struct {
	ServiceName string
	Host        string
	Port        int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	DatabaseURL string
	// AdminToken gates pin/delete and elevates comment role. Empty disables admin access.
	AdminToken string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheSize     int

	KafkaBrokers string
	CommentTopic string

	ConsulAddr  string
	ConsulToken string
}

// Load reads the configuration. Missing optional values fall back to defaults.
func Load() *Config {
	return &Config{
		ServiceName: GetEnvOrDefault("SERVICE_NAME", "comments-service"),
		Host:        GetEnvOrDefault("COMMENTS_SERVICE_HOST", "localhost"),
		Port:        getEnvInt("PORT", 8085),

		ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),

		DatabaseURL: GetEnvOrDefault("DATABASE_URL", ""),
		AdminToken:  GetEnvOrDefault("ADMIN_TOKEN", ""),

		RedisAddr:     GetEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword: GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheSize:     getEnvInt("CACHE_SIZE", 512),

		KafkaBrokers: GetEnvOrDefault("KAFKA_BROKERS", ""),
		CommentTopic: GetEnvOrDefault("KAFKA_TOPIC_COMMENT_EVENTS", "comment-events"),

		ConsulAddr:  GetEnvOrDefault("CONSUL_HTTP_ADDR", ""),
		ConsulToken: GetEnvOrDefault("CONSUL_HTTP_TOKEN", ""),
	}
}
