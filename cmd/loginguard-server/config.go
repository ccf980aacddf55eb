package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
}

// serverConfig is everything the binary reads from the environment.
type serverConfig struct {
	Env      string
	Version  string
	Port     string
	LogLevel string
	LogFmt   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseDSN string

	Pepper          string
	RecaptchaSecret string
	CookieSecure    bool
	TrustProxy      bool
	CORSOrigins     []string

	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	OTelEnabled     bool
	ShutdownTimeout time.Duration
}

func loadConfig() serverConfig {
	return serverConfig{
		Env:      getEnvOrDefault("APP_ENV", "dev"),
		Version:  getEnvOrDefault("APP_VERSION", "dev"),
		Port:     getEnvOrDefault("PORT", "8000"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFmt:   getEnvOrDefault("LOG_FORMAT", "json"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		DatabaseDSN: getEnvOrDefault("DB_DSN", "loginguard.db"),

		Pepper:          os.Getenv("USER_PEPER"),
		RecaptchaSecret: os.Getenv("RECAPTCHA_SECRET"),
		CookieSecure:    getEnvBool("COOKIE_SECURE", false),
		TrustProxy:      getEnvBool("TRUST_PROXY", false),
		CORSOrigins:     splitList(getEnvOrDefault("CORS_ORIGIN", "http://localhost:3000")),

		SMTPAddr:     os.Getenv("SMTP_ADDR"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		OTelEnabled:     getEnvBool("OTEL_METRICS", false),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
