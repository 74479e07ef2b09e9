package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Brokers          []string
		ExpiredTopic     string
		UpsellTopic      string
		GroupID          string
		DeadLetterSuffix string
		// Broker-side write attempts, settable per notification class.
		ExpiredWriteAttempts int
		UpsellWriteAttempts  int
	}
	DB struct {
		DSN string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		From       string
		To         string
		Enabled    bool
	}
	API struct {
		Port     string
		BasePath string
	}
	Notification struct {
		QueueSize  int
		MaxWorkers int
	}
	Retry struct {
		MaxAttempts  int
		InitialDelay time.Duration
		Multiplier   float64
		MaxDelay     time.Duration
	}
	ConsumerRetry struct {
		MaxAttempts  int
		InitialDelay time.Duration
		Multiplier   float64
	}
	Rules struct {
		ExpiredServicesLimit int
		UpsellYears          int
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Kafka settings
	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		cfg.Kafka.Brokers = []string{broker}
	}
	cfg.Kafka.ExpiredTopic = os.Getenv("KAFKA_TOPIC_EXPIRED_SERVICES")
	cfg.Kafka.UpsellTopic = os.Getenv("KAFKA_TOPIC_UPSELLING_SERVICE")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")
	cfg.Kafka.DeadLetterSuffix = os.Getenv("KAFKA_DLT_SUFFIX")
	if n, err := strconv.Atoi(os.Getenv("KAFKA_EXPIRED_WRITE_ATTEMPTS")); err == nil {
		cfg.Kafka.ExpiredWriteAttempts = n
	}
	if n, err := strconv.Atoi(os.Getenv("KAFKA_UPSELLING_WRITE_ATTEMPTS")); err == nil {
		cfg.Kafka.UpsellWriteAttempts = n
	}

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.From = os.Getenv("EMAIL_FROM")
	cfg.Email.To = os.Getenv("EMAIL_TO")
	cfg.Email.Enabled = os.Getenv("EMAIL_ENABLED") == "true"

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Notification worker settings
	if qs, err := strconv.Atoi(os.Getenv("QUEUE_SIZE")); err == nil {
		cfg.Notification.QueueSize = qs
	}
	if mw, err := strconv.Atoi(os.Getenv("MAX_WORKERS")); err == nil {
		cfg.Notification.MaxWorkers = mw
	}

	// Producer-side retry settings
	if n, err := strconv.Atoi(os.Getenv("RETRY_MAX_ATTEMPTS")); err == nil {
		cfg.Retry.MaxAttempts = n
	}
	if ms, err := strconv.Atoi(os.Getenv("RETRY_INITIAL_DELAY_MS")); err == nil {
		cfg.Retry.InitialDelay = time.Duration(ms) * time.Millisecond
	}
	if m, err := strconv.ParseFloat(os.Getenv("RETRY_MULTIPLIER"), 64); err == nil {
		cfg.Retry.Multiplier = m
	}
	if ms, err := strconv.Atoi(os.Getenv("RETRY_MAX_DELAY_MS")); err == nil {
		cfg.Retry.MaxDelay = time.Duration(ms) * time.Millisecond
	}

	// Consumer-side retry settings, tuned for mail-server outages
	if n, err := strconv.Atoi(os.Getenv("CONSUMER_RETRY_MAX_ATTEMPTS")); err == nil {
		cfg.ConsumerRetry.MaxAttempts = n
	}
	if ms, err := strconv.Atoi(os.Getenv("CONSUMER_RETRY_INITIAL_DELAY_MS")); err == nil {
		cfg.ConsumerRetry.InitialDelay = time.Duration(ms) * time.Millisecond
	}
	if m, err := strconv.ParseFloat(os.Getenv("CONSUMER_RETRY_MULTIPLIER"), 64); err == nil {
		cfg.ConsumerRetry.Multiplier = m
	}

	// Business rule thresholds
	if n, err := strconv.Atoi(os.Getenv("EXPIRED_SERVICES_LIMIT")); err == nil {
		cfg.Rules.ExpiredServicesLimit = n
	}
	if n, err := strconv.Atoi(os.Getenv("YEARS_SUBSCRIPTION_LIMIT")); err == nil {
		cfg.Rules.UpsellYears = n
	}

	// Logging
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if len(cfg.Kafka.Brokers) == 0 {
		missing = append(missing, "KAFKA_BROKER")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Kafka.ExpiredTopic == "" {
		cfg.Kafka.ExpiredTopic = "expired-services"
	}
	if cfg.Kafka.UpsellTopic == "" {
		cfg.Kafka.UpsellTopic = "email-upselling-service"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "email-upselling-service"
	}
	if cfg.Kafka.DeadLetterSuffix == "" {
		cfg.Kafka.DeadLetterSuffix = ".DLT"
	}
	if cfg.Kafka.ExpiredWriteAttempts == 0 {
		cfg.Kafka.ExpiredWriteAttempts = 3
	}
	if cfg.Kafka.UpsellWriteAttempts == 0 {
		cfg.Kafka.UpsellWriteAttempts = 3
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v1"
	}
	if cfg.Notification.QueueSize == 0 {
		cfg.Notification.QueueSize = 25
	}
	if cfg.Notification.MaxWorkers == 0 {
		cfg.Notification.MaxWorkers = 10
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 4
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = time.Second
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = 2
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 10 * time.Second
	}
	if cfg.ConsumerRetry.MaxAttempts == 0 {
		cfg.ConsumerRetry.MaxAttempts = 5
	}
	if cfg.ConsumerRetry.InitialDelay == 0 {
		cfg.ConsumerRetry.InitialDelay = time.Minute
	}
	if cfg.ConsumerRetry.Multiplier == 0 {
		cfg.ConsumerRetry.Multiplier = 2
	}
	if cfg.Rules.ExpiredServicesLimit == 0 {
		cfg.Rules.ExpiredServicesLimit = 5
	}
	if cfg.Rules.UpsellYears == 0 {
		cfg.Rules.UpsellYears = 3
	}

	return cfg, nil
}
