package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	JWTSecret        string

	// Daraja (M-Pesa) gateway
	DarajaBaseURL     string
	DarajaConsumerKey string
	DarajaSecret      string
	DarajaShortcode   string
	DarajaPasskey     string
	CallbackBaseURL   string
	WebhookSecret     string

	// B2C (withdrawals) only
	DarajaInitiatorName     string
	DarajaInitiatorPassword string
	DarajaCertPath          string

	KafkaBrokers      string
	PaymentEventTopic string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8090"),
		Env:              getEnv("ENVIRONMENT", "development"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		JWTSecret:        os.Getenv("JWT_SECRET"),

		DarajaBaseURL:     getEnv("DARAJA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		DarajaConsumerKey: os.Getenv("DARAJA_CONSUMER_KEY"),
		DarajaSecret:      os.Getenv("DARAJA_CONSUMER_SECRET"),
		DarajaShortcode:   os.Getenv("DARAJA_SHORTCODE"),
		DarajaPasskey:     os.Getenv("DARAJA_PASSKEY"),
		CallbackBaseURL:   os.Getenv("CALLBACK_BASE_URL"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),

		DarajaInitiatorName:     os.Getenv("DARAJA_INITIATOR_NAME"),
		DarajaInitiatorPassword: os.Getenv("DARAJA_INITIATOR_PASSWORD"),
		DarajaCertPath:          os.Getenv("DARAJA_CERT_PATH"),

		KafkaBrokers:      getEnv("KAFKA_BROKERS", "localhost:9092"),
		PaymentEventTopic: getEnv("PAYMENT_EVENT_TOPIC", "payment-events"),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" ||
		cfg.JWTSecret == "" || cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
