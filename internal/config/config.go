package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Auth   AuthConfig
	Mpesa  MpesaConfig
	// ReceiptDir is the directory receipts are written to
	ReceiptDir string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI    string
	DBName string
}

// AuthConfig holds session token configuration
type AuthConfig struct {
	JWTSecret string
}

// MpesaConfig holds Daraja API credentials and endpoints.
// All credential fields are required; Validate enforces this once so the
// gateway never discovers a missing key mid-request.
type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	BaseURL        string
}

// Validate reports the first missing required Daraja credential.
func (m MpesaConfig) Validate() error {
	switch {
	case m.ConsumerKey == "":
		return fmt.Errorf("MPESA_CONSUMER_KEY is required")
	case m.ConsumerSecret == "":
		return fmt.Errorf("MPESA_CONSUMER_SECRET is required")
	case m.Shortcode == "":
		return fmt.Errorf("MPESA_SHORTCODE is required")
	case m.Passkey == "":
		return fmt.Errorf("MPESA_PASSKEY is required")
	case m.CallbackURL == "":
		return fmt.Errorf("MPESA_CALLBACK_URL is required")
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Mongo: MongoConfig{
			URI:    os.Getenv("MONGOURI"),
			DBName: getEnv("DB_NAME", "dukapaydb"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Mpesa: MpesaConfig{
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			Shortcode:      os.Getenv("MPESA_SHORTCODE"),
			Passkey:        os.Getenv("MPESA_PASSKEY"),
			CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
			BaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		},
		ReceiptDir: getEnv("RECEIPT_DIR", "./receipts"),
	}

	if config.Mongo.URI == "" {
		return nil, fmt.Errorf("MONGOURI environment variable not set")
	}
	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	return config, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
