package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob the services need. It is built once in main and
// handed to components explicitly; nothing reads the environment after Load.
type Config struct {
	StoreName      string
	CurrencySymbol string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	KafkaBrokers string

	StorefrontPort string
	ConsolePort    string

	// WriteTimeout bounds every order store write. The store is remote and
	// a stuck write must resolve to an error, never a silent hang.
	WriteTimeout time.Duration

	// SweepInterval and SweepGrace drive the orphaned-header reconciler.
	SweepInterval time.Duration
	SweepGrace    time.Duration
}

func Load() Config {
	_ = godotenv.Load() // load .env if it exists

	return Config{
		StoreName:      getEnv("STORE_NAME", "VinCense Store"),
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "₹"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "orderflow"),
		DBPassword: getEnv("DB_PASSWORD", "orderflow"),
		DBName:     getEnv("DB_NAME", "orders"),

		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),

		StorefrontPort: getEnv("STOREFRONT_PORT", "8080"),
		ConsolePort:    getEnv("CONSOLE_PORT", "8081"),

		WriteTimeout:  getDuration("STORE_WRITE_TIMEOUT", 10*time.Second),
		SweepInterval: getDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepGrace:    getDuration("SWEEP_GRACE", 10*time.Minute),
	}
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
