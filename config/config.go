package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4444"`

	// Google OAuth und Session-Tokens
	GoogleClientID string `envconfig:"GOOGLE_CLIENT_ID" required:"true"`
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiryHours int    `envconfig:"JWT_EXPIRY_HOURS" default:"24"`

	// Nächtlicher Export aller Links nach S3
	ExportEnabled      bool   `envconfig:"EXPORT_ENABLED" default:"true"`
	ExportCronSchedule string `envconfig:"EXPORT_CRON_SCHEDULE" default:"0 3 * * *"`

	StratoS3Key    string `envconfig:"STRATO_S3_KEY" required:"true"`
	StratoS3Secret string `envconfig:"STRATO_S3_SECRET" required:"true"`
	StratoS3URL    string `envconfig:"STRATO_S3_URL" required:"true"`
	StratoS3Region string `envconfig:"STRATO_S3_REGION" required:"true"`
	StratoS3Bucket string `envconfig:"STRATO_S3_BUCKET" required:"true"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
