// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"geosm/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`

	Neo4jURI      string `mapstructure:"NEO4J_URI"`
	Neo4jUser     string `mapstructure:"NEO4J_USER"`
	Neo4jPassword string `mapstructure:"NEO4J_PASSWORD"`
	Neo4jDatabase string `mapstructure:"NEO4J_DATABASE"`

	RedisURL    string `mapstructure:"REDIS_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	TracingEndpoint     string  `mapstructure:"TRACING_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	RecaptchaSecret string `mapstructure:"RECAPTCHA_SECRET"`
	GeocoderURL     string `mapstructure:"GEOCODER_URL"`

	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS"`

	DevBootstrapAdmin bool   `mapstructure:"DEV_BOOTSTRAP_ADMIN"`
	DevAdminUsername  string `mapstructure:"DEV_ADMIN_USERNAME"`
	DevAdminPassword  string `mapstructure:"DEV_ADMIN_PASSWORD"`

	StartingReputation  int     `mapstructure:"STARTING_REPUTATION"`
	UnlistedThreshold   int     `mapstructure:"UNLISTED_THRESHOLD"`
	AutoReportEnabled   bool    `mapstructure:"AUTO_REPORT_ENABLED"`
	AutoReportThreshold int     `mapstructure:"AUTO_REPORT_THRESHOLD"`
	DefaultAvatar       string  `mapstructure:"DEFAULT_AVATAR"`
	RegistrationTTLHrs  int     `mapstructure:"REGISTRATION_TTL_HOURS"`
	ReportLeaseMinutes  int     `mapstructure:"REPORT_LEASE_MINUTES"`
	AuthCodeTTLMinutes  int     `mapstructure:"AUTH_CODE_TTL_MINUTES"`
	FeedRadiusMeters    float64 `mapstructure:"FEED_RADIUS_METERS"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	defaults := models.DefaultPlatform()

	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("FEATURE_FLAGS", "captcha=off,notifications=on")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "geosm")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "sql")

	viper.SetDefault("NEO4J_URI", "neo4j://localhost:7687")
	viper.SetDefault("NEO4J_USER", "neo4j")
	viper.SetDefault("NEO4J_PASSWORD", "password")
	viper.SetDefault("NEO4J_DATABASE", "neo4j")

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("RABBITMQ_URL", "")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("TRACING_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	viper.SetDefault("RECAPTCHA_SECRET", "")
	viper.SetDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org/search")

	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 60)

	viper.SetDefault("DEV_BOOTSTRAP_ADMIN", false)
	viper.SetDefault("DEV_ADMIN_USERNAME", "geosm_root")
	viper.SetDefault("DEV_ADMIN_PASSWORD", "")

	viper.SetDefault("STARTING_REPUTATION", defaults.Settings.StartingReputation)
	viper.SetDefault("UNLISTED_THRESHOLD", defaults.Settings.UnlistedThreshold)
	viper.SetDefault("AUTO_REPORT_ENABLED", defaults.Settings.AutoReportEnabled)
	viper.SetDefault("AUTO_REPORT_THRESHOLD", defaults.Settings.AutoReportThreshold)
	viper.SetDefault("DEFAULT_AVATAR", defaults.DefaultAvatar)
	viper.SetDefault("REGISTRATION_TTL_HOURS", int(defaults.RegistrationTTL/time.Hour))
	viper.SetDefault("REPORT_LEASE_MINUTES", int(defaults.ReportLease/time.Minute))
	viper.SetDefault("AUTH_CODE_TTL_MINUTES", int(defaults.AuthCodeTTL/time.Minute))
	viper.SetDefault("FEED_RADIUS_METERS", defaults.FeedRadiusMeters)
}

// IsProduction reports whether the config describes a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.DBHost == "" || c.DBName == "" {
		return errors.New("DB_HOST and DB_NAME are required")
	}
	if c.Neo4jURI == "" {
		return errors.New("NEO4J_URI is required")
	}
	if c.RegistrationTTLHrs <= 0 || c.ReportLeaseMinutes <= 0 || c.AuthCodeTTLMinutes <= 0 {
		return errors.New("REGISTRATION_TTL_HOURS, REPORT_LEASE_MINUTES and AUTH_CODE_TTL_MINUTES must be positive")
	}
	if c.SweepIntervalSeconds <= 0 {
		return errors.New("SWEEP_INTERVAL_SECONDS must be positive")
	}
	if c.FeedRadiusMeters <= 0 {
		return errors.New("FEED_RADIUS_METERS must be positive")
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be within [0,1]")
	}

	if c.IsProduction() {
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.Neo4jPassword == "password" || c.Neo4jPassword == "" {
			return errors.New("a strong NEO4J_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must not be disabled in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	}

	return nil
}

// Platform returns the engine defaults described by the config.
func (c *Config) Platform() models.PlatformDefaults {
	return models.PlatformDefaults{
		Settings: models.Settings{
			SettingsID:          models.SettingsRowID,
			StartingReputation:  c.StartingReputation,
			UnlistedThreshold:   c.UnlistedThreshold,
			AutoReportEnabled:   c.AutoReportEnabled,
			AutoReportThreshold: c.AutoReportThreshold,
		},
		DefaultAvatar:    c.DefaultAvatar,
		RegistrationTTL:  time.Duration(c.RegistrationTTLHrs) * time.Hour,
		ReportLease:      time.Duration(c.ReportLeaseMinutes) * time.Minute,
		AuthCodeTTL:      time.Duration(c.AuthCodeTTLMinutes) * time.Minute,
		FeedRadiusMeters: c.FeedRadiusMeters,
	}
}

// SweepInterval returns the period of the expiry sweep.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
