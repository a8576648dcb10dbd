package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Detection DetectionConfig
	Email     EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret         string
	TokenExpiry       time.Duration
	AdminUsername     string
	AdminPasswordHash string
	InternalToken     string
}

// DetectionConfig holds every tunable of the detection engine. Values are
// adjustable via environment, never compiled constants.
type DetectionConfig struct {
	RateWindow               time.Duration
	RateSoftThreshold        int
	RateEscalationMultiplier int
	BruteForceWindow         time.Duration
	BruteForceThreshold      int
	AutoBlockDuration        time.Duration
	SweepInterval            time.Duration
	MaxScanBytes             int
	EventDedupeWindow        time.Duration
}

type EmailConfig struct {
	Enabled      bool
	AWSRegion    string
	FromAddress  string
	AlertAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "bulwark"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			TokenExpiry:       getEnvAsDuration("ADMIN_TOKEN_EXPIRY", 1*time.Hour),
			AdminUsername:     getEnv("ADMIN_USERNAME", ""),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			InternalToken:     getEnv("INTERNAL_API_TOKEN", ""),
		},
		Detection: DetectionConfig{
			RateWindow:               getEnvAsDuration("RATE_WINDOW", 60*time.Second),
			RateSoftThreshold:        getEnvAsInt("RATE_SOFT_THRESHOLD", 100),
			RateEscalationMultiplier: getEnvAsInt("RATE_ESCALATION_MULTIPLIER", 2),
			BruteForceWindow:         getEnvAsDuration("BRUTE_FORCE_WINDOW", 15*time.Minute),
			BruteForceThreshold:      getEnvAsInt("BRUTE_FORCE_THRESHOLD", 5),
			AutoBlockDuration:        getEnvAsDuration("AUTO_BLOCK_DURATION", 60*time.Minute),
			SweepInterval:            getEnvAsDuration("SWEEP_INTERVAL", 1*time.Minute),
			MaxScanBytes:             getEnvAsInt("MAX_SCAN_BYTES", 64*1024),
			EventDedupeWindow:        getEnvAsDuration("EVENT_DEDUPE_WINDOW", 15*time.Minute),
		},
		Email: EmailConfig{
			Enabled:      getEnvAsBool("ALERT_EMAIL_ENABLED", false),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			FromAddress:  getEnv("ALERT_FROM_ADDRESS", ""),
			AlertAddress: getEnv("ALERT_TO_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := validateDetection(&cfg.Detection); err != nil {
		return nil, err
	}

	if cfg.Email.Enabled && (cfg.Email.FromAddress == "" || cfg.Email.AlertAddress == "") {
		return nil, fmt.Errorf("ALERT_FROM_ADDRESS and ALERT_TO_ADDRESS are required when ALERT_EMAIL_ENABLED is true")
	}

	return cfg, nil
}

// validateDetection fails fast on thresholds that would silently disable
// detection
func validateDetection(d *DetectionConfig) error {
	if d.RateWindow <= 0 {
		return fmt.Errorf("RATE_WINDOW must be positive (got %s)", d.RateWindow)
	}
	if d.RateSoftThreshold <= 0 {
		return fmt.Errorf("RATE_SOFT_THRESHOLD must be positive (got %d)", d.RateSoftThreshold)
	}
	if d.RateEscalationMultiplier < 2 {
		return fmt.Errorf("RATE_ESCALATION_MULTIPLIER must be at least 2 (got %d)", d.RateEscalationMultiplier)
	}
	if d.BruteForceWindow <= 0 {
		return fmt.Errorf("BRUTE_FORCE_WINDOW must be positive (got %s)", d.BruteForceWindow)
	}
	if d.BruteForceThreshold <= 0 {
		return fmt.Errorf("BRUTE_FORCE_THRESHOLD must be positive (got %d)", d.BruteForceThreshold)
	}
	if d.SweepInterval <= 0 || d.SweepInterval > d.RateWindow*10 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive and close to the rate window (got %s)", d.SweepInterval)
	}
	if d.MaxScanBytes <= 0 {
		return fmt.Errorf("MAX_SCAN_BYTES must be positive (got %d)", d.MaxScanBytes)
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for the admin token secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires a 256-bit secret
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
