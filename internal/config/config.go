package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPassword is used when PASSWORD is unset.
const DefaultPassword = "attendant"

type Config struct {
	Port                int
	Password            string
	BackendURL          string
	AssetsURL           string
	DatabasePath        string
	LogDirectory        string
	LogLevel            string
	EscalationThreshold float64       // Largest decrease amount (currency units) a customer may apply alone
	StallTimeout        time.Duration // Scan time without any confirmation before help is offered
	BacklogAge          time.Duration // Age of the oldest confirmation before the bagging reminder
	MinHistoryLength    int           // Frames an undetermined object must be seen before it counts as backlog
	ReconnectDelay      time.Duration
	AuditFlushInterval  time.Duration
	OverlayEnabled      bool
	SessionTTL          time.Duration
}

// Load reads an optional .env file and then the process environment.
// A missing env file is not an error.
func Load(envFile string) *Config {
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	return &Config{
		Port:                getEnvAsInt("PORT", 8080),
		Password:            getEnv("PASSWORD", DefaultPassword),
		BackendURL:          getEnv("BACKEND_URL", "ws://localhost:5000/ws"),
		AssetsURL:           getEnv("ASSETS_URL", "http://localhost:5000/Assets"),
		DatabasePath:        getEnv("DATABASE_PATH", filepath.Join(".", "data", "selfcheckout.db")),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		EscalationThreshold: getEnvAsFloat("ESCALATION_THRESHOLD", 5.0),
		StallTimeout:        getEnvAsDuration("STALL_TIMEOUT", 10*time.Second),
		BacklogAge:          getEnvAsDuration("BACKLOG_AGE", 3*time.Second),
		MinHistoryLength:    getEnvAsInt("MIN_HISTORY_LENGTH", 0),
		ReconnectDelay:      getEnvAsDuration("RECONNECT_DELAY", 2*time.Second),
		AuditFlushInterval:  getEnvAsDuration("AUDIT_FLUSH_INTERVAL", 10*time.Second),
		OverlayEnabled:      getEnvAsBool("OVERLAY_ENABLED", true),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 12*time.Hour),
	}
}

// Warnings lists unsafe settings worth reporting at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Password == DefaultPassword {
		warnings = append(warnings, "PASSWORD is not set; the attendant login uses the default password")
	}
	return warnings
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("3s") or plain seconds ("3").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultValue
}
