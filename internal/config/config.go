package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultServerURL is the backend origin used when nothing else is configured
	DefaultServerURL = "http://127.0.0.1:8080"

	DefaultTimeout = 30 * time.Second
)

// Config holds the environment-driven settings of the CLI
type Config struct {
	// ServerURL overrides any server from medlens.json when set
	ServerURL string

	Credentials CredentialsConfig

	Transport TransportConfig

	Logging LoggingConfig
}

// CredentialsConfig selects where bearer tokens are persisted
type CredentialsConfig struct {
	Backend string // keyring, file, memory
}

// TransportConfig holds HTTP client settings
type TransportConfig struct {
	Timeout       time.Duration
	UploadHeaders string // both, caller
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	backend := strings.ToLower(getEnv("MEDLENS_CREDENTIAL_STORE", "keyring"))
	switch backend {
	case "keyring", "file", "memory":
	default:
		return nil, fmt.Errorf("invalid MEDLENS_CREDENTIAL_STORE '%s', must be one of: keyring, file, memory", backend)
	}

	uploadHeaders := strings.ToLower(getEnv("MEDLENS_UPLOAD_HEADERS", "both"))
	if uploadHeaders != "both" && uploadHeaders != "caller" {
		return nil, fmt.Errorf("invalid MEDLENS_UPLOAD_HEADERS '%s', must be one of: both, caller", uploadHeaders)
	}

	timeout := DefaultTimeout
	if raw := os.Getenv("MEDLENS_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid MEDLENS_TIMEOUT: %w", err)
		}
		timeout = d
	}

	return &Config{
		ServerURL: strings.TrimRight(os.Getenv("MEDLENS_SERVER"), "/"),
		Credentials: CredentialsConfig{
			Backend: backend,
		},
		Transport: TransportConfig{
			Timeout:       timeout,
			UploadHeaders: uploadHeaders,
		},
		Logging: LoggingConfig{
			Level:  getEnv("MEDLENS_LOG_LEVEL", "warn"),
			Format: getEnv("MEDLENS_LOG_FORMAT", "console"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
