// Package config loads the portal configuration from the environment. A .env
// file in the working directory is read first when present; flags set on the
// command line override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// App names.
const (
	AppTenant   = "tenant"
	AppLandlord = "landlord"
)

// Config holds everything a portal binary needs.
type Config struct {
	App string

	HTTPPort int
	GRPCPort int
	OpsPort  int

	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL string

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	PublicURL        string

	// SnapshotKey is the hex encoded AES key sealing local snapshots.
	SnapshotKey string

	ResetDelay   time.Duration
	SecureCookie bool
}

// Load reads the environment, applying defaults for unset variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App:              getEnv("HOUSEZEN_APP", AppTenant),
		PublicURL:        getEnv("HOUSEZEN_PUBLIC_URL", "http://localhost:8080"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBUser:           getEnv("DB_USER", "admin"),
		DBPass:           getEnv("DB_PASS", "securepassword"),
		DBName:           getEnv("DB_NAME", "housezen"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		NATSURL:          getEnv("NATS_URL", ""),
		OIDCIssuer:       getEnv("OIDC_ISSUER", "https://accounts.google.com"),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		SnapshotKey:      getEnv("HOUSEZEN_SNAPSHOT_KEY", ""),
	}

	var err error
	if cfg.HTTPPort, err = getEnvInt("HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.GRPCPort, err = getEnvInt("GRPC_PORT", 50051); err != nil {
		return nil, err
	}
	if cfg.OpsPort, err = getEnvInt("OPS_PORT", 8081); err != nil {
		return nil, err
	}
	if cfg.DBPort, err = getEnvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ResetDelay, err = getEnvDuration("HOUSEZEN_RESET_DELAY", 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SecureCookie, err = getEnvBool("HOUSEZEN_SECURE_COOKIE", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.App != AppTenant && c.App != AppLandlord {
		return fmt.Errorf("unknown app %q", c.App)
	}
	if c.OIDCClientID == "" {
		return errors.New("OIDC client id is required")
	}
	if c.HTTPPort == c.OpsPort {
		return errors.New("http and ops ports must differ")
	}
	return nil
}

// DSN is the backend database connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

// RedirectURL is the OAuth callback of the app.
func (c *Config) RedirectURL() string {
	return c.PublicURL + "/auth/callback"
}

// Namespace prefixes every Redis key of the app.
func (c *Config) Namespace() string {
	return "housezen:" + c.App
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
