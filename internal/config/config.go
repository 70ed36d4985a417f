// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvPort               = "PORT"
	EnvDBDriver           = "DB_DRIVER"
	EnvDBHost             = "DB_HOST"
	EnvDBPort             = "DB_PORT"
	EnvDBUser             = "DB_USER"
	EnvDBPassword         = "DB_PASSWORD"
	EnvDBName             = "DB_NAME"
	EnvDBSSLMode          = "DB_SSLMODE"
	EnvSQLitePath         = "SQLITE_PATH"
	EnvJWTSecret          = "JWT_SECRET"
	EnvPunchSkewSec       = "PUNCH_SKEW_SECONDS"
	EnvManualCodeTTLSec   = "MANUAL_CODE_TTL_SECONDS"
	EnvManualCodeSweepSec = "MANUAL_CODE_SWEEP_SECONDS"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	JWTSecret string

	PunchSkew       time.Duration
	ManualCodeTTL   time.Duration
	ManualCodeSweep time.Duration
}

// LoadFromEnv reads the process environment (after godotenv has populated
// it) and validates the result.
func LoadFromEnv() (Config, error) {
	skew, err := secondsEnv(EnvPunchSkewSec, 120)
	if err != nil {
		return Config{}, err
	}
	ttl, err := secondsEnv(EnvManualCodeTTLSec, 30)
	if err != nil {
		return Config{}, err
	}
	sweep, err := secondsEnv(EnvManualCodeSweepSec, 300)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: envOrDefault(EnvPort, "8080"),

		DBDriver:   strings.ToLower(envOrDefault(EnvDBDriver, DriverPostgres)),
		DBHost:     envOrDefault(EnvDBHost, "localhost"),
		DBPort:     envOrDefault(EnvDBPort, "5432"),
		DBUser:     envOrDefault(EnvDBUser, "postgres"),
		DBPassword: os.Getenv(EnvDBPassword),
		DBName:     envOrDefault(EnvDBName, "punchclock"),
		DBSSLMode:  envOrDefault(EnvDBSSLMode, "disable"),
		SQLitePath: envOrDefault(EnvSQLitePath, "punchclock.db"),

		JWTSecret: strings.TrimSpace(os.Getenv(EnvJWTSecret)),

		PunchSkew:       skew,
		ManualCodeTTL:   ttl,
		ManualCodeSweep: sweep,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid %s: must be in range 1..65535", EnvPort)
	}
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("invalid %s/%s: must not be empty", EnvDBHost, EnvDBName)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("invalid %s: must not be empty", EnvSQLitePath)
		}
	default:
		return fmt.Errorf("invalid %s: must be %q or %q", EnvDBDriver, DriverPostgres, DriverSQLite)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("invalid %s: must not be empty", EnvJWTSecret)
	}
	if c.PunchSkew <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvPunchSkewSec)
	}
	if c.ManualCodeTTL <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvManualCodeTTLSec)
	}
	// a code must be redeemable while its signed payload is still fresh
	if c.ManualCodeTTL > c.PunchSkew {
		return fmt.Errorf("invalid %s: must not exceed %s", EnvManualCodeTTLSec, EnvPunchSkewSec)
	}
	if c.ManualCodeSweep < 0 {
		return fmt.Errorf("invalid %s: must be >= 0", EnvManualCodeSweepSec)
	}
	return nil
}

// DSN builds the postgres connection string. Timestamps are kept in UTC so
// day boundaries match the punch-type rule.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// secondsEnv reads a whole number of seconds. Unset means fallback; anything
// that is not an integer is an error.
func secondsEnv(key string, fallback int) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return time.Duration(fallback) * time.Second, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer number of seconds", key)
	}
	return time.Duration(n) * time.Second, nil
}
