// Package config loads application configuration from a dotenv file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

// DefaultEnvFile is read when GUARDIANSYNC_ENV_FILE is not set.
const DefaultEnvFile = ".env"

// Supported destination database drivers.
const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// ErrMissingKey is wrapped by every MissingKeyError.
var ErrMissingKey = errors.New("missing required configuration value")

// MissingKeyError names the required key that was absent or blank.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required configuration value %s is missing or empty", e.Key)
}

func (e *MissingKeyError) Unwrap() error { return ErrMissingKey }

// requiredKeys are checked in order; the first missing one is reported.
var requiredKeys = []string{
	"TOKEN",
	"APPKEY",
	"USERNAME",
	"PASSWORD",
	"DB_HOST",
	"DB_NAME",
	"DB_USER",
	"DB_PASSWORD",
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds the application configuration.
type Config struct {
	Credentials model.Credentials

	APIBaseURL  string
	HTTPTimeout time.Duration

	DBDriver  string
	DBPort    string
	DBSSLMode string
	DestTable string

	FlagEntity string
	FlagPK     string
	FlagField  string

	ListenAddr    string
	HistoryDBPath string
	Schedule      string

	LogLevel  slog.Level
	LogFormat string
}

// EnvFile returns the dotenv path to load: GUARDIANSYNC_ENV_FILE when set,
// DefaultEnvFile otherwise.
func EnvFile() string {
	if v, ok := os.LookupEnv("GUARDIANSYNC_ENV_FILE"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return DefaultEnvFile
}

// Load reads envFile (a missing file is ignored) and the process environment
// and returns a validated Config. Values from the file win over the
// environment so that ambient variables such as USERNAME cannot shadow the
// intended ones. A missing required value is reported as *MissingKeyError
// before anything else is validated.
func Load(envFile string) (*Config, error) {
	fileValues, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	src := source{file: fileValues, lookupEnv: os.LookupEnv}

	values := make(map[string]string, len(requiredKeys))
	for _, key := range requiredKeys {
		v := src.get(key)
		if v == "" {
			return nil, &MissingKeyError{Key: key}
		}
		values[key] = v
	}

	cfg := &Config{
		Credentials: model.Credentials{
			Token:      values["TOKEN"],
			AppKey:     values["APPKEY"],
			Username:   values["USERNAME"],
			Password:   values["PASSWORD"],
			DBHost:     values["DB_HOST"],
			DBName:     values["DB_NAME"],
			DBUser:     values["DB_USER"],
			DBPassword: values["DB_PASSWORD"],
		},
		APIBaseURL:    strings.TrimRight(src.getOr("GUARDIANSYNC_API_BASE_URL", "https://api.sankhya.com.br"), "/"),
		DBDriver:      strings.ToLower(src.getOr("DB_DRIVER", DriverPostgres)),
		DBPort:        src.get("DB_PORT"),
		DBSSLMode:     src.getOr("DB_SSLMODE", "disable"),
		DestTable:     src.getOr("GUARDIANSYNC_DEST_TABLE", "parceiros_guardian"),
		FlagEntity:    src.getOr("GUARDIANSYNC_FLAG_ENTITY", "Parceiro"),
		FlagPK:        src.getOr("GUARDIANSYNC_FLAG_PK", "CODPARC"),
		FlagField:     src.getOr("GUARDIANSYNC_FLAG_FIELD", "AD_IMPORTADOGUARDIAN"),
		ListenAddr:    src.getOr("GUARDIANSYNC_LISTEN_ADDR", "127.0.0.1:8080"),
		HistoryDBPath: src.getOr("GUARDIANSYNC_HISTORY_DB", "guardiansync.db"),
		Schedule:      src.get("GUARDIANSYNC_SCHEDULE"),
		LogFormat:     strings.ToLower(src.getOr("GUARDIANSYNC_LOG_FORMAT", "text")),
	}

	timeout := src.getOr("GUARDIANSYNC_HTTP_TIMEOUT", "60s")
	cfg.HTTPTimeout, err = time.ParseDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("GUARDIANSYNC_HTTP_TIMEOUT has invalid duration %q: %w", timeout, err)
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("GUARDIANSYNC_HTTP_TIMEOUT must be positive, got %s", cfg.HTTPTimeout)
	}

	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLServer, DriverSQLite:
	default:
		return nil, fmt.Errorf("DB_DRIVER %q is not supported (want postgres, sqlserver or sqlite)", cfg.DBDriver)
	}

	if !identPattern.MatchString(cfg.DestTable) {
		return nil, fmt.Errorf("GUARDIANSYNC_DEST_TABLE %q is not a valid table name", cfg.DestTable)
	}

	level := src.getOr("GUARDIANSYNC_LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("GUARDIANSYNC_LOG_LEVEL has invalid level %q: %w", level, err)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("GUARDIANSYNC_LOG_FORMAT %q is not supported (want text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

// source resolves a key from the dotenv file first, then the environment.
type source struct {
	file      map[string]string
	lookupEnv func(string) (string, bool)
}

func (s source) get(key string) string {
	if v, ok := s.file[key]; ok {
		return strings.TrimSpace(v)
	}
	if v, ok := s.lookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (s source) getOr(key, def string) string {
	if v := s.get(key); v != "" {
		return v
	}
	return def
}
