package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFilename is the dotenv file consulted next to the settings file.
const DefaultEnvFilename = ".env"

// Environment variables overriding the YAML settings.
const (
	EnvServerAddress    = "SOS_SERVER_ADDR"
	EnvHTTPAddress      = "SOS_HTTP_ADDR"
	EnvBackendURL       = "SOS_BACKEND_URL"
	EnvDispatcher       = "SOS_DISPATCHER"
	EnvTimeout          = "SOS_TIMEOUT"
	EnvLocationProvider = "SOS_LOCATION_PROVIDER"
	EnvLocationLat      = "SOS_LOCATION_LAT"
	EnvLocationLon      = "SOS_LOCATION_LON"
	EnvJournalDriver    = "SOS_JOURNAL_DRIVER"
	EnvJournalDSN       = "SOS_JOURNAL_DSN"
)

// LoadDotEnv loads variables from the dotenv files into the process environment.
// Missing files are ignored; variables already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DefaultEnvFilename}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	return nil
}

// ApplyEnv overrides settings with SOS_* environment variables.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	setString(&cfg.ServerAddress, EnvServerAddress)
	setString(&cfg.HTTPAddress, EnvHTTPAddress)
	setString(&cfg.BackendURL, EnvBackendURL)
	setString(&cfg.Dispatcher, EnvDispatcher)
	setString(&cfg.Location.Provider, EnvLocationProvider)
	setString(&cfg.Journal.Driver, EnvJournalDriver)
	setString(&cfg.Journal.DSN, EnvJournalDSN)

	if v, ok := lookup(EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvTimeout, err)
		}

		cfg.Timeout = d
	}

	if err := setFloat(&cfg.Location.Latitude, EnvLocationLat); err != nil {
		return err
	}

	return setFloat(&cfg.Location.Longitude, EnvLocationLon)
}

// lookup returns a trimmed, non-empty environment value.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}

	v = strings.TrimSpace(v)

	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setFloat(dst *float64, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}

	*dst = f

	return nil
}
