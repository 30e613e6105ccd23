package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// Config holds the settings shared by the SOS binaries.
type Config struct {
	// ServerAddress is the gRPC address of the alert backend.
	ServerAddress string `yaml:"server_addr"`
	// HTTPAddress is the REST listen address of sos-server.
	HTTPAddress string `yaml:"http_addr"`
	// BackendURL is the REST base URL used by the HTTP dispatcher.
	BackendURL string `yaml:"backend_url,omitempty"`
	// Dispatcher selects how alerts leave the trigger: "grpc" or "http".
	Dispatcher string `yaml:"dispatcher"`
	// LegacyZeroSentinel sends (0,0) instead of null when no location is known.
	LegacyZeroSentinel bool `yaml:"legacy_zero_sentinel,omitempty"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// Hold configures the press-and-hold countdown.
	Hold Hold `yaml:"hold"`
	// Location configures the position lookup.
	Location Location `yaml:"location"`
	// Journal configures where sos-server records received alerts.
	Journal Journal `yaml:"journal"`
}

// Hold is the countdown the user must keep the button pressed for.
type Hold struct {
	// Ticks is the number of countdown steps.
	Ticks int `yaml:"ticks"`
	// Interval is the length of one countdown step.
	Interval time.Duration `yaml:"interval"`
}

// Location selects and configures the location provider.
type Location struct {
	// Provider is one of "none", "static" or "ip".
	Provider string `yaml:"provider"`
	// Latitude of a static installation.
	Latitude float64 `yaml:"latitude,omitempty"`
	// Longitude of a static installation.
	Longitude float64 `yaml:"longitude,omitempty"`
	// LookupURL is the geolocation endpoint used by the "ip" provider.
	LookupURL string `yaml:"lookup_url,omitempty"`
	// Timeout bounds a single position lookup.
	Timeout time.Duration `yaml:"timeout"`
}

// Journal selects the alert journal backend of sos-server.
type Journal struct {
	// Driver is one of "file", "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	// DSN is a file path for "file" and "sqlite", a connection URL for "postgres".
	DSN string `yaml:"dsn"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "sos-button-settings.yaml"

	// DefaultJournalFilename is the default file journal of sos-server.
	DefaultJournalFilename = "sos-alerts.json"

	// DefaultHTTPAddress is the default REST listen address.
	DefaultHTTPAddress = ":8080"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultLocationTimeout bounds a position lookup.
	DefaultLocationTimeout = 8 * time.Second

	// DefaultLookupURL is the public IP geolocation endpoint.
	DefaultLookupURL = "http://ip-api.com/json/"

	// DefaultHoldTicks is the length of the countdown in ticks.
	DefaultHoldTicks = 3

	// DefaultHoldInterval is the length of one countdown tick.
	DefaultHoldInterval = time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Dispatcher kinds.
const (
	DispatcherGRPC = "grpc"
	DispatcherHTTP = "http"
)

// Location provider kinds.
const (
	LocationNone   = "none"
	LocationStatic = "static"
	LocationIP     = "ip"
)

// Journal drivers.
const (
	JournalFile     = "file"
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errBackendURLRequired is returned when the HTTP dispatcher has no target.
	errBackendURLRequired = errors.New("backend url must be provided for the http dispatcher")
	// errUnknownDispatcher is returned for an unsupported dispatcher kind.
	errUnknownDispatcher = errors.New("unknown dispatcher")
	// errUnknownLocationProvider is returned for an unsupported location provider.
	errUnknownLocationProvider = errors.New("unknown location provider")
	// errUnknownJournalDriver is returned for an unsupported journal driver.
	errUnknownJournalDriver = errors.New("unknown journal driver")
	// errBadHold is returned when the countdown is misconfigured.
	errBadHold = errors.New("hold ticks and interval must be positive")
)

// Load reads configuration from the provided path, applies environment
// overrides and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.Dispatcher == "" {
		settings.Dispatcher = DispatcherGRPC
	}

	if err := validateTransport(settings); err != nil {
		return err
	}

	if settings.HTTPAddress == "" {
		settings.HTTPAddress = DefaultHTTPAddress
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if err := validateHold(&settings.Hold); err != nil {
		return err
	}

	if err := validateLocation(&settings.Location); err != nil {
		return err
	}

	return validateJournal(&settings.Journal)
}

// validateTransport checks the addresses required by the selected dispatcher.
func validateTransport(settings *Config) error {
	switch settings.Dispatcher {
	case DispatcherGRPC:
		if settings.ServerAddress == "" {
			return errServerSocketRequired
		}
	case DispatcherHTTP:
		if settings.BackendURL == "" {
			return errBackendURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDispatcher, settings.Dispatcher)
	}

	if settings.ServerAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
			return fmt.Errorf("invalid server socket: %w", err)
		}
	}

	if settings.BackendURL != "" {
		if _, err := url.ParseRequestURI(settings.BackendURL); err != nil {
			return fmt.Errorf("invalid backend url: %w", err)
		}
	}

	return nil
}

// validateHold fills countdown defaults.
func validateHold(hold *Hold) error {
	if hold.Ticks == 0 {
		hold.Ticks = DefaultHoldTicks
	}

	if hold.Interval == 0 {
		hold.Interval = DefaultHoldInterval
	}

	if hold.Ticks < 0 || hold.Interval < 0 {
		return errBadHold
	}

	return nil
}

// validateLocation fills provider defaults and checks static coordinates.
func validateLocation(loc *Location) error {
	if loc.Provider == "" {
		loc.Provider = LocationNone
	}

	if loc.Timeout <= 0 {
		loc.Timeout = DefaultLocationTimeout
	}

	switch loc.Provider {
	case LocationNone:
		return nil
	case LocationStatic:
		c := domain.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("static location: %w", err)
		}

		return nil
	case LocationIP:
		if loc.LookupURL == "" {
			loc.LookupURL = DefaultLookupURL
		}

		if _, err := url.ParseRequestURI(loc.LookupURL); err != nil {
			return fmt.Errorf("invalid lookup url: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownLocationProvider, loc.Provider)
	}
}

// validateJournal fills journal defaults.
func validateJournal(j *Journal) error {
	if j.Driver == "" {
		j.Driver = JournalFile
	}

	if !slices.Contains([]string{JournalFile, JournalSQLite, JournalPostgres}, j.Driver) {
		return fmt.Errorf("%w: %q", errUnknownJournalDriver, j.Driver)
	}

	if j.DSN == "" && j.Driver != JournalPostgres {
		j.DSN = DefaultJournalFilename
		if j.Driver == JournalSQLite {
			j.DSN = "sos-alerts.db"
		}
	}

	return nil
}
