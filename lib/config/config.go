package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"gfx.cafe/gfx/sqlpool/lib/dbmanager"
	"gfx.cafe/gfx/sqlpool/lib/profile"
	"gfx.cafe/gfx/sqlpool/lib/provider"
	"gfx.cafe/gfx/sqlpool/lib/util/dur"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension, defaulting to yaml.
func FormatOf(path string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "toml":
		return FormatTOML
	case "json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

type Config struct {
	Name string `toml:"name" yaml:"name" json:"name"`

	Driver   string `toml:"driver" yaml:"driver" json:"driver"`
	URL      string `toml:"url" yaml:"url" json:"url"`
	Username string `toml:"username" yaml:"username" json:"username"`
	Password string `toml:"password" yaml:"password" json:"password"`

	MinConnections        int     `toml:"min_connections" yaml:"min_connections" json:"min_connections"`
	MaxConnections        int     `toml:"max_connections" yaml:"max_connections" json:"max_connections"`
	ConnectionTimeoutDays float64 `toml:"connection_timeout_days" yaml:"connection_timeout_days" json:"connection_timeout_days"`

	TrackCheckouts        bool         `toml:"track_checkouts" yaml:"track_checkouts" json:"track_checkouts"`
	CheckoutWarnThreshold dur.Duration `toml:"checkout_warn_threshold" yaml:"checkout_warn_threshold" json:"checkout_warn_threshold"`

	IdleTimeout          dur.Duration `toml:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
	HousekeepingInterval dur.Duration `toml:"housekeeping_interval" yaml:"housekeeping_interval" json:"housekeeping_interval"`
	AcquireTimeout       dur.Duration `toml:"acquire_timeout" yaml:"acquire_timeout" json:"acquire_timeout"`
	TestQuery            string       `toml:"test_query" yaml:"test_query" json:"test_query"`

	StartupAttempts int          `toml:"startup_attempts" yaml:"startup_attempts" json:"startup_attempts"`
	StartupBackoff  dur.Duration `toml:"startup_backoff" yaml:"startup_backoff" json:"startup_backoff"`

	MaxRetries int          `toml:"max_retries" yaml:"max_retries" json:"max_retries"`
	RetryDelay dur.Duration `toml:"retry_delay" yaml:"retry_delay" json:"retry_delay"`

	Profiling      bool    `toml:"profiling" yaml:"profiling" json:"profiling"`
	MetricsAddress string  `toml:"metrics_address" yaml:"metrics_address" json:"metrics_address"`
	Tracing        Tracing `toml:"tracing" yaml:"tracing" json:"tracing"`
}

type Tracing struct {
	ServiceName      string `toml:"service_name" yaml:"service_name" json:"service_name"`
	ServiceNamespace string `toml:"service_namespace" yaml:"service_namespace" json:"service_namespace"`
	Endpoint         string `toml:"endpoint" yaml:"endpoint" json:"endpoint"`
	SampleRate       string `toml:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
}

func Defaults() Config {
	return Config{
		Name:                  "sqlpool",
		MinConnections:        provider.DefaultMinConnections,
		MaxConnections:        provider.DefaultMaxConnections,
		ConnectionTimeoutDays: 0.5,
		IdleTimeout:           dur.Duration(time.Minute),
		HousekeepingInterval:  dur.Duration(30 * time.Second),
		StartupAttempts:       provider.DefaultStartupAttempts,
		StartupBackoff:        dur.Duration(provider.DefaultStartupBackoff),
		MaxRetries:            dbmanager.DefaultMaxRetries,
		RetryDelay:            dur.Duration(dbmanager.DefaultRetryDelay),
		Tracing: Tracing{
			ServiceName:      "sqlpool",
			ServiceNamespace: "gfx.cafe/gfx",
		},
	}
}

// Parse decodes data over Defaults.
func Parse(data []byte, format Format) (Config, error) {
	c := Defaults()

	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &c)
	case FormatJSON:
		err = json.Unmarshal(data, &c)
	default:
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s config: %w", format, err)
	}
	return c, nil
}

// Load reads a config file, resolves ENV$NAME values and applies SQLPOOL_* environment overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	c, err := Parse(data, FormatOf(path))
	if err != nil {
		return Config{}, err
	}

	c.ApplyEnv(LoadEnv())
	c.expandEnv()

	if err = c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func expandEnv(v string) string {
	if strings.HasPrefix(v, "ENV$") {
		return os.Getenv(strings.TrimPrefix(v, "ENV$"))
	}
	return v
}

func (T *Config) expandEnv() {
	T.URL = expandEnv(T.URL)
	T.Username = expandEnv(T.Username)
	T.Password = expandEnv(T.Password)
}

func (T *Config) Validate() error {
	if T.ConnectionTimeoutDays < 0 {
		return fmt.Errorf("%w: connection_timeout_days must not be negative", provider.ErrConfig)
	}
	return T.Provider(nil).Validate()
}

// ConnectionTimeout converts the lifetime in days.
func (T *Config) ConnectionTimeout() time.Duration {
	return time.Duration(T.ConnectionTimeoutDays * float64(24*time.Hour))
}

// ProbeQuery is TestQuery, or the cheapest statement for the driver.
func (T *Config) ProbeQuery() string {
	if T.TestQuery != "" {
		return T.TestQuery
	}
	return dbmanager.TestSQL(T.Driver)
}

func (T *Config) Provider(logger *zap.Logger) provider.Config {
	return provider.Config{
		Name:                  T.Name,
		Driver:                T.Driver,
		URL:                   T.URL,
		Username:              T.Username,
		Password:              T.Password,
		MinConnections:        T.MinConnections,
		MaxConnections:        T.MaxConnections,
		ConnectionTimeout:     T.ConnectionTimeout(),
		IdleTimeout:           T.IdleTimeout.Duration(),
		HousekeepingInterval:  T.HousekeepingInterval.Duration(),
		AcquireTimeout:        T.AcquireTimeout.Duration(),
		TrackCheckouts:        T.TrackCheckouts,
		CheckoutWarnThreshold: T.CheckoutWarnThreshold.Duration(),
		TestQuery:             T.ProbeQuery(),
		StartupAttempts:       T.StartupAttempts,
		StartupBackoff:        T.StartupBackoff.Duration(),
		Logger:                logger,
	}
}

func (T *Config) Manager(logger *zap.Logger, profiler *profile.Profiler) dbmanager.Config {
	return dbmanager.Config{
		MaxRetries: T.MaxRetries,
		RetryDelay: T.RetryDelay.Duration(),
		Profiling:  T.Profiling,
		Profiler:   profiler,
		Logger:     logger,
	}
}
