// Package config loads the service configuration. Every setting is taken
// from the first source that has it: the config file, then the environment,
// then a built-in default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingPassword = errors.New("database password is not configured (db.password / DB_PASSWORD)")
	ErrMissingAPIKey   = errors.New("weather api key is not configured (weather.apiKey / WEATHER_API_KEY)")
)

const (
	DefaultDBKind         = "postgres"
	DefaultDBURL          = "postgres://localhost:5494/weather"
	DefaultDBUser         = "weather"
	DefaultPort           = "9015"
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultRefreshTimeout = 60 * time.Minute
	DefaultFetchInterval  = 15 * time.Minute
)

type Config struct {
	DB        DBConfig
	Weather   WeatherConfig
	Server    ServerConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Scheduler SchedulerConfig
}

type DBConfig struct {
	Kind     string
	URL      string
	User     string
	Password string
	MaxConns int
}

type WeatherConfig struct {
	APIKey         string
	BaseURL        string
	CountryURL     string
	HTTPTimeout    time.Duration
	RefreshTimeout time.Duration
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

type MetricsConfig struct {
	Enabled bool
}

type SchedulerConfig struct {
	FetchInterval time.Duration
	// Locations kept warm, <city[,countryISO2]> each.
	Locations []string
}

// Addr returns the listen address in the format ":port".
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// Source yields a raw value when it has one.
type Source func() (string, bool)

// File reads key from the loaded config file.
func File(v *viper.Viper, key string) Source {
	return func() (string, bool) {
		if v == nil || !v.IsSet(key) {
			return "", false
		}
		s := strings.TrimSpace(v.GetString(key))
		return s, s != ""
	}
}

// Env reads a non-empty environment variable.
func Env(name string) Source {
	return func() (string, bool) {
		s, ok := os.LookupEnv(name)
		s = strings.TrimSpace(s)
		return s, ok && s != ""
	}
}

func Default(value string) Source {
	return func() (string, bool) { return value, true }
}

// Resolve returns the value of the first source that has one.
func Resolve(sources ...Source) (string, bool) {
	for _, src := range sources {
		if v, ok := src(); ok {
			return v, true
		}
	}
	return "", false
}

// Load reads .env, the optional config file (CONFIG_FILE or ./config.yaml)
// and the environment.
func Load() (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v, err := readFile()
	if err != nil {
		return nil, err
	}
	return build(v)
}

func readFile() (*viper.Viper, error) {
	v := viper.New()
	if path, ok := Env("CONFIG_FILE")(); ok {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

func build(v *viper.Viper) (*Config, error) {
	str := func(key, env, def string) string {
		s, _ := Resolve(File(v, key), Env(env), Default(def))
		return s
	}

	cfg := &Config{}
	var err error

	cfg.DB.Kind = strings.ToLower(str("db.kind", "DB_KIND", DefaultDBKind))
	cfg.DB.URL = str("db.url", "DB_URL", DefaultDBURL)
	cfg.DB.User = str("db.user", "DB_USER", DefaultDBUser)
	cfg.DB.Password, _ = Resolve(File(v, "db.password"), Env("DB_PASSWORD"))
	if cfg.DB.Kind == DefaultDBKind && cfg.DB.Password == "" {
		return nil, ErrMissingPassword
	}
	if cfg.DB.MaxConns, err = strconv.Atoi(str("db.maxConns", "DB_MAX_CONNS", "3")); err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	cfg.Weather.APIKey, _ = Resolve(File(v, "weather.apiKey"), Env("WEATHER_API_KEY"))
	if cfg.Weather.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg.Weather.BaseURL = str("weather.baseUrl", "WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5")
	cfg.Weather.CountryURL = str("weather.countryUrl", "COUNTRY_BASE_URL", "https://api.country.is")
	if cfg.Weather.HTTPTimeout, err = duration(str("weather.httpTimeout", "HTTP_TIMEOUT", DefaultHTTPTimeout.String())); err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if cfg.Weather.RefreshTimeout, err = duration(str("weather.refreshTimeout", "REFRESH_TIMEOUT", DefaultRefreshTimeout.String())); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TIMEOUT: %w", err)
	}

	cfg.Server.Port = str("server.port", "PORT", DefaultPort)
	cfg.Log.Level = str("log.level", "LOG_LEVEL", "info")
	cfg.Log.Format = str("log.format", "LOG_FORMAT", "json")

	if cfg.Metrics.Enabled, err = strconv.ParseBool(str("metrics.enabled", "METRICS_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}

	if cfg.Scheduler.FetchInterval, err = duration(str("scheduler.fetchInterval", "FETCH_INTERVAL", DefaultFetchInterval.String())); err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.Scheduler.Locations = locations(v)

	return cfg, nil
}

func duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// locations comes from a YAML list or WARM_LOCATIONS separated by ';'
// since a location itself contains a comma.
func locations(v *viper.Viper) []string {
	var raw []string
	if v != nil && v.IsSet("scheduler.locations") {
		raw = v.GetStringSlice("scheduler.locations")
	} else if s, ok := Env("WARM_LOCATIONS")(); ok {
		raw = strings.Split(s, ";")
	}

	var out []string
	for _, loc := range raw {
		if loc = strings.TrimSpace(loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}
