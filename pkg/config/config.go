// Package config loads trikefare settings from defaults, an optional YAML
// file and TRIKEFARE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/NERVsystems/trikefare/pkg/fare"
	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/locate"
	"github.com/NERVsystems/trikefare/pkg/osm"
	"github.com/NERVsystems/trikefare/pkg/wizard"
)

// EnvPrefix prefixes every environment override, e.g. TRIKEFARE_FARE_BASE.
const EnvPrefix = "TRIKEFARE"

// Config holds all application configuration.
type Config struct {
	City      string          `mapstructure:"city"`
	Region    RegionConfig    `mapstructure:"region"`
	Map       MapConfig       `mapstructure:"map"`
	Fare      FareConfig      `mapstructure:"fare"`
	Nominatim NominatimConfig `mapstructure:"nominatim"`
	Locate    LocateConfig    `mapstructure:"locate"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// RegionConfig is the service area every point must fall inside
type RegionConfig struct {
	MinLat float64 `mapstructure:"min_lat"`
	MinLon float64 `mapstructure:"min_lon"`
	MaxLat float64 `mapstructure:"max_lat"`
	MaxLon float64 `mapstructure:"max_lon"`
}

// Box returns the region as a bounding box
func (r RegionConfig) Box() geo.BoundingBox {
	return geo.BoxFromCorners(
		geo.Point{Latitude: r.MinLat, Longitude: r.MinLon},
		geo.Point{Latitude: r.MaxLat, Longitude: r.MaxLon},
	)
}

type MapConfig struct {
	CenterLat   float64 `mapstructure:"center_lat"`
	CenterLon   float64 `mapstructure:"center_lon"`
	Zoom        int     `mapstructure:"zoom"`
	FocusZoom   int     `mapstructure:"focus_zoom"`
	TileURL     string  `mapstructure:"tile_url"`
	Attribution string  `mapstructure:"attribution"`
}

// FareConfig holds fare amounts in major units (pesos).
type FareConfig struct {
	Currency       string  `mapstructure:"currency"`
	Base           float64 `mapstructure:"base"`
	IncludedKm     float64 `mapstructure:"included_km"`
	PerKm          float64 `mapstructure:"per_km"`
	GroupSize      int     `mapstructure:"group_size"`
	GroupSurcharge float64 `mapstructure:"group_surcharge"`
	MaxPassengers  int     `mapstructure:"max_passengers"`
}

type NominatimConfig struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// RateLimit is requests per second; 0 disables throttling.
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	// CountryCodes limits text search, e.g. "ph". Empty searches everywhere.
	CountryCodes string `mapstructure:"country_codes"`
}

// LocateConfig selects how "use my location" is answered: fixed, ip or none.
type LocateConfig struct {
	Mode  string  `mapstructure:"mode"`
	Lat   float64 `mapstructure:"lat"`
	Lon   float64 `mapstructure:"lon"`
	IPURL string  `mapstructure:"ip_url"`
}

type SessionsConfig struct {
	Max     int           `mapstructure:"max"`
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it.
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	def := wizard.DefaultConfig()
	rules := fare.DefaultRules

	v.SetDefault("city", def.City)
	v.SetDefault("region.min_lat", def.Region.MinLat)
	v.SetDefault("region.min_lon", def.Region.MinLon)
	v.SetDefault("region.max_lat", def.Region.MaxLat)
	v.SetDefault("region.max_lon", def.Region.MaxLon)

	v.SetDefault("map.center_lat", def.Center.Latitude)
	v.SetDefault("map.center_lon", def.Center.Longitude)
	v.SetDefault("map.zoom", def.Zoom)
	v.SetDefault("map.focus_zoom", def.FocusZoom)
	v.SetDefault("map.tile_url", def.TileURL)
	v.SetDefault("map.attribution", def.Attribution)

	v.SetDefault("fare.currency", rules.Currency)
	v.SetDefault("fare.base", major(rules.BaseFare))
	v.SetDefault("fare.included_km", rules.IncludedKm)
	v.SetDefault("fare.per_km", major(rules.PerKm))
	v.SetDefault("fare.group_size", rules.GroupSize)
	v.SetDefault("fare.group_surcharge", major(rules.GroupSurcharge))
	v.SetDefault("fare.max_passengers", rules.MaxPassengers)

	v.SetDefault("nominatim.url", osm.NominatimBaseURL)
	v.SetDefault("nominatim.user_agent", osm.DefaultUserAgent)
	v.SetDefault("nominatim.timeout", osm.DefaultTimeout)
	v.SetDefault("nominatim.rate_limit", 1.0)
	v.SetDefault("nominatim.burst", 1)
	v.SetDefault("nominatim.cache_size", 0)
	v.SetDefault("nominatim.cache_ttl", 24*time.Hour)
	v.SetDefault("nominatim.country_codes", "ph")

	v.SetDefault("locate.mode", "none")
	v.SetDefault("locate.lat", def.Center.Latitude)
	v.SetDefault("locate.lon", def.Center.Longitude)
	v.SetDefault("locate.ip_url", locate.DefaultIPAPIURL)

	v.SetDefault("sessions.max", 1000)
	v.SetDefault("sessions.idle_ttl", 2*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.addr", "")
}

// Load reads configuration. An empty path searches for config.yaml in the
// working directory and ./configs and tolerates its absence; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// Environment variables: TRIKEFARE_FARE_BASE → fare.base
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration Load produces with no file or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are all plain values; decoding them cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.City) == "" {
		errs = append(errs, "city is required")
	}
	if err := c.Wizard().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if u, err := url.Parse(c.Nominatim.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("nominatim.url must be an absolute URL, got %q", c.Nominatim.URL))
	}
	if strings.TrimSpace(c.Nominatim.UserAgent) == "" {
		errs = append(errs, "nominatim.user_agent is required")
	}
	if c.Nominatim.Timeout <= 0 {
		errs = append(errs, "nominatim.timeout must be positive")
	}
	if c.Nominatim.RateLimit < 0 {
		errs = append(errs, "nominatim.rate_limit must not be negative")
	}
	if c.Nominatim.CacheSize < 0 {
		errs = append(errs, "nominatim.cache_size must not be negative")
	}

	switch strings.ToLower(c.Locate.Mode) {
	case "", "none", "ip":
	case "fixed":
		if !c.Region.Box().Contains(c.LocatePoint()) {
			errs = append(errs, fmt.Sprintf("locate point %s is outside the region", c.LocatePoint()))
		}
	default:
		errs = append(errs, fmt.Sprintf("locate.mode must be fixed, ip or none, got %q", c.Locate.Mode))
	}

	if c.Sessions.Max <= 0 {
		errs = append(errs, fmt.Sprintf("sessions.max must be positive, got %d", c.Sessions.Max))
	}
	if c.Sessions.IdleTTL <= 0 {
		errs = append(errs, "sessions.idle_ttl must be positive")
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err.Error())
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// FareRules converts the fare section to minor units
func (c *Config) FareRules() fare.Rules {
	return fare.Rules{
		Currency:       c.Fare.Currency,
		BaseFare:       minor(c.Fare.Base),
		IncludedKm:     c.Fare.IncludedKm,
		PerKm:          minor(c.Fare.PerKm),
		GroupSize:      c.Fare.GroupSize,
		GroupSurcharge: minor(c.Fare.GroupSurcharge),
		MaxPassengers:  c.Fare.MaxPassengers,
	}
}

// Wizard builds the wizard configuration
func (c *Config) Wizard() wizard.Config {
	return wizard.Config{
		City:        c.City,
		Region:      c.Region.Box(),
		Center:      geo.Point{Latitude: c.Map.CenterLat, Longitude: c.Map.CenterLon},
		Zoom:        c.Map.Zoom,
		FocusZoom:   c.Map.FocusZoom,
		TileURL:     c.Map.TileURL,
		Attribution: c.Map.Attribution,
		Rules:       c.FareRules(),
	}
}

// LocatePoint is the position reported in fixed locate mode
func (c *Config) LocatePoint() geo.Point {
	return geo.Point{Latitude: c.Locate.Lat, Longitude: c.Locate.Lon}
}

// LogLevel parses log.level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func minor(v float64) int64 {
	return int64(math.Round(v * 100))
}

func major(v int64) float64 {
	return float64(v) / 100
}
