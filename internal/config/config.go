// Package config loads and validates shelter-mirror configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/shelter-mirror/internal/logging"
	"github.com/JakeFAU/shelter-mirror/internal/mirror"
	"github.com/JakeFAU/shelter-mirror/internal/storage/s3"
)

// Driver names accepted by store.driver, assets.driver and publisher.driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverLocal    = "local"
	DriverGCS      = "gcs"
	DriverS3       = "s3"
	DriverPubSub   = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   logging.Config  `mapstructure:"logging"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Store     StoreConfig     `mapstructure:"store"`
	DB        DBConfig        `mapstructure:"db"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Render    RenderConfig    `mapstructure:"render"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig guards the write endpoints (sync, settings).
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// RemoteConfig points at the listing API.
type RemoteConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Sign      bool          `mapstructure:"sign"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SettingsConfig seeds empty credentials on startup.
type SettingsConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	ShelterID string `mapstructure:"shelter_id"`
}

// Credentials converts the seed values.
func (s SettingsConfig) Credentials() mirror.Credentials {
	return mirror.Credentials{APIKey: s.APIKey, APISecret: s.APISecret, ShelterID: s.ShelterID}
}

// SyncConfig governs reconciliation and its schedule. Interval 0 disables the schedule.
type SyncConfig struct {
	MaxCount      int           `mapstructure:"max_count"`
	RemovalStatus string        `mapstructure:"removal_status"`
	Interval      time.Duration `mapstructure:"interval"`
	QueueDepth    int           `mapstructure:"queue_depth"`
	Topic         string        `mapstructure:"topic"`
}

// StoreConfig selects the record and settings store.
type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	Table         string `mapstructure:"table"`
	SettingsTable string `mapstructure:"settings_table"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// AssetsConfig controls image downloads and where they are kept.
type AssetsConfig struct {
	Driver       string        `mapstructure:"driver"`
	Prefix       string        `mapstructure:"prefix"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
	RPS          float64       `mapstructure:"rps"`
	Burst        int           `mapstructure:"burst"`
	LocalDir     string        `mapstructure:"local_dir"`
	GCSBucket    string        `mapstructure:"gcs_bucket"`
	CacheControl string        `mapstructure:"cache_control"`
	S3           s3.Config     `mapstructure:"s3"`
	// BaseURL is prefixed to asset handles when rendering.
	BaseURL string `mapstructure:"base_url"`
}

// PublisherConfig selects where sync summaries go.
type PublisherConfig struct {
	Driver    string `mapstructure:"driver"`
	ProjectID string `mapstructure:"project_id"`
}

// RenderConfig holds presentation links.
type RenderConfig struct {
	DetailURLBase string `mapstructure:"detail_url_base"`
	AdoptURL      string `mapstructure:"adopt_url"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHELTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("remote.base_url", "http://api.petfinder.com")
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.sign", true)
	v.SetDefault("remote.user_agent", "shelter-mirror/0.1")
	// registered so env overrides bind during Unmarshal
	v.SetDefault("settings.api_key", "")
	v.SetDefault("settings.api_secret", "")
	v.SetDefault("settings.shelter_id", "")
	v.SetDefault("sync.max_count", 400)
	v.SetDefault("sync.removal_status", mirror.StatusRemoved)
	v.SetDefault("sync.interval", time.Duration(0))
	v.SetDefault("sync.queue_depth", 8)
	v.SetDefault("sync.topic", "")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.table", "shelter_pets")
	v.SetDefault("store.settings_table", "shelter_settings")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", time.Hour)
	v.SetDefault("assets.driver", DriverMemory)
	v.SetDefault("assets.prefix", "pets")
	v.SetDefault("assets.timeout", 20*time.Second)
	v.SetDefault("assets.max_body_bytes", 10<<20)
	v.SetDefault("assets.rps", 2.0)
	v.SetDefault("assets.burst", 2)
	v.SetDefault("assets.local_dir", "assets")
	v.SetDefault("assets.gcs_bucket", "")
	v.SetDefault("assets.cache_control", "public, max-age=86400")
	v.SetDefault("assets.s3.bucket", "")
	v.SetDefault("assets.s3.region", "us-east-1")
	v.SetDefault("assets.s3.endpoint", "")
	v.SetDefault("assets.s3.access_key_id", "")
	v.SetDefault("assets.s3.secret_access_key", "")
	v.SetDefault("assets.s3.path_style", false)
	v.SetDefault("assets.base_url", "/assets")
	v.SetDefault("publisher.driver", DriverMemory)
	v.SetDefault("publisher.project_id", "")
	v.SetDefault("render.detail_url_base", "http://petfinder.com/petdetail")
	v.SetDefault("render.adopt_url", "/adopt/adoption-process/")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be > 0")
	}
	if c.Sync.MaxCount <= 0 {
		return fmt.Errorf("sync.max_count must be > 0")
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must be >= 0")
	}
	if c.Sync.QueueDepth <= 0 {
		return fmt.Errorf("sync.queue_depth must be > 0")
	}
	if strings.TrimSpace(c.Sync.RemovalStatus) == "" {
		return fmt.Errorf("sync.removal_status must be set")
	}
	if c.Assets.Timeout <= 0 {
		return fmt.Errorf("assets.timeout must be > 0")
	}
	if c.Assets.RPS <= 0 {
		return fmt.Errorf("assets.rps must be > 0")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when store.driver is postgres")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Assets.Driver {
	case DriverMemory:
	case DriverLocal:
		if c.Assets.LocalDir == "" {
			return fmt.Errorf("assets.local_dir must be set when assets.driver is local")
		}
	case DriverGCS:
		if c.Assets.GCSBucket == "" {
			return fmt.Errorf("assets.gcs_bucket must be set when assets.driver is gcs")
		}
	case DriverS3:
		if c.Assets.S3.Bucket == "" {
			return fmt.Errorf("assets.s3.bucket must be set when assets.driver is s3")
		}
	default:
		return fmt.Errorf("unknown assets.driver %q", c.Assets.Driver)
	}

	switch c.Publisher.Driver {
	case DriverMemory:
	case DriverPubSub:
		if c.Publisher.ProjectID == "" {
			return fmt.Errorf("publisher.project_id must be set when publisher.driver is pubsub")
		}
	default:
		return fmt.Errorf("unknown publisher.driver %q", c.Publisher.Driver)
	}
	return nil
}
