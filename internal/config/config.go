package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override the file
const EnvPrefix = "GEOMAP"

// Config represents the application configuration
type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Extract  ExtractConfig `mapstructure:"extract"`
	Geocode  GeocodeConfig `mapstructure:"geocode"`
	Locate   LocateConfig  `mapstructure:"locate"`
	Render   RenderConfig  `mapstructure:"render"`
	S3       S3Config      `mapstructure:"s3"`
	Server   ServerConfig  `mapstructure:"server"`
}

// ExtractConfig controls image metadata extraction
type ExtractConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	PreviewSize int  `mapstructure:"preview_size"`
	Reverse     bool `mapstructure:"reverse"`
}

// GeocodeConfig controls the Nominatim client and its response cache
type GeocodeConfig struct {
	Server      string        `mapstructure:"server"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	CachePath   string        `mapstructure:"cache_path"`
	CacheDSN    string        `mapstructure:"cache_dsn"`
}

// LocateConfig controls user location detection
type LocateConfig struct {
	GeoClue bool          `mapstructure:"geoclue"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RenderConfig holds map rendering defaults
type RenderConfig struct {
	OutputDir   string  `mapstructure:"output_dir"`
	TilesDir    string  `mapstructure:"tiles_dir"`
	SpeedKmh    float64 `mapstructure:"speed_kmh"`
	Cluster     bool    `mapstructure:"cluster"`
	Heatmap     bool    `mapstructure:"heatmap"`
	Measure     bool    `mapstructure:"measure"`
	Fullscreen  bool    `mapstructure:"fullscreen"`
	OpenBrowser bool    `mapstructure:"open_browser"`
}

// S3Config represents S3 connection configuration. An empty bucket keeps
// rendered maps on local disk.
type S3Config struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Region    string        `mapstructure:"region"`
	Bucket    string        `mapstructure:"bucket"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	UseSSL    bool          `mapstructure:"use_ssl"`
	Prefix    string        `mapstructure:"prefix"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

// Enabled reports whether maps should be published to object storage
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// ServerConfig configures the web UI
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// New creates a new configuration with default values
func New() *Config {
	return &Config{
		LogLevel: "info",
		Extract: ExtractConfig{
			Concurrency: 4,
			PreviewSize: 200,
		},
		Geocode: GeocodeConfig{
			Server:      "https://nominatim.openstreetmap.org",
			MinInterval: time.Second,
			Timeout:     10 * time.Second,
			Retries:     3,
			CachePath:   "geomap-cache.db",
		},
		Locate: LocateConfig{
			Timeout: 5 * time.Second,
		},
		Render: RenderConfig{
			OutputDir:  ".",
			TilesDir:   "tiles",
			SpeedKmh:   60,
			Cluster:    true,
			Measure:    true,
			Fullscreen: true,
		},
		S3: S3Config{
			Region:    "us-east-1",
			UseSSL:    true,
			Prefix:    "maps",
			URLExpiry: 7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:5000",
			MaxUploadMB: 64,
		},
	}
}

// Load builds a configuration from the defaults, an optional config file
// and GEOMAP_* environment variables, in increasing precedence. Flags bound
// to v before calling Load take precedence over all three.
func Load(v *viper.Viper, path string) (*Config, error) {
	cfg := New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetDefault("extract.concurrency", cfg.Extract.Concurrency)
	v.SetDefault("extract.preview_size", cfg.Extract.PreviewSize)
	v.SetDefault("extract.reverse", cfg.Extract.Reverse)

	v.SetDefault("geocode.server", cfg.Geocode.Server)
	v.SetDefault("geocode.min_interval", cfg.Geocode.MinInterval)
	v.SetDefault("geocode.timeout", cfg.Geocode.Timeout)
	v.SetDefault("geocode.retries", cfg.Geocode.Retries)
	v.SetDefault("geocode.cache_path", cfg.Geocode.CachePath)
	v.SetDefault("geocode.cache_dsn", cfg.Geocode.CacheDSN)

	v.SetDefault("locate.geoclue", cfg.Locate.GeoClue)
	v.SetDefault("locate.timeout", cfg.Locate.Timeout)

	v.SetDefault("render.output_dir", cfg.Render.OutputDir)
	v.SetDefault("render.tiles_dir", cfg.Render.TilesDir)
	v.SetDefault("render.speed_kmh", cfg.Render.SpeedKmh)
	v.SetDefault("render.cluster", cfg.Render.Cluster)
	v.SetDefault("render.heatmap", cfg.Render.Heatmap)
	v.SetDefault("render.measure", cfg.Render.Measure)
	v.SetDefault("render.fullscreen", cfg.Render.Fullscreen)
	v.SetDefault("render.open_browser", cfg.Render.OpenBrowser)

	v.SetDefault("s3.endpoint", cfg.S3.Endpoint)
	v.SetDefault("s3.region", cfg.S3.Region)
	v.SetDefault("s3.bucket", cfg.S3.Bucket)
	v.SetDefault("s3.access_key", cfg.S3.AccessKey)
	v.SetDefault("s3.secret_key", cfg.S3.SecretKey)
	v.SetDefault("s3.use_ssl", cfg.S3.UseSSL)
	v.SetDefault("s3.prefix", cfg.S3.Prefix)
	v.SetDefault("s3.url_expiry", cfg.S3.URLExpiry)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.max_upload_mb", cfg.Server.MaxUploadMB)
}

// Validate checks the configuration for values the commands cannot work with
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.Extract.Concurrency < 1 {
		return errors.New("extract concurrency must be at least 1")
	}
	if c.Extract.PreviewSize < 0 {
		return errors.New("preview size cannot be negative")
	}
	if c.Geocode.Server != "" {
		if _, err := url.ParseRequestURI(c.Geocode.Server); err != nil {
			return fmt.Errorf("invalid geocode server: %w", err)
		}
	}
	if c.S3.Enabled() {
		if err := ValidateS3BucketName(c.S3.Bucket); err != nil {
			return fmt.Errorf("invalid S3 bucket: %w", err)
		}
		if c.S3.Endpoint == "" {
			return errors.New("S3 endpoint is required when a bucket is set")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return errors.New("S3 access key and secret key are required when a bucket is set")
		}
	}
	return nil
}

// ValidateS3BucketName checks if the provided S3 bucket name is valid according to AWS naming conventions.
func ValidateS3BucketName(bucketName string) error {
	if len(bucketName) < 3 || len(bucketName) > 63 {
		return errors.New("bucket name must be between 3 and 63 characters")
	}
	if strings.Contains(bucketName, " ") {
		return errors.New("bucket name cannot contain spaces")
	}
	if !isDNSCompatible(bucketName) {
		return errors.New("bucket name must be DNS compliant")
	}
	return nil
}

// isDNSCompatible checks if the bucket name is DNS compliant.
func isDNSCompatible(name string) bool {
	// Bucket names must be lowercase and can contain only letters, numbers, and hyphens.
	for _, char := range name {
		if !(char >= 'a' && char <= 'z') && !(char >= '0' && char <= '9') && char != '-' {
			return false
		}
	}
	return true
}
