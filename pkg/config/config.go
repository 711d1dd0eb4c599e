package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// Config represents the complete configuration for the dashboard.
type Config struct {
	Server  ServerConfig  `koanf:"server"  validate:"required"`
	Storage StorageConfig `koanf:"storage" validate:"required"`
	Upload  UploadConfig  `koanf:"upload"  validate:"required"`
	Map     MapConfig     `koanf:"map"     validate:"required"`
	Runtime RuntimeConfig `koanf:"runtime" validate:"required"`

	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"             validate:"required"        env:"SERVER_HOST"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535" env:"SERVER_PORT"`
	CORSEnabled     bool          `koanf:"cors_enabled"                                env:"SERVER_CORS_ENABLED"`
	ReadTimeout     time.Duration `koanf:"read_timeout"                                env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `koanf:"write_timeout"                               env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"                            env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// FullAddress returns host:port for the HTTP listener.
func (s ServerConfig) FullAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig describes where the catalog and study directories live.
type StorageConfig struct {
	DataDir        string        `koanf:"data_dir"         validate:"required" env:"STORAGE_DATA_DIR"`
	CatalogName    string        `koanf:"catalog_name"     validate:"required" env:"STORAGE_CATALOG_NAME"`
	BusyTimeout    time.Duration `koanf:"busy_timeout"                         env:"STORAGE_BUSY_TIMEOUT"`
	StudyCacheSize int           `koanf:"study_cache_size" validate:"min=1"    env:"STORAGE_STUDY_CACHE_SIZE"`
}

// CatalogPath is the location of the studies catalog database.
func (s StorageConfig) CatalogPath() string {
	return filepath.Join(s.DataDir, s.CatalogName)
}

// UploadConfig bounds uploaded geographic files.
type UploadConfig struct {
	MaxBytes int64 `koanf:"max_bytes" validate:"min=1" env:"UPLOAD_MAX_BYTES"`
}

// MapConfig configures the Leaflet maps rendered in pages.
type MapConfig struct {
	TilesURL         string  `koanf:"tiles_url"          validate:"required,tiles_url" env:"MAP_TILES_URL"`
	Attribution      string  `koanf:"attribution"                                      env:"MAP_ATTRIBUTION"`
	LeafletVersion   string  `koanf:"leaflet_version"    validate:"required"           env:"MAP_LEAFLET_VERSION"`
	DefaultCenterLat float64 `koanf:"default_center_lat" validate:"min=-90,max=90"     env:"MAP_DEFAULT_CENTER_LAT"`
	DefaultCenterLon float64 `koanf:"default_center_lon" validate:"min=-180,max=180"   env:"MAP_DEFAULT_CENTER_LON"`
	DefaultZoom      int     `koanf:"default_zoom"       validate:"min=0,max=19"       env:"MAP_DEFAULT_ZOOM"`
}

// MonitoringConfig controls the Prometheus endpoint.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled"                                env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    validate:"required,startswith=/" env:"MONITORING_PATH"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"          env:"RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                    env:"RUNTIME_LOG_JSON"`
	LogFile     string `koanf:"log_file"                                                    env:"RUNTIME_LOG_FILE"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config with default values for development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			CORSEnabled:     false,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:        "data",
			CatalogName:    "studies.db",
			BusyTimeout:    5 * time.Second,
			StudyCacheSize: 16,
		},
		Upload: UploadConfig{
			MaxBytes: 200 << 20,
		},
		Map: MapConfig{
			TilesURL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution:      "&copy; OpenStreetMap contributors",
			LeafletVersion:   "1.9.4",
			DefaultCenterLat: 46.6,
			DefaultCenterLon: 2.4,
			DefaultZoom:      5,
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
