package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Recognition RecognitionConfig `yaml:"recognition"`
	MediaMTX    MediaMTXConfig    `yaml:"mediamtx"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type RecognitionConfig struct {
	ModelsDir           string        `yaml:"models_dir"`
	GalleryPath         string        `yaml:"gallery_path"`
	LogsDir             string        `yaml:"logs_dir"`
	SnapshotsDir        string        `yaml:"snapshots_dir"`
	DetectionConfidence float64       `yaml:"detection_confidence"`
	RecognitionThresh   float64       `yaml:"recognition_threshold"`
	DefaultIntervalMs   int           `yaml:"default_interval_ms"`
	CaptureTimeout      time.Duration `yaml:"capture_timeout"`
}

type MediaMTXConfig struct {
	ConfigPath  string `yaml:"config_path"`
	WHEPBaseURL string `yaml:"whep_base_url"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether snapshot mirroring to MinIO is configured.
func (m MinIOConfig) Enabled() bool { return m.Endpoint != "" }

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

// Enabled reports whether the Postgres detection archive is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// Default returns a config with all defaults applied and no file read.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Recognition.ModelsDir == "" {
		cfg.Recognition.ModelsDir = "models"
	}
	if cfg.Recognition.GalleryPath == "" {
		cfg.Recognition.GalleryPath = "data/known_faces.json"
	}
	if cfg.Recognition.LogsDir == "" {
		cfg.Recognition.LogsDir = "data/logs"
	}
	if cfg.Recognition.SnapshotsDir == "" {
		cfg.Recognition.SnapshotsDir = "data/snapshots"
	}
	if cfg.Recognition.DetectionConfidence == 0 {
		cfg.Recognition.DetectionConfidence = 0.5
	}
	if cfg.Recognition.RecognitionThresh == 0 {
		cfg.Recognition.RecognitionThresh = 0.7
	}
	if cfg.Recognition.DefaultIntervalMs == 0 {
		cfg.Recognition.DefaultIntervalMs = 5000
	}
	if cfg.Recognition.CaptureTimeout == 0 {
		cfg.Recognition.CaptureTimeout = 5 * time.Second
	}
	if cfg.MediaMTX.ConfigPath == "" {
		cfg.MediaMTX.ConfigPath = "media-server/mediamtx.yml"
	}
	if cfg.MediaMTX.WHEPBaseURL == "" {
		cfg.MediaMTX.WHEPBaseURL = "http://localhost:8889"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FW_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FW_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FW_MODELS_DIR"); v != "" {
		cfg.Recognition.ModelsDir = v
	}
	if v := os.Getenv("FW_GALLERY_PATH"); v != "" {
		cfg.Recognition.GalleryPath = v
	}
	if v := os.Getenv("FW_LOGS_DIR"); v != "" {
		cfg.Recognition.LogsDir = v
	}
	if v := os.Getenv("FW_SNAPSHOTS_DIR"); v != "" {
		cfg.Recognition.SnapshotsDir = v
	}
	if v := os.Getenv("FW_MEDIAMTX_CONFIG"); v != "" {
		cfg.MediaMTX.ConfigPath = v
	}
	if v := os.Getenv("FW_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FW_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FW_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FW_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FW_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FW_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FW_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FW_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FW_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FW_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
