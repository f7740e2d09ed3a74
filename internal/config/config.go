package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
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

// VisionConfig tunes the detection side of the pipeline. The confidence
// threshold and smoothing window started life as hard-coded constants;
// they are configuration now so deployments can calibrate them against
// their own cameras and lighting.
type VisionConfig struct {
	ModelPath           string  `yaml:"model_path"`
	LabelsPath          string  `yaml:"labels_path"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	SmoothingWindow     int     `yaml:"smoothing_window"`
	WorkerCount         int     `yaml:"worker_count"`
	DefaultFPS          int     `yaml:"default_fps"`
	MaxFPS              int     `yaml:"max_fps"`
	FrameWidth          int     `yaml:"frame_width"`
}

type StorageConfig struct {
	// FrameRetention is how many recent frames to keep per session in MinIO.
	// 0 disables cleanup.
	FrameRetention int `yaml:"frame_retention"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from a YAML file and applies environment variable overrides.
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

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.ModelPath == "" {
		cfg.Vision.ModelPath = "models/ssd_mobilenet_v2.onnx"
	}
	if cfg.Vision.LabelsPath == "" {
		cfg.Vision.LabelsPath = "models/coco_labels.txt"
	}
	if cfg.Vision.ConfidenceThreshold == 0 {
		cfg.Vision.ConfidenceThreshold = 0.7
	}
	if cfg.Vision.SmoothingWindow == 0 {
		cfg.Vision.SmoothingWindow = 20
	}
	if cfg.Vision.WorkerCount == 0 {
		cfg.Vision.WorkerCount = 4
	}
	if cfg.Vision.DefaultFPS == 0 {
		cfg.Vision.DefaultFPS = 5
	}
	if cfg.Vision.MaxFPS == 0 {
		cfg.Vision.MaxFPS = 10
	}
	if cfg.Vision.FrameWidth == 0 {
		cfg.Vision.FrameWidth = 640
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ECO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ECO_ADMIN_KEY"); v != "" {
		cfg.Server.AdminKey = v
	}
	if v := os.Getenv("ECO_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ECO_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("ECO_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ECO_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ECO_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("ECO_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("ECO_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("ECO_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("ECO_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("ECO_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("ECO_MODEL_PATH"); v != "" {
		cfg.Vision.ModelPath = v
	}
	if v := os.Getenv("ECO_VISION_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vision.WorkerCount = n
		}
	}
	if v := os.Getenv("ECO_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Vision.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("ECO_SMOOTHING_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vision.SmoothingWindow = n
		}
	}
}
