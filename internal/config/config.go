package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/extra24/bus-booking-deploy/internal/apperrors"
)

const (
	StatsBackendRedis    = "redis"
	StatsBackendPostgres = "postgres"
)

type Config struct {
	App        `yaml:"app"`
	Logger     `yaml:"log"`
	HTTPServer `yaml:"http_server"`
	Stats      `yaml:"stats"`
	Redis      `yaml:"redis"`
	Database   `yaml:"database"`
	Queue      `yaml:"queue"`
	Snapshot   `yaml:"snapshot"`
}

type App struct {
	ServiceName string `yaml:"service_name" env:"APP_SERVICE_NAME" env-default:"bus-booking"`
	Version     string `yaml:"version" env:"APP_VERSION" env-default:"0.1.0"`
}

type Logger struct {
	Level      string   `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	FormatJSON bool     `yaml:"format_json" env:"LOG_FORMAT_JSON" env-default:"true"`
	Rotation   Rotation `yaml:"rotation"`
}

type Rotation struct {
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSize    int    `yaml:"max_size" env:"LOG_MAX_SIZE" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
	MaxAge     int    `yaml:"max_age" env:"LOG_MAX_AGE" env-default:"7"`
}

type HTTPServer struct {
	Host     string  `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     uint16  `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string  `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/"`
	Timeout  Timeout `yaml:"timeout"`
}

type Timeout struct {
	Request time.Duration `yaml:"request" env:"HTTP_TIMEOUT_REQUEST" env-default:"10s"`
	Read    time.Duration `yaml:"read" env:"HTTP_TIMEOUT_READ" env-default:"5s"`
	Write   time.Duration `yaml:"write" env:"HTTP_TIMEOUT_WRITE" env-default:"15s"`
	Idle    time.Duration `yaml:"idle" env:"HTTP_TIMEOUT_IDLE" env-default:"60s"`
}

// Stats selects the counter store. Table is the Redis key prefix or the Postgres table.
type Stats struct {
	Backend  string `yaml:"backend" env:"STATS_BACKEND" env-default:"redis"`
	Table    string `yaml:"table" env:"STATS_TABLE" env-default:"Stats"`
	RecordID string `yaml:"record_id" env:"STATS_RECORD_ID" env-default:"total"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     uint16 `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Database struct {
	Host      string    `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port      uint16    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User      string    `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password  string    `yaml:"password" env:"DB_PASSWORD"`
	Name      string    `yaml:"name" env:"DB_NAME" env-default:"bus_booking"`
	SSLMode   string    `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxConns  int32     `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	MinConns  int32     `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"1"`
	Migration Migration `yaml:"migration"`
}

type Migration struct {
	Path      string `yaml:"path" env:"DB_MIGRATION_PATH" env-default:"./migrations"`
	AutoApply bool   `yaml:"auto_apply" env:"DB_MIGRATION_AUTO_APPLY" env-default:"true"`
}

// Queue describes the booking topic. URL is a pre-resolved address; when empty
// the producer resolves Name against the cluster on every request.
type Queue struct {
	Brokers     []string      `yaml:"brokers" env:"QUEUE_BROKERS" env-separator:"," env-default:"localhost:9092"`
	Name        string        `yaml:"name" env:"QUEUE_NAME"`
	URL         string        `yaml:"url" env:"QUEUE_URL"`
	GroupID     string        `yaml:"group_id" env:"QUEUE_GROUP_ID" env-default:"bus-booking-consumer"`
	BatchSize   int           `yaml:"batch_size" env:"QUEUE_BATCH_SIZE" env-default:"10"`
	BatchWindow time.Duration `yaml:"batch_window" env:"QUEUE_BATCH_WINDOW" env-default:"1s"`
}

// Topic is the address the consumer subscribes to.
func (q Queue) Topic() string {
	if q.URL != "" {
		return q.URL
	}

	return q.Name
}

// Snapshot is the object store target. An empty Bucket disables publishing.
type Snapshot struct {
	Region       string `yaml:"region" env:"AWS_REGION,REGION" env-default:"ap-northeast-2"`
	Bucket       string `yaml:"bucket" env:"S3_BUCKET"`
	Key          string `yaml:"key" env:"S3_KEY" env-default:"stats.json"`
	Endpoint     string `yaml:"endpoint" env:"S3_ENDPOINT"`
	UsePathStyle bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE"`
}

func MustLoadConfig() *Config {
	cfg, err := LoadConfig(fetchConfigPath())
	if err != nil {
		panic(err)
	}

	return cfg
}

// LoadConfig reads the YAML file at path (environment overrides it) or, when
// path is empty, the environment alone.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}

		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Stats.Backend {
	case StatsBackendRedis, StatsBackendPostgres:
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownStatsBackend, c.Stats.Backend)
	}

	if c.Stats.Table == "" || c.Stats.RecordID == "" {
		return apperrors.ErrStatsTableIsEmpty
	}

	if len(c.Queue.Brokers) == 0 {
		return apperrors.ErrNoBrokers
	}

	if c.Queue.Name == "" && c.Queue.URL == "" {
		return apperrors.ErrQueueIsNotConfigured
	}

	return nil
}

func MustPrintConfig(cfg *Config) {
	if err := PrintConfig(cfg); err != nil {
		panic(err)
	}
}

func PrintConfig(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	println(string(data))

	return nil
}

func fetchConfigPath() string {
	var result string

	flag.StringVar(&result, "config", "", "Path to config file")
	flag.Parse()

	if result == "" {
		result = os.Getenv("CONFIG_PATH")
	}

	return result
}
