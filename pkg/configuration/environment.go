package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/DFE-Digital/trs-workforce/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

const (
	StorageBackendMinio = "minio"
	StorageBackendLocal = "local"
)

var singleton = sync.OnceValue(func() *Configuration {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
})

// Load reads .env files and the environment into a fresh Configuration.
func Load() (*Configuration, error) {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

// LoadEnv loads the env files that exist in the working directory. When none exist
// there, the directory holding the nearest go.mod is tried instead.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := existing(envFiles, "")
	if len(existingFiles) == 0 {
		if root, ok := moduleRoot(); ok {
			existingFiles = existing(envFiles, root)
		}
	}
	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

func existing(envFiles []string, dir string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"trs_workforce"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type StorageOptions struct {
	Backend   string `env:"STORAGE_BACKEND" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"trs-workforce"`
	LocalRoot string `env:"STORAGE_LOCAL_ROOT" envDefault:"./data"`

	InboundPrefix   string `env:"TPS_INBOUND_PREFIX" envDefault:"tps/pending"`
	ProcessedPrefix string `env:"TPS_PROCESSED_PREFIX" envDefault:"tps/processed"`
	ExportPrefix    string `env:"TPS_EXPORT_PREFIX" envDefault:"exports"`
}

// Validate checks the storage configuration for errors
func (s *StorageOptions) Validate() error {
	backend := strings.ToLower(strings.TrimSpace(s.Backend))
	switch backend {
	case StorageBackendMinio:
		if strings.TrimSpace(s.Endpoint) == "" {
			return fmt.Errorf("STORAGE_ENDPOINT is required when STORAGE_BACKEND=minio")
		}
		if strings.TrimSpace(s.Bucket) == "" {
			return fmt.Errorf("STORAGE_BUCKET is required when STORAGE_BACKEND=minio")
		}
	case StorageBackendLocal:
		if strings.TrimSpace(s.LocalRoot) == "" {
			return fmt.Errorf("STORAGE_LOCAL_ROOT is required when STORAGE_BACKEND=local")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND=%q (expected minio|local)", s.Backend)
	}
	s.Backend = backend
	return nil
}

type LokiOptions struct {
	LogPath string `env:"LOG_PATH" envDefault:"./logs/app.log"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"trs-workforce"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type MaintenanceOptions struct {
	Interval      time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"24h"`
	Export        bool          `env:"MAINTENANCE_EXPORT" envDefault:"true"`
	ImportPending bool          `env:"MAINTENANCE_IMPORT_PENDING" envDefault:"false"`
	SingleActive  bool          `env:"MAINTENANCE_SINGLE_ACTIVE" envDefault:"true"`
	Addr          string        `env:"MAINTENANCE_ADDR" envDefault:":9102"`
}

func (m *MaintenanceOptions) Validate() error {
	if m.Interval < time.Minute {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be at least 1m, got %s", m.Interval)
	}
	return nil
}

type Configuration struct {
	Database      DatabaseOptions
	Storage       StorageOptions
	Loki          LokiOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	Maintenance   MaintenanceOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Loki.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage configuration error: %w", err)
	}
	if err := c.Maintenance.Validate(); err != nil {
		return fmt.Errorf("maintenance configuration error: %w", err)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
