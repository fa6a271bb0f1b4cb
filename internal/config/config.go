package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Portal   PortalConfig   `yaml:"portal"`
	Sync     SyncConfig     `yaml:"sync"`
	Workers  WorkersConfig  `yaml:"workers"`
	Crypto   CryptoConfig   `yaml:"crypto"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          bool          `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
	SyncQueue   string `yaml:"sync_queue"`
	ReportQueue string `yaml:"report_queue"`
	DLQSuffix   string `yaml:"dlq_suffix"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// PortalConfig points at the edu-tpi journal API. Endpoint paths are fixed by
// the portal and live in the journal client; only the base URL varies between
// environments.
type PortalConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SyncConfig struct {
	LookbackDays        int           `yaml:"lookback_days"`
	JournalFetchDelay   time.Duration `yaml:"journal_fetch_delay"`
	SubjectPersistDelay time.Duration `yaml:"subject_persist_delay"`
}

type WorkersConfig struct {
	Sync      SyncWorkerConfig      `yaml:"sync"`
	Report    ReportWorkerConfig    `yaml:"report"`
	Scheduler SchedulerWorkerConfig `yaml:"scheduler"`
}

type SyncWorkerConfig struct {
	Count int `yaml:"count"`
}

type ReportWorkerConfig struct {
	Count int `yaml:"count"`
}

type SchedulerWorkerConfig struct {
	RunOnStart bool `yaml:"run_on_start"`
}

type CryptoConfig struct {
	// Hex-encoded 32-byte key for credential encryption at rest.
	Key string `yaml:"key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Sync.LookbackDays == 0 {
		c.Sync.LookbackDays = 730
	}
	if c.Sync.JournalFetchDelay == 0 {
		c.Sync.JournalFetchDelay = time.Second
	}
	if c.Sync.SubjectPersistDelay == 0 {
		c.Sync.SubjectPersistDelay = 1500 * time.Millisecond
	}
	if c.Portal.Timeout == 0 {
		c.Portal.Timeout = 60 * time.Second
	}
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.Database.ParseTime, c.Database.Loc)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
