package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Store struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"store"`
	Provider struct {
		BaseURL     string        `yaml:"base_url"`
		AccessToken string        `yaml:"access_token"`
		ClientID    string        `yaml:"client_id"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxRPS      float64       `yaml:"max_rps"`
	} `yaml:"provider"`
	Pipeline struct {
		Timeframes      []string      `yaml:"timeframes"`
		CandleRetention int           `yaml:"candle_retention"`
		SignalRetention int           `yaml:"signal_retention"`
		BatchSize       int           `yaml:"batch_size"`
		BatchPause      time.Duration `yaml:"batch_pause"`
		LeaseTTL        time.Duration `yaml:"lease_ttl"`
	} `yaml:"pipeline"`
	Session struct {
		OpenHour    int      `yaml:"open_hour"`
		OpenMinute  int      `yaml:"open_minute"`
		CloseHour   int      `yaml:"close_hour"`
		CloseMinute int      `yaml:"close_minute"`
		Holidays    []string `yaml:"holidays"`
	} `yaml:"session"`
	Redis struct {
		Enabled     bool          `yaml:"enabled"`
		Addr        string        `yaml:"addr"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
	} `yaml:"redis"`
	Archive struct {
		Backend string `yaml:"backend"` // "", "kafka", "clickhouse"
	} `yaml:"archive"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Override with environment variables before validation so secrets
	// can live outside the YAML file.
	if v := os.Getenv("STORE_URL"); v != "" {
		c.Store.BaseURL = v
	}
	if v := os.Getenv("STORE_API_KEY"); v != "" {
		c.Store.APIKey = v
	}
	if v := os.Getenv("PROVIDER_ACCESS_TOKEN"); v != "" {
		c.Provider.AccessToken = v
	}
	if v := os.Getenv("PROVIDER_CLIENT_ID"); v != "" {
		c.Provider.ClientID = v
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		c.Pipeline.Timeframes = strings.Split(v, ",")
	}
	if v := os.Getenv("ARCHIVE_BACKEND"); v != "" {
		c.Archive.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = 30 * time.Second
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Provider.MaxRPS == 0 {
		c.Provider.MaxRPS = 5
	}
	if len(c.Pipeline.Timeframes) == 0 {
		c.Pipeline.Timeframes = []string{"5", "15", "60"}
	}
	if c.Pipeline.CandleRetention == 0 {
		c.Pipeline.CandleRetention = 210
	}
	if c.Pipeline.SignalRetention == 0 {
		c.Pipeline.SignalRetention = 50
	}
	if c.Pipeline.BatchSize == 0 {
		c.Pipeline.BatchSize = 5
	}
	if c.Pipeline.BatchPause == 0 {
		c.Pipeline.BatchPause = time.Second
	}
	if c.Pipeline.LeaseTTL == 0 {
		c.Pipeline.LeaseTTL = 5 * time.Minute
	}
	if c.Redis.SnapshotTTL == 0 {
		c.Redis.SnapshotTTL = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Store.BaseURL == "" {
		return fmt.Errorf("store.base_url is required")
	}
	if c.Store.APIKey == "" {
		return fmt.Errorf("store.api_key is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.AccessToken == "" {
		return fmt.Errorf("provider.access_token is required")
	}
	if c.Provider.ClientID == "" {
		return fmt.Errorf("provider.client_id is required")
	}
	for _, tf := range c.Pipeline.Timeframes {
		if tf == "" {
			return fmt.Errorf("pipeline.timeframes contains an empty entry")
		}
	}
	switch c.Archive.Backend {
	case "", "kafka", "clickhouse":
	default:
		return fmt.Errorf("archive.backend must be '', 'kafka' or 'clickhouse', got '%s'", c.Archive.Backend)
	}
	if c.Archive.Backend == "kafka" {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers required when archive.backend=kafka")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic required when archive.backend=kafka")
		}
	}
	if c.Archive.Backend == "clickhouse" || c.Kafka.Consumer.Enabled {
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host required for the configured archive path")
		}
	}
	return nil
}
