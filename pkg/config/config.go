package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"EarnRev/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowOrigins    []string      `yaml:"allow_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		Collector struct {
			Enabled         bool          `yaml:"enabled"`
			Topic           string        `yaml:"topic"`
			Interval        time.Duration `yaml:"interval"`
			Threshold       int           `yaml:"threshold"`
			IncludeWarnings bool          `yaml:"include_warnings"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Backend struct {
		Type string `yaml:"type"` // none, kafka or clickhouse
	} `yaml:"backend"`
	FMP struct {
		APIKey          string        `yaml:"api_key"`
		BaseURL         string        `yaml:"base_url"`
		Timeout         time.Duration `yaml:"timeout"`
		RateLimit       float64       `yaml:"rate_limit"`
		Burst           int           `yaml:"burst"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
		BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
	} `yaml:"fmp"`
	LLM struct {
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model"`
		BaseURL     string        `yaml:"base_url"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`
	Extraction struct {
		Concurrency int           `yaml:"concurrency"`
		RateLimit   float64       `yaml:"rate_limit"`
		Burst       int           `yaml:"burst"`
		Attempts    int           `yaml:"attempts"`
		Backoff     time.Duration `yaml:"backoff"`
		MaxChars    int           `yaml:"max_chars"`
	} `yaml:"extraction"`
	Analysis struct {
		MaxEvents        int           `yaml:"max_events"`
		EventConcurrency int           `yaml:"event_concurrency"`
		Timeout          time.Duration `yaml:"timeout"`
		CacheTTL         time.Duration `yaml:"cache_ttl"`
		RateLimit        struct {
			RPS   float64       `yaml:"rps"`
			Burst int           `yaml:"burst"`
			Idle  time.Duration `yaml:"idle"`
		} `yaml:"rate_limit"`
	} `yaml:"analysis"`
	Postgres struct {
		Enabled      bool          `yaml:"enabled"`
		DSN          string        `yaml:"dsn"`
		MaxOpenConns int           `yaml:"max_open_conns"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		Queue    struct {
			Enabled    bool          `yaml:"enabled"`
			Workers    int           `yaml:"workers"`
			RetryLimit int           `yaml:"retry_limit"`
			RetryDelay time.Duration `yaml:"retry_delay"`
			LockTTL    time.Duration `yaml:"lock_ttl"`
		} `yaml:"queue"`
	} `yaml:"redis"`
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
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		Table            string        `yaml:"table"`
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

// Default returns a config that runs the API with no optional infrastructure.
func Default() *Config {
	c := &Config{Environment: "development"}

	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 180 * time.Second
	c.Server.ShutdownTimeout = 15 * time.Second
	c.Server.AllowOrigins = []string{"*"}
	c.Metrics.Enabled = true

	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Logging.Collector.Topic = "earnrev.logs"
	c.Logging.Collector.Interval = 30 * time.Second
	c.Logging.Collector.Threshold = 100

	c.Backend.Type = "none"

	c.FMP.BaseURL = "https://financialmodelingprep.com/stable"
	c.FMP.Timeout = 30 * time.Second
	c.FMP.RateLimit = 10
	c.FMP.Burst = 5
	c.FMP.BreakerFailures = 5
	c.FMP.BreakerTimeout = 30 * time.Second

	c.LLM.Model = "claude-sonnet-4-20250514"
	c.LLM.MaxTokens = 2000
	c.LLM.Temperature = 0.3
	c.LLM.Timeout = 120 * time.Second

	c.Extraction.Concurrency = 10
	c.Extraction.RateLimit = 2
	c.Extraction.Burst = 2
	c.Extraction.Attempts = 3
	c.Extraction.Backoff = 2 * time.Second
	c.Extraction.MaxChars = 100000

	c.Analysis.MaxEvents = 8
	c.Analysis.EventConcurrency = 4
	c.Analysis.Timeout = 5 * time.Minute
	c.Analysis.CacheTTL = 6 * time.Hour
	c.Analysis.RateLimit.RPS = 0.5
	c.Analysis.RateLimit.Burst = 3
	c.Analysis.RateLimit.Idle = 10 * time.Minute

	c.Postgres.MaxOpenConns = 5
	c.Postgres.Timeout = 10 * time.Second

	c.Redis.Addr = "localhost:6379"
	c.Redis.Prefix = "earnrev"
	c.Redis.Queue.Workers = 2
	c.Redis.Queue.RetryLimit = 3
	c.Redis.Queue.RetryDelay = 30 * time.Second
	c.Redis.Queue.LockTTL = 10 * time.Minute

	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.Topic = "earnrev.results"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Producer.MaxAttempts = 5
	c.Kafka.Producer.Linger = 50 * time.Millisecond
	c.Kafka.Producer.BatchBytes = 4 << 20
	c.Kafka.Producer.BatchSize = 100
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Producer.ReadTimeout = 10 * time.Second
	c.Kafka.Consumer.GroupID = "earnrev-results-sink"
	c.Kafka.Consumer.Workers = 2
	c.Kafka.Consumer.BufferSize = 256
	c.Kafka.Consumer.RetryMax = 5
	c.Kafka.Consumer.BackoffMin = 200 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 10 * time.Second
	c.Kafka.Consumer.DLQTopic = "earnrev.results.dlq"
	c.Kafka.Consumer.MinBytes = 1
	c.Kafka.Consumer.MaxBytes = 10 << 20

	c.ClickHouse.Host = "localhost"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "earnrev"
	c.ClickHouse.Table = "earnrev.event_results"
	c.ClickHouse.User = "default"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 30 * time.Second
	c.ClickHouse.WriteTimeout = 30 * time.Second
	c.ClickHouse.MaxExecutionTime = 60 * time.Second

	return c
}

// Load reads a YAML configuration file on top of Default.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML, or Default when path is empty, and
// overrides it with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = read(path); err != nil {
			return nil, err
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		c.FMP.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
		c.Postgres.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	c.Redis.Queue.Workers = util.ParseIntDefault(os.Getenv("QUEUE_WORKERS"), c.Redis.Queue.Workers)
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "none", "kafka", "clickhouse":
	case "":
		return fmt.Errorf("backend.type is required")
	default:
		return fmt.Errorf("backend.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.FMP.APIKey == "" && !c.Postgres.Enabled {
		return fmt.Errorf("fmp.api_key is required unless postgres is enabled")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when postgres is enabled")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Analysis.MaxEvents < 1 || c.Analysis.MaxEvents > 20 {
		return fmt.Errorf("analysis.max_events must be within 1..20, got %d", c.Analysis.MaxEvents)
	}
	if c.Backend.Type == "kafka" || c.Kafka.Consumer.Enabled {
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.brokers and kafka.topic are required for the kafka backend")
		}
	}
	if (c.Backend.Type == "clickhouse" || c.Kafka.Consumer.Enabled) && !c.ClickHouse.Enabled {
		return fmt.Errorf("clickhouse must be enabled to store results")
	}
	if c.Redis.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("redis.queue requires redis.enabled")
	}
	return nil
}
