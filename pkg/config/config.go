package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Logger      LoggerConfig     `yaml:"logger"`
	Trading     TradingConfig    `yaml:"trading"`
	Aggregator  AggregatorConfig `yaml:"aggregator"`
	MarketData  MarketDataConfig `yaml:"market_data"`
	Output      OutputConfig     `yaml:"output"`
	Backend     BackendConfig    `yaml:"backend"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	Queue       QueueConfig      `yaml:"queue"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
	Output string `yaml:"output" default:"stdout"`
}

type TradingConfig struct {
	Tickers       []string      `yaml:"tickers" default:"[\"AAPL\"]"`
	Interval      time.Duration `yaml:"interval" default:"1m"`
	SessionPrefix string        `yaml:"session_prefix" default:"trading-workflow"`
	Concurrency   int           `yaml:"concurrency" default:"4"`
	LockWait      time.Duration `yaml:"lock_wait" default:"5s"`
}

// AggregatorConfig holds the weighted-vote parameters.
type AggregatorConfig struct {
	DominanceRatio     float64       `yaml:"dominance_ratio" default:"1.2"`
	HoldConfidence     float64       `yaml:"hold_confidence" default:"0.4"`
	BoostFactor        float64       `yaml:"boost_factor" default:"1.3"`
	AgreementThreshold float64       `yaml:"agreement_threshold" default:"0.6"`
	Weights            WeightsConfig `yaml:"weights"`
}

type WeightsConfig struct {
	Price    float64 `yaml:"price" default:"1.5"`
	Volume   float64 `yaml:"volume" default:"1.2"`
	Momentum float64 `yaml:"momentum" default:"1.3"`
	Trend    float64 `yaml:"trend" default:"1.4"`
}

type MarketDataConfig struct {
	Provider     string        `yaml:"provider" default:"yahoo"`
	BaseURL      string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
	Timeout      time.Duration `yaml:"timeout" default:"5s"`
	RateLimit    float64       `yaml:"rate_limit" default:"2"` // requests per second
	Burst        float64       `yaml:"burst" default:"5"`
	CacheTTL     time.Duration `yaml:"cache_ttl" default:"15s"`
	Fallback     bool          `yaml:"fallback" default:"true"`
	MovingWindow int           `yaml:"moving_window" default:"50"`
}

type OutputConfig struct {
	CSVPath       string        `yaml:"csv_path" default:"trade-decisions.csv"`
	Async         bool          `yaml:"async"`
	BatchSize     int           `yaml:"batch_size" default:"50"`
	BufferSize    int           `yaml:"buffer_size" default:"1000"`
	FlushInterval time.Duration `yaml:"flush_interval" default:"2s"`
}

type BackendConfig struct {
	Type string `yaml:"type" default:"none"` // none, kafka, clickhouse
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic" default:"trade-decisions"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"500ms"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id" default:"tradecore-archiver"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"100"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"tradecore"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"tradecore"`
	PoolSize int    `yaml:"pool_size" default:"10"`
}

type QueueConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Name       string        `yaml:"name" default:"trading-queue"`
	Workers    int           `yaml:"workers" default:"2"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
}

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TICKERS"); v != "" {
		c.Trading.Tickers = splitList(v)
	}
	if v := os.Getenv("MARKET_DATA_PROVIDER"); v != "" {
		c.MarketData.Provider = v
	}
	if v := os.Getenv("MARKET_DATA_BASE_URL"); v != "" {
		c.MarketData.BaseURL = v
	}
	if v := os.Getenv("OUTPUT_CSV_PATH"); v != "" {
		c.Output.CSVPath = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
		c.Redis.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("backend.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when backend.type is kafka")
	}
	if c.Backend.Type == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("clickhouse.enabled must be true when backend.type is clickhouse")
	}
	switch c.MarketData.Provider {
	case "yahoo", "simulated":
	default:
		return fmt.Errorf("market_data.provider must be 'yahoo' or 'simulated', got '%s'", c.MarketData.Provider)
	}
	if len(c.Trading.Tickers) == 0 {
		return fmt.Errorf("trading.tickers cannot be empty")
	}
	if c.Trading.Interval <= 0 {
		return fmt.Errorf("trading.interval must be positive")
	}
	a := c.Aggregator
	if a.DominanceRatio <= 0 || a.BoostFactor <= 0 || a.HoldConfidence < 0 || a.HoldConfidence > 1 {
		return fmt.Errorf("aggregator parameters out of range")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue.enabled requires redis.enabled")
	}
	if c.Output.CSVPath == "" {
		return fmt.Errorf("output.csv_path is required")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
