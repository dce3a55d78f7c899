package config

import (
	"errors"
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
	Metrics     MetricsConfig    `yaml:"metrics"`
	Log         LogConfig        `yaml:"log"`
	Scanner     ScannerConfig    `yaml:"scanner"`
	Engine      EngineConfig     `yaml:"engine"`
	Publish     PublishConfig    `yaml:"publish"`
	Candles     CandlesConfig    `yaml:"candles"`
	Binance     BinanceConfig    `yaml:"binance"`
	Inference   InferenceConfig  `yaml:"inference"`
	Reasoning   ReasoningConfig  `yaml:"reasoning"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	StreamInterval  time.Duration `yaml:"stream_interval" default:"2s"`
	CORS            bool          `yaml:"cors" default:"true"`
	RateLimit       struct {
		Capacity     float64 `yaml:"capacity" default:"10"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
	} `yaml:"rate_limit"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
	Output string `yaml:"output" default:"stdout"`
}

// ScannerConfig drives the watchlist loop. Intervals use exchange notation (5m, 1h, 1d).
type ScannerConfig struct {
	Watchlist     []string      `yaml:"watchlist" default:"[\"BTCUSDT\",\"ETHUSDT\",\"SOLUSDT\"]"`
	ShortInterval string        `yaml:"short_interval" default:"5m"`
	LongInterval  string        `yaml:"long_interval" default:"1h"`
	MacroInterval string        `yaml:"macro_interval" default:"1d"`
	ShortLimit    int           `yaml:"short_limit" default:"100"`
	LongLimit     int           `yaml:"long_limit" default:"240"`
	MacroLimit    int           `yaml:"macro_limit" default:"320"`
	H4Factor      int           `yaml:"h4_factor" default:"4"`
	SymbolDelay   time.Duration `yaml:"symbol_delay" default:"500ms"`
	CycleDelay    time.Duration `yaml:"cycle_delay" default:"2s"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" default:"5s"`
	AssetTimeout  time.Duration `yaml:"asset_timeout" default:"15s"`
}

// EngineConfig holds the tuned constants of the signal aggregator.
type EngineConfig struct {
	NeuralWeight         float64 `yaml:"neural_weight" default:"0.60"`
	RSIWeight            float64 `yaml:"rsi_weight" default:"0.40"`
	RSIPeriod            int     `yaml:"rsi_period" default:"14"`
	MacroFastPeriod      int     `yaml:"macro_fast_period" default:"50"`
	MacroSlowPeriod      int     `yaml:"macro_slow_period" default:"300"`
	MacroModifier        float64 `yaml:"macro_modifier" default:"5"`
	TrendPeriod          int     `yaml:"trend_period" default:"50"`
	StrongConfidence     float64 `yaml:"strong_confidence" default:"0.80"`
	BonusConfidence      float64 `yaml:"bonus_confidence" default:"0.90"`
	ConfidenceBonus      float64 `yaml:"confidence_bonus" default:"3"`
	StrongOverrideWeight float64 `yaml:"strong_override_weight" default:"15"`
	WeakOverrideWeight   float64 `yaml:"weak_override_weight" default:"10"`
	BuyThreshold         float64 `yaml:"buy_threshold" default:"52"`
	SellThreshold        float64 `yaml:"sell_threshold" default:"45"`
	StructurePeriod      int     `yaml:"structure_period" default:"20"`
}

// PublishConfig tunes the downstream signal pipeline.
type PublishConfig struct {
	MinInterval time.Duration `yaml:"min_interval" default:"1s"`
	BufferSize  int           `yaml:"buffer_size" default:"256"`
}

type CandlesConfig struct {
	Source string `yaml:"source" default:"binance"` // binance | clickhouse
	Table  string `yaml:"table" default:"signals.candles"`
}

type BinanceConfig struct {
	BaseURL string        `yaml:"base_url" default:"https://api.binance.com"`
	Timeout time.Duration `yaml:"timeout" default:"5s"`
}

type InferenceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout" default:"3s"`
	Retries int           `yaml:"retries" default:"2"`
}

type ReasoningConfig struct {
	Enabled   bool          `yaml:"enabled"`
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout" default:"20s"`
	Workers   int           `yaml:"workers" default:"1"`
	QueueSize int           `yaml:"queue_size" default:"64"`
}

type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	SignalsTopic   string   `yaml:"signals_topic" default:"engine.signals"`
	ReasoningTopic string   `yaml:"reasoning_topic" default:"engine.reasoning"`
	RequiredAcks   int      `yaml:"required_acks" default:"-1"`
	Compression    string   `yaml:"compression" default:"snappy"`
	Producer       struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"signal-engine"`
		Workers    int           `yaml:"workers" default:"1"`
		BufferSize int           `yaml:"buffer_size" default:"64"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"signals"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	AsyncInsert      bool          `yaml:"async_insert" default:"true"`
	ArchiveSignals   bool          `yaml:"archive_signals"`
	ArchiveTable     string        `yaml:"archive_table" default:"signals.signal_history"`
	InitSchema       bool          `yaml:"init_schema" default:"true"`
}

// ClickHouseNeeded reports whether any component reads from or writes to ClickHouse.
func (c *Config) ClickHouseNeeded() bool {
	return c.Candles.Source == "clickhouse" || c.ClickHouse.ArchiveSignals
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host" default:"localhost"`
	Port     int           `yaml:"port" default:"6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix" default:"signals"`
	TTL      time.Duration `yaml:"ttl" default:"10m"`
}

// Default returns a configuration populated only from default tags.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// DefaultEngine returns the stock aggregator constants.
func DefaultEngine() EngineConfig {
	return Default().Engine
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error; defaults plus environment are used instead.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("WATCHLIST"); v != "" {
		c.Scanner.Watchlist = splitList(strings.ToUpper(v))
	}
	if v := getenv("BINANCE_BASE_URL"); v != "" {
		c.Binance.BaseURL = v
	}
	if v := getenv("INFERENCE_URL"); v != "" {
		c.Inference.URL = v
	}
	if v := getenv("REASONING_URL"); v != "" {
		c.Reasoning.URL = v
		c.Reasoning.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := getenv("REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Scanner.Watchlist) == 0 {
		return fmt.Errorf("scanner.watchlist cannot be empty")
	}
	if c.Scanner.ShortLimit < 65 {
		return fmt.Errorf("scanner.short_limit must be at least 65, got %d", c.Scanner.ShortLimit)
	}
	if c.Scanner.H4Factor < 1 {
		return fmt.Errorf("scanner.h4_factor must be positive")
	}
	if c.Candles.Source != "binance" && c.Candles.Source != "clickhouse" {
		return fmt.Errorf("candles.source must be 'binance' or 'clickhouse', got '%s'", c.Candles.Source)
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Reasoning.Enabled && c.Reasoning.URL == "" {
		return fmt.Errorf("reasoning.url required when reasoning is enabled")
	}
	return nil
}

// Validate checks the aggregator constants for internal consistency.
func (e EngineConfig) Validate() error {
	if e.BuyThreshold <= e.SellThreshold {
		return fmt.Errorf("engine.buy_threshold (%v) must exceed engine.sell_threshold (%v)", e.BuyThreshold, e.SellThreshold)
	}
	if e.NeuralWeight < 0 || e.RSIWeight < 0 || e.NeuralWeight+e.RSIWeight == 0 {
		return fmt.Errorf("engine weights must be non-negative and not both zero")
	}
	if e.RSIPeriod < 1 || e.TrendPeriod < 1 || e.StructurePeriod < 1 {
		return fmt.Errorf("engine periods must be positive")
	}
	if e.MacroFastPeriod >= e.MacroSlowPeriod {
		return fmt.Errorf("engine.macro_fast_period must be shorter than engine.macro_slow_period")
	}
	return nil
}
