package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration: trading parameters plus the
// infrastructure sections. Defaults come from struct tags; structural rules
// from validator tags; semantic rules from Validate. Any violation is fatal
// at startup.
type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"required"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"100"`
		MaxBackups int    `yaml:"max_backups" default:"5"`
		MaxAgeDays int    `yaml:"max_age_days" default:"14"`
	} `yaml:"log"`

	Exchange struct {
		Name           string        `yaml:"name" default:"binance"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443/stream"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"exchange"`

	Trading struct {
		Symbols             []string `yaml:"symbols" validate:"min=1"`
		Timeframes          []string `yaml:"timeframes" validate:"min=2"`
		FractalPeriod       int      `yaml:"fractal_period" default:"5" validate:"gte=3"`
		MinFractalStrength  float64  `yaml:"min_fractal_strength" default:"1.5" validate:"gt=0"`
		ConfirmationBars    int      `yaml:"confirmation_bars" default:"2" validate:"gte=1"`
		ActivationThreshold float64  `yaml:"activation_threshold" default:"0.5" validate:"gte=0,lt=1"`
		PositionSizePct     float64  `yaml:"position_size_pct" default:"2" validate:"gt=0,lte=100"`
		MaxPositions        int      `yaml:"max_positions" default:"3" validate:"gte=1"`
		StopLossPct         float64  `yaml:"stop_loss_pct" default:"2" validate:"gt=0,lt=100"`
		TakeProfitPct       float64  `yaml:"take_profit_pct" default:"4" validate:"gt=0"`
		DailyLossLimitPct   float64  `yaml:"daily_loss_limit_pct" default:"5" validate:"gt=0,lte=100"`
		MaxDrawdownPct      float64  `yaml:"max_drawdown_pct" default:"15" validate:"gt=0,lte=100"`
		StartingEquity      float64  `yaml:"starting_equity" default:"10000" validate:"gt=0"`
		MaxBarsPerSeries    int      `yaml:"max_bars_per_series" default:"500" validate:"gte=50"`
		BackfillBars        int      `yaml:"backfill_bars" default:"200" validate:"gte=0"`
	} `yaml:"trading"`

	Execution struct {
		Mode              string        `yaml:"mode" default:"paper" validate:"oneof=paper http"`
		GatewayURL        string        `yaml:"gateway_url"`
		Timeout           time.Duration `yaml:"timeout" default:"10s"`
		MaxOrdersPerSec   int           `yaml:"max_orders_per_sec" default:"5"`
		BreakerMaxFails   int           `yaml:"breaker_max_fails" default:"5"`
		BreakerOpenPeriod time.Duration `yaml:"breaker_open_period" default:"30s"`
	} `yaml:"execution"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Topics       struct {
			Bars    string `yaml:"bars" default:"fractrade.bars"`
			Events  string `yaml:"events" default:"fractrade.trade-events"`
			Signals string `yaml:"signals" default:"fractrade.signals"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"500ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"fractrade"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"fractrade"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Queue    struct {
			Workers    int           `yaml:"workers" default:"2"`
			RetryLimit int           `yaml:"retry_limit" default:"5"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"2s"`
		} `yaml:"queue"`
	} `yaml:"redis"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

var knownTimeframes = map[string]struct{}{
	"1m": {}, "5m": {}, "15m": {}, "1h": {}, "4h": {}, "1d": {},
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables (the original deployment surface of the system).
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if v := os.Getenv("EXCHANGE_NAME"); v != "" {
		c.Exchange.Name = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Trading.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		c.Trading.Timeframes = strings.Split(v, ",")
	}
	if v, ok := envInt("FRACTAL_PERIOD"); ok {
		c.Trading.FractalPeriod = v
	}
	if v, ok := envFloat("MIN_FRACTAL_STRENGTH"); ok {
		c.Trading.MinFractalStrength = v
	}
	if v, ok := envInt("FRACTAL_CONFIRMATION_BARS"); ok {
		c.Trading.ConfirmationBars = v
	}
	if v, ok := envFloat("POSITION_SIZE_PCT"); ok {
		c.Trading.PositionSizePct = v
	}
	if v, ok := envInt("MAX_POSITIONS"); ok {
		c.Trading.MaxPositions = v
	}
	if v, ok := envFloat("STOP_LOSS_PCT"); ok {
		c.Trading.StopLossPct = v
	}
	if v, ok := envFloat("TAKE_PROFIT_PCT"); ok {
		c.Trading.TakeProfitPct = v
	}
	if v, ok := envFloat("DAILY_LOSS_LIMIT_PCT"); ok {
		c.Trading.DailyLossLimitPct = v
	}
	if v, ok := envFloat("MAX_DRAWDOWN_PCT"); ok {
		c.Trading.MaxDrawdownPct = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate checks structural tags plus the semantic rules validator tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Trading.FractalPeriod%2 == 0 {
		return fmt.Errorf("trading.fractal_period must be odd, got %d", c.Trading.FractalPeriod)
	}
	for _, tf := range c.Trading.Timeframes {
		if _, ok := knownTimeframes[tf]; !ok {
			return fmt.Errorf("trading.timeframes: unknown timeframe %q", tf)
		}
	}
	if c.Execution.Mode == "http" && c.Execution.GatewayURL == "" {
		return fmt.Errorf("execution.gateway_url is required in http mode")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
