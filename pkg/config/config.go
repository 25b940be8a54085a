package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"SupraView/internal/domain/models"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Supra struct {
		GraphQLURL       string        `yaml:"graphql_url"`
		RPCURL           string        `yaml:"rpc_url"`
		ProviderID       string        `yaml:"provider_id"`
		ProviderName     string        `yaml:"provider_name"`
		InstrumentTypeID string        `yaml:"instrument_type_id"`
		DoraType         string        `yaml:"dora_type"`
		RequestTimeout   time.Duration `yaml:"request_timeout"`
	} `yaml:"supra"`
	Poller struct {
		Pair               string        `yaml:"pair"`
		InstrumentID       string        `yaml:"instrument_id"`
		Interval           time.Duration `yaml:"interval"`
		Range              time.Duration `yaml:"range"`
		GranularitySeconds int           `yaml:"granularity_seconds"`
		HistoryWindow      time.Duration `yaml:"history_window"`
	} `yaml:"poller"`
	Snapshot struct {
		Range              time.Duration `yaml:"range"`
		GranularitySeconds int           `yaml:"granularity_seconds"`
		RetryWait          time.Duration `yaml:"retry_wait"`
		Defaults           struct {
			Deposits   string `yaml:"deposits"`
			Borrows    string `yaml:"borrows"`
			LTV        string `yaml:"ltv"`
			BW         string `yaml:"bw"`
			DepositAPR string `yaml:"deposit_apr"`
			BorrowAPR  string `yaml:"borrow_apr"`
		} `yaml:"defaults"`
	} `yaml:"snapshot"`
	Lending struct {
		PoolMetricsFunction string        `yaml:"pool_metrics_function"`
		ObligationFunction  string        `yaml:"obligation_function"`
		BalanceFunction     string        `yaml:"balance_function"`
		RefreshInterval     time.Duration `yaml:"refresh_interval"`
	} `yaml:"lending"`
	Assets []models.TrackedAsset `yaml:"assets"`
	Coins  []models.Coin         `yaml:"coins"`
	Cache  struct {
		QuoteTTL time.Duration `yaml:"quote_ttl"`
		Redis    struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
	} `yaml:"kafka"`
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

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SUPRA_GRAPHQL_URL"); v != "" {
		c.Supra.GraphQLURL = v
	}
	if v := os.Getenv("SUPRA_RPC_URL"); v != "" {
		c.Supra.RPCURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Enabled = true
		host, port := v, 6379
		if i := strings.LastIndex(v, ":"); i > 0 {
			host = v[:i]
			if p, err := strconvAtoi(v[i+1:]); err == nil {
				port = p
			}
		}
		c.Cache.Redis.Host = host
		c.Cache.Redis.Port = port
	}

	return c, nil
}

func strconvAtoi(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func (c *Config) applyDefaults() {
	if c.Supra.RequestTimeout == 0 {
		c.Supra.RequestTimeout = 5 * time.Second
	}
	if c.Poller.Interval == 0 {
		c.Poller.Interval = 8 * time.Second
	}
	if c.Poller.Range == 0 {
		c.Poller.Range = 30 * 24 * time.Hour
	}
	if c.Poller.GranularitySeconds == 0 {
		c.Poller.GranularitySeconds = 7200
	}
	if c.Poller.HistoryWindow == 0 {
		c.Poller.HistoryWindow = 300 * time.Second
	}
	if c.Snapshot.Range == 0 {
		c.Snapshot.Range = 24 * time.Hour
	}
	if c.Snapshot.GranularitySeconds == 0 {
		c.Snapshot.GranularitySeconds = 60
	}
	if c.Snapshot.RetryWait == 0 {
		c.Snapshot.RetryWait = 1000 * time.Millisecond
	}
	d := &c.Snapshot.Defaults
	if d.Deposits == "" {
		d.Deposits = "0"
	}
	if d.Borrows == "" {
		d.Borrows = "0"
	}
	if d.LTV == "" {
		d.LTV = "80"
	}
	if d.BW == "" {
		d.BW = "90"
	}
	if d.DepositAPR == "" {
		d.DepositAPR = "5"
	}
	if d.BorrowAPR == "" {
		d.BorrowAPR = "8"
	}
	if c.Lending.BalanceFunction == "" {
		c.Lending.BalanceFunction = "0x1::coin::balance"
	}
	if c.Lending.RefreshInterval == 0 {
		c.Lending.RefreshInterval = 30 * time.Second
	}
	if c.Cache.QuoteTTL == 0 {
		c.Cache.QuoteTTL = 15 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Supra.GraphQLURL == "" {
		return fmt.Errorf("supra.graphql_url is required")
	}
	if c.Supra.RPCURL == "" {
		return fmt.Errorf("supra.rpc_url is required")
	}
	if c.Poller.Pair == "" || c.Poller.InstrumentID == "" {
		return fmt.Errorf("poller.pair and poller.instrument_id are required")
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets cannot be empty")
	}
	if len(c.Coins) == 0 {
		return fmt.Errorf("coins cannot be empty")
	}
	stables := 0
	for _, a := range c.Assets {
		if a.Name == "" || a.InstrumentID == "" || a.Pair == "" {
			return fmt.Errorf("asset %q: name, instrument_id and pair are required", a.Name)
		}
		if a.Stable {
			stables++
		}
	}
	if stables > 1 {
		return fmt.Errorf("at most one stable asset may be designated, got %d", stables)
	}
	for _, coin := range c.Coins {
		if coin.Symbol == "" || coin.TypeTag == "" {
			return fmt.Errorf("coin %q: symbol and type_tag are required", coin.Symbol)
		}
		// A wrong exponent silently corrupts every displayed magnitude, so
		// an unset exponent is rejected here, never defaulted.
		if coin.Decimals <= 0 {
			return fmt.Errorf("coin %q: decimals must be set explicitly", coin.Symbol)
		}
	}
	if c.Lending.PoolMetricsFunction == "" || c.Lending.ObligationFunction == "" {
		return fmt.Errorf("lending.pool_metrics_function and lending.obligation_function are required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers are required when kafka is enabled")
	}
	return nil
}
