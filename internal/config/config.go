// Package config loads service configuration from a YAML file, a .env file
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"solana-swap-bot/internal/copytrade"
	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/venue"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Solana    SolanaConfig     `yaml:"solana"`
	Venues    VenuesConfig     `yaml:"venues"`
	Engine    EngineConfig     `yaml:"engine"`
	Wallets   WalletsConfig    `yaml:"wallets"`
	Storage   StorageConfig    `yaml:"storage"`
	Events    EventsConfig     `yaml:"events"`
	Telegram  TelegramConfig   `yaml:"telegram"`
	CopyTrade CopyTradeConfig  `yaml:"copytrade"`
	Logging   LoggingConfig    `yaml:"logging"`
	Dispatch  DispatcherConfig `yaml:"dispatcher"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type SolanaConfig struct {
	RPCEndpoint string        `yaml:"rpc_endpoint"`
	WSEndpoint  string        `yaml:"ws_endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RateLimit   float64       `yaml:"rate_limit"` // requests per second, 0 disables
	Burst       int           `yaml:"burst"`
	Commitment  string        `yaml:"commitment"`
}

type VenuesConfig struct {
	JupiterURL string  `yaml:"jupiter_url"`
	RaydiumURL string  `yaml:"raydium_url"`
	RateLimit  float64 `yaml:"rate_limit"`
	// PriorityFeeMicroLamports is the compute unit price for bonding curve swaps.
	PriorityFeeMicroLamports uint64 `yaml:"priority_fee_micro_lamports"`
}

type EngineConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	PlatformFeeBps    int           `yaml:"platform_fee_bps"`
	PlatformFeeWallet string        `yaml:"platform_fee_wallet"`
	ConfirmTimeout    time.Duration `yaml:"confirm_timeout"`
}

type WalletsConfig struct {
	Dir    string `yaml:"dir"`
	MainID string `yaml:"main_id"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	MaxConns      int32  `yaml:"max_conns"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type EventsConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	Buffer       int      `yaml:"buffer"`
}

type TelegramConfig struct {
	Token  string  `yaml:"token"`
	ChatID string  `yaml:"chat_id"`
	Rate   float64 `yaml:"rate"` // messages per second
}

// Enabled reports whether both token and chat id are set.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != ""
}

type CopyTradeConfig struct {
	AutoStart bool             `yaml:"auto_start"`
	Session   copytrade.Config `yaml:",inline"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json | text
	Output     string `yaml:"output"` // stdout | stderr | file path
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
}

type DispatcherConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", ShutdownTimeout: 30 * time.Second},
		Solana: SolanaConfig{
			RPCEndpoint: "https://api.mainnet-beta.solana.com",
			Timeout:     30 * time.Second,
			MaxRetries:  3,
			RateLimit:   10,
			Burst:       5,
			Commitment:  "confirmed",
		},
		Venues: VenuesConfig{
			JupiterURL: venue.JupiterBaseURL,
			RaydiumURL: venue.RaydiumBaseURL,
			RateLimit:  venue.DefaultAggregatorRPS,
		},
		Engine: EngineConfig{
			MaxRetries:     3,
			BaseDelay:      time.Second,
			PlatformFeeBps: 150,
			ConfirmTimeout: 60 * time.Second,
		},
		Wallets: WalletsConfig{Dir: "wallets"},
		Storage: StorageConfig{Backend: BackendMemory, MaxConns: 10},
		Events:  EventsConfig{KafkaTopic: "swapbot.events", Buffer: 64},
		Telegram: TelegramConfig{
			Rate: 1,
		},
		CopyTrade: CopyTradeConfig{
			Session: copytrade.Config{
				AmountMode:   copytrade.AmountFixed,
				SlippageBps:  300,
				CopyBuys:     true,
				CopySells:    true,
				PollInterval: copytrade.DefaultPollInterval,
				PageSize:     copytrade.DefaultPageSize,
			},
		},
		Logging:  LoggingConfig{Level: "info", Format: "json", Output: "stdout", MaxAgeDays: 7, MaxSizeMB: 100},
		Dispatch: DispatcherConfig{Workers: 4, QueueSize: 256, Timeout: 30 * time.Second},
	}
}

// Load reads path (optional), applies environment overrides and validates.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("HTTP_ADDR", &c.Server.Addr)
	str("SOLANA_RPC_ENDPOINT", &c.Solana.RPCEndpoint)
	str("SOLANA_WS_ENDPOINT", &c.Solana.WSEndpoint)
	str("JUPITER_API_URL", &c.Venues.JupiterURL)
	str("RAYDIUM_API_URL", &c.Venues.RaydiumURL)
	str("PLATFORM_FEE_WALLET", &c.Engine.PlatformFeeWallet)
	str("WALLETS_DIR", &c.Wallets.Dir)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.Storage.ClickhouseDSN)
	str("REDIS_ADDR", &c.Storage.RedisAddr)
	str("REDIS_PASSWORD", &c.Storage.RedisPassword)
	str("KAFKA_TOPIC", &c.Events.KafkaTopic)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.Token)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	str("COPYTRADE_TARGET_WALLET", &c.CopyTrade.Session.TargetWallet)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_OUTPUT", &c.Logging.Output)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Events.KafkaBrokers = splitList(v)
	}
	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Storage.RedisDB = n
	}
	if v, ok := lookup("PLATFORM_FEE_BPS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLATFORM_FEE_BPS: %w", err)
		}
		c.Engine.PlatformFeeBps = n
	}
	if v, ok := lookup("COPYTRADE_POLL_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COPYTRADE_POLL_INTERVAL: %w", err)
		}
		c.CopyTrade.Session.PollInterval = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Solana.RPCEndpoint == "" {
		return errors.New("solana.rpc_endpoint is required")
	}
	if c.Engine.MaxRetries < 0 {
		return errors.New("engine.max_retries must not be negative")
	}
	if c.Engine.BaseDelay < 0 {
		return errors.New("engine.base_delay must not be negative")
	}
	if c.Engine.PlatformFeeBps < 0 || c.Engine.PlatformFeeBps > 10_000 {
		return fmt.Errorf("engine.platform_fee_bps %d out of range [0, 10000]", c.Engine.PlatformFeeBps)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}

	ct := c.CopyTrade.Session
	if ct.SlippageBps < domain.MinSlippageBps || ct.SlippageBps > domain.MaxSlippageBps {
		return fmt.Errorf("copytrade.slippage_bps %d out of range [%d, %d]", ct.SlippageBps, domain.MinSlippageBps, domain.MaxSlippageBps)
	}
	if ct.PollInterval < copytrade.MinPollInterval {
		return fmt.Errorf("copytrade.poll_interval %s below minimum %s", ct.PollInterval, copytrade.MinPollInterval)
	}
	if ct.AmountMode != copytrade.AmountFixed && ct.AmountMode != copytrade.AmountProportional {
		return fmt.Errorf("unknown copytrade.amount_mode %q", ct.AmountMode)
	}
	if c.CopyTrade.AutoStart {
		if err := ct.WithDefaults().Validate(); err != nil {
			return fmt.Errorf("copytrade: %w", err)
		}
	}
	return nil
}
