package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Trading modes.
const (
	ModeLive = "live"
	ModeDemo = "demo"
)

// Config holds the full application configuration. Secrets may live in the
// yaml file but environment variables always override them.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Trading struct {
		Mode     string `yaml:"mode"`     // live | demo
		Exchange string `yaml:"exchange"` // must match the directive's exchange field
	} `yaml:"trading"`

	Webhook struct {
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`

	API struct {
		Bitget struct {
			RestURL    string `yaml:"rest_url"`
			WSURL      string `yaml:"ws_url"`
			AccessKey  string `yaml:"access_key"`
			SecretKey  string `yaml:"secret_key"`
			Passphrase string `yaml:"passphrase"`
		} `yaml:"bitget"`
	} `yaml:"api"`

	Reconcile struct {
		GatewayRetries      int `yaml:"gateway_retries"`       // transient-error retries per gateway call
		CloseConfirmRetries int `yaml:"close_confirm_retries"` // post-close convergence polls
		HTTPTimeoutSec      int `yaml:"http_timeout_sec"`      // hard cap per REST call
	} `yaml:"reconcile"`

	TakeProfit struct {
		Enabled    bool     `yaml:"enabled"`
		TriggerPct float64  `yaml:"trigger_pct"` // unrealized gain (%) that triggers a reduce-only close
		Symbols    []string `yaml:"symbols"`     // external spellings, normalized at startup
	} `yaml:"take_profit"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, fills defaults and validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Trading.Mode == "" {
		c.Trading.Mode = ModeDemo
	}
	if c.Trading.Exchange == "" {
		c.Trading.Exchange = "bitget"
	}
	if c.API.Bitget.RestURL == "" {
		c.API.Bitget.RestURL = "https://api.bitget.com"
	}
	if c.API.Bitget.WSURL == "" {
		c.API.Bitget.WSURL = "wss://ws.bitget.com/v2/ws/public"
	}
	if c.Reconcile.GatewayRetries <= 0 {
		c.Reconcile.GatewayRetries = 3
	}
	if c.Reconcile.CloseConfirmRetries <= 0 {
		c.Reconcile.CloseConfirmRetries = 10
	}
	if c.Reconcile.HTTPTimeoutSec <= 0 {
		c.Reconcile.HTTPTimeoutSec = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Trading.Mode) {
	case ModeLive, ModeDemo:
	default:
		return fmt.Errorf("trading mode must be %q or %q, got %q", ModeLive, ModeDemo, c.Trading.Mode)
	}

	if c.Webhook.Secret == "" {
		return fmt.Errorf("webhook secret is required (set WEBHOOK_SECRET)")
	}

	if !strings.HasPrefix(c.API.Bitget.RestURL, "https://") && !strings.HasPrefix(c.API.Bitget.RestURL, "http://") {
		return fmt.Errorf("invalid Bitget REST URL: %s", c.API.Bitget.RestURL)
	}
	if !strings.HasPrefix(c.API.Bitget.WSURL, "ws://") && !strings.HasPrefix(c.API.Bitget.WSURL, "wss://") {
		return fmt.Errorf("invalid Bitget WS URL: %s", c.API.Bitget.WSURL)
	}

	if strings.ToLower(c.Trading.Mode) == ModeLive {
		if c.API.Bitget.AccessKey == "" || c.API.Bitget.SecretKey == "" || c.API.Bitget.Passphrase == "" {
			return fmt.Errorf("live mode requires BITGET_API_KEY, BITGET_API_SECRET and BITGET_PASSPHRASE")
		}
	}

	if c.TakeProfit.Enabled {
		if c.TakeProfit.TriggerPct <= 0 {
			return fmt.Errorf("take_profit.trigger_pct must be > 0 when enabled")
		}
		if len(c.TakeProfit.Symbols) == 0 {
			return fmt.Errorf("take_profit.symbols must not be empty when enabled")
		}
	}

	return nil
}

// overrideWithEnv applies environment variables on top of the file values.
// Environment always wins so secrets can stay out of the config file.
func overrideWithEnv(cfg *Config) {
	if cfg.API.Bitget.SecretKey != "" {
		fmt.Println("⚠️  SECURITY WARNING: API secrets found in config file.")
		fmt.Println("   Recommendation: use environment variables instead:")
		fmt.Println("   - BITGET_API_KEY, BITGET_API_SECRET, BITGET_PASSPHRASE")
	}

	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("TRADE_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
	if v := os.Getenv("BITGET_API_KEY"); v != "" {
		cfg.API.Bitget.AccessKey = v
	}
	if v := os.Getenv("BITGET_API_SECRET"); v != "" {
		cfg.API.Bitget.SecretKey = v
	}
	if v := os.Getenv("BITGET_PASSPHRASE"); v != "" {
		cfg.API.Bitget.Passphrase = v
	}
	if v := os.Getenv("BITGET_BASE_URL"); v != "" {
		cfg.API.Bitget.RestURL = v
	}
}
