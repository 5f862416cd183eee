// Package daemon holds the process configuration: TOML file, environment
// overrides, and logger setup for the serve loop.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/app/billing"
	"github.com/ledgerline/ledgerline/internal/domain"
)

// Config is the full daemon configuration, loaded from TOML with environment
// overrides applied on top.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Billing   BillingConfig   `toml:"billing"`
	Numbering NumberingConfig `toml:"numbering"`
	Log       LogConfig       `toml:"log"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig configures the SQLite store.
type StorageConfig struct {
	Path string `toml:"path"`
}

// BillingConfig configures the billing calculator's data tables and
// defaults. Empty tables fall back to the built-in ones.
type BillingConfig struct {
	DefaultCurrency  string                       `toml:"default_currency"`
	DefaultTaxRegion string                       `toml:"default_tax_region"`
	TaxRates         map[string][]billing.TaxRate `toml:"tax_rates"`
	CurrencyFactors  map[string]float64           `toml:"currency_factors"`
}

// NumberingConfig configures the default invoice numbering series.
type NumberingConfig struct {
	Prefix           string `toml:"prefix"`
	Suffix           string `toml:"suffix"`
	PaymentTermsDays int    `toml:"payment_terms_days"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `toml:"level"`  // trace, debug, info, warn, error
	Pretty bool   `toml:"pretty"` // console writer instead of JSON
}

// OverdueSweepInterval is how often the serve loop scans for newly overdue
// invoices. Date-granular state does not need a tighter cadence.
const OverdueSweepInterval = time.Hour

// DefaultConfig returns the defaults used when no config file exists.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8432,
		},
		Storage: StorageConfig{
			Path: "ledgerline.db",
		},
		Billing: BillingConfig{
			DefaultCurrency:  "USD",
			DefaultTaxRegion: "US",
		},
		Numbering: NumberingConfig{
			Prefix:           "INV",
			PaymentTermsDays: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration: .env (if present), then the TOML file (if
// present), then environment overrides. A missing file is not an error; the
// defaults apply.
func Load(path string) (Config, error) {
	// .env is developer convenience; ignore absence.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()

	if _, err := domain.ParseCurrency(cfg.Billing.DefaultCurrency); err != nil {
		return cfg, fmt.Errorf("config billing.default_currency: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides config fields from LEDGERLINE_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("LEDGERLINE_API_HOST"); v != "" {
		c.API.Host = v
	}
	if v := os.Getenv("LEDGERLINE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}
	if v := os.Getenv("LEDGERLINE_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("LEDGERLINE_CURRENCY"); v != "" {
		c.Billing.DefaultCurrency = v
	}
	if v := os.Getenv("LEDGERLINE_TAX_REGION"); v != "" {
		c.Billing.DefaultTaxRegion = v
	}
	if v := os.Getenv("LEDGERLINE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// ListenAddr returns the host:port the API server binds to.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// TaxTable returns the configured tax table, or nil to use the built-ins.
func (c Config) TaxTable() map[string][]billing.TaxRate {
	if len(c.Billing.TaxRates) == 0 {
		return nil
	}
	return c.Billing.TaxRates
}

// CurrencyTable returns the configured conversion factors, or nil to use
// the built-ins.
func (c Config) CurrencyTable() map[domain.Currency]decimal.Decimal {
	if len(c.Billing.CurrencyFactors) == 0 {
		return nil
	}
	factors := make(map[domain.Currency]decimal.Decimal, len(c.Billing.CurrencyFactors))
	for code, factor := range c.Billing.CurrencyFactors {
		factors[domain.Currency(code)] = decimal.NewFromFloat(factor)
	}
	return factors
}

// InvoiceSettings derives the default invoice settings from the config.
func (c Config) InvoiceSettings() domain.InvoiceSettings {
	s := domain.DefaultInvoiceSettings()
	if c.Numbering.Prefix != "" {
		s.NumberPrefix = c.Numbering.Prefix
	}
	s.NumberSuffix = c.Numbering.Suffix
	if c.Numbering.PaymentTermsDays > 0 {
		s.PaymentTermsDays = c.Numbering.PaymentTermsDays
	}
	if cur, err := domain.ParseCurrency(c.Billing.DefaultCurrency); err == nil {
		s.Currency = cur
	}
	return s
}

// NewLogger builds the process logger from the log config.
func (c Config) NewLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if c.Log.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "ledgerline").Logger()
}
