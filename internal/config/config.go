package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// EnvPrefix scopes environment overrides, e.g. MINISHOP_PAYMENT__TIMEOUT=3s.
const EnvPrefix = "MINISHOP_"

type Product struct {
	SKU   string `koanf:"sku"`
	Title string `koanf:"title"`
	Price string `koanf:"price"`
	Stock int    `koanf:"stock"`
}

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Payment struct {
		CredentialPrefix string        `koanf:"credential_prefix"`
		ChargePrefix     string        `koanf:"charge_prefix"`
		Latency          time.Duration `koanf:"latency"`
		Timeout          time.Duration `koanf:"timeout"`
		Declined         []string      `koanf:"declined"`
	} `koanf:"payment"`

	Notify struct {
		Sender string `koanf:"sender"`
	} `koanf:"notify"`

	Catalog struct {
		Products []Product `koanf:"products"`
	} `koanf:"catalog"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":                  "minishop",
		"app.env":                   "dev",
		"app.http_addr":             ":8080",
		"app.log_level":             "info",
		"http.read_timeout":         "5s",
		"http.write_timeout":        "10s",
		"http.shutdown_timeout":     "10s",
		"payment.credential_prefix": "tok_",
		"payment.charge_prefix":     "ch_",
		"payment.latency":           "0s",
		"payment.timeout":           "2s",
		"notify.sender":             "orders@minishop.local",
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty)
// and MINISHOP_* environment variables, in that order.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	// 1) defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	// 2) file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// 3) environment variables override, nested with __
	// e.g. MINISHOP_APP__HTTP_ADDR, MINISHOP_PAYMENT__LATENCY
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, errors.New("payment.timeout must be positive"))
	}
	if c.Payment.Latency < 0 {
		errs = append(errs, errors.New("payment.latency must not be negative"))
	}
	if c.Payment.CredentialPrefix == "" {
		errs = append(errs, errors.New("payment.credential_prefix required"))
	}
	if c.Notify.Sender == "" {
		errs = append(errs, errors.New("notify.sender required"))
	}

	seen := make(map[string]struct{}, len(c.Catalog.Products))
	for i, p := range c.Catalog.Products {
		if p.SKU == "" {
			errs = append(errs, fmt.Errorf("catalog.products[%d].sku required", i))
			continue
		}
		if _, dup := seen[p.SKU]; dup {
			errs = append(errs, fmt.Errorf("catalog.products[%d]: duplicate sku %s", i, p.SKU))
		}
		seen[p.SKU] = struct{}{}
		price, err := decimal.NewFromString(p.Price)
		if err != nil || price.IsNegative() {
			errs = append(errs, fmt.Errorf("catalog.products[%d]: invalid price %q", i, p.Price))
		}
		if p.Stock < 0 {
			errs = append(errs, fmt.Errorf("catalog.products[%d]: negative stock", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
