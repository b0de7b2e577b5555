package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/meridianpay/reconciler/internal/reconciliation"
)

// Config is the full service configuration. Values come from defaults
// overlaid with an optional TOML file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Scoring ScoringConfig `toml:"scoring"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type StoreConfig struct {
	// Path is the sqlite database location; ":memory:" runs fully in-memory.
	Path string `toml:"path"`
}

// ScoringConfig mirrors reconciliation.Policy with file-friendly field types.
// Date windows are expressed in hours.
type ScoringConfig struct {
	AmountWeight    int `toml:"amount_weight"`
	CurrencyWeight  int `toml:"currency_weight"`
	ReferenceWeight int `toml:"reference_weight"`
	DateWeight      int `toml:"date_weight"`

	AutoMatchThreshold int `toml:"auto_match_threshold"`
	ReviewThreshold    int `toml:"review_threshold"`

	FullDateCreditHours int `toml:"full_date_credit_hours"`
	HalfDateCreditHours int `toml:"half_date_credit_hours"`
}

// Default returns the baseline configuration.
func Default() Config {
	p := reconciliation.DefaultPolicy()
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Store:  StoreConfig{Path: "reconciler.db"},
		Scoring: ScoringConfig{
			AmountWeight:        p.AmountWeight,
			CurrencyWeight:      p.CurrencyWeight,
			ReferenceWeight:     p.ReferenceWeight,
			DateWeight:          p.DateWeight,
			AutoMatchThreshold:  p.AutoMatchThreshold,
			ReviewThreshold:     p.ReviewThreshold,
			FullDateCreditHours: int(p.FullDateCredit / time.Hour),
			HalfDateCreditHours: int(p.HalfDateCredit / time.Hour),
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Policy().Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid scoring config: %w", err)
	}
	return cfg, nil
}

// Policy converts the scoring section into a reconciliation policy.
func (c Config) Policy() reconciliation.Policy {
	return reconciliation.Policy{
		AmountWeight:       c.Scoring.AmountWeight,
		CurrencyWeight:     c.Scoring.CurrencyWeight,
		ReferenceWeight:    c.Scoring.ReferenceWeight,
		DateWeight:         c.Scoring.DateWeight,
		AutoMatchThreshold: c.Scoring.AutoMatchThreshold,
		ReviewThreshold:    c.Scoring.ReviewThreshold,
		FullDateCredit:     time.Duration(c.Scoring.FullDateCreditHours) * time.Hour,
		HalfDateCredit:     time.Duration(c.Scoring.HalfDateCreditHours) * time.Hour,
	}
}

// Addr returns the host:port the HTTP server binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
