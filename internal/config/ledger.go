package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LedgerConfig holds the tunables that may change while the process runs.
type LedgerConfig struct {
	Listing    ListingConfig    `mapstructure:"listing"`
	Statements StatementsConfig `mapstructure:"statements"`
}

type ListingConfig struct {
	DefaultLimit int `mapstructure:"defaultLimit"`
	MaxLimit     int `mapstructure:"maxLimit"`
}

type StatementsConfig struct {
	CacheTTL time.Duration `mapstructure:"cacheTTL"`
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Listing: ListingConfig{
			DefaultLimit: 100,
			MaxLimit:     1000,
		},
		Statements: StatementsConfig{
			CacheTTL: 30 * time.Second,
		},
	}
}

// ClampLimit applies the listing defaults to a caller supplied limit.
func (c LedgerConfig) ClampLimit(limit int) int {
	if limit <= 0 {
		return c.Listing.DefaultLimit
	}
	if limit > c.Listing.MaxLimit {
		return c.Listing.MaxLimit
	}
	return limit
}

type LedgerConfigHolder struct {
	current atomic.Value // holds LedgerConfig
}

// NewStaticLedgerConfigHolder returns a holder that never reloads.
func NewStaticLedgerConfigHolder(cfg LedgerConfig) *LedgerConfigHolder {
	holder := &LedgerConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewLedgerConfigHolder() (*LedgerConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ledger")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/schoolbilling")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SCHOOLBILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLedgerConfig()
	v.SetDefault("ledger.listing.defaultLimit", defaults.Listing.DefaultLimit)
	v.SetDefault("ledger.listing.maxLimit", defaults.Listing.MaxLimit)
	v.SetDefault("ledger.statements.cacheTTL", defaults.Statements.CacheTTL)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeLedgerConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateLedgerConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticLedgerConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeLedgerConfig(v)
		if err != nil {
			log.Printf("[ledger-config] reload failed: %v", err)
			return
		}
		if err := validateLedgerConfig(updated); err != nil {
			log.Printf("[ledger-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[ledger-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// decodeLedgerConfig goes through AllSettings so keys missing from the file
// fall back to their defaults one by one.
func decodeLedgerConfig(v *viper.Viper) (LedgerConfig, error) {
	var root struct {
		Ledger LedgerConfig `mapstructure:"ledger"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return LedgerConfig{}, err
	}
	return root.Ledger, nil
}

func (h *LedgerConfigHolder) Get() LedgerConfig {
	if h == nil {
		return DefaultLedgerConfig()
	}
	return h.current.Load().(LedgerConfig)
}

func validateLedgerConfig(cfg LedgerConfig) error {
	if cfg.Listing.DefaultLimit < 1 {
		return errors.New("ledger.listing.defaultLimit must be positive")
	}
	if cfg.Listing.MaxLimit < cfg.Listing.DefaultLimit {
		return errors.New("ledger.listing.maxLimit must be >= defaultLimit")
	}
	if cfg.Statements.CacheTTL < 0 {
		return errors.New("ledger.statements.cacheTTL cannot be negative")
	}
	return nil
}
