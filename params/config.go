package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Exchange struct {
	MatchInterval       time.Duration // how often the matching pass runs
	FluctuationInterval time.Duration // how often prices are perturbed

	// Fluctuation bounds in basis points of the reference price.
	// Rise is larger than fall so prices drift slightly upward.
	RiseBps int64
	FallBps int64

	// Seed for the fluctuation RNG. 0 seeds from the clock.
	Seed uint64
}

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Log struct {
	File  string // empty = stdout only
	Debug bool
}

type Config struct {
	Exchange Exchange
	API      API
	Log      Log
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			MatchInterval:       5 * time.Second,
			FluctuationInterval: 5 * time.Second,
			RiseBps:             12, // +0.12%
			FallBps:             4,  // -0.04%
		},
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Validate rejects configurations the drivers cannot run with
func (c Config) Validate() error {
	if c.Exchange.MatchInterval <= 0 {
		return fmt.Errorf("match interval must be positive, got %v", c.Exchange.MatchInterval)
	}
	if c.Exchange.FluctuationInterval <= 0 {
		return fmt.Errorf("fluctuation interval must be positive, got %v", c.Exchange.FluctuationInterval)
	}
	if c.Exchange.RiseBps < 0 || c.Exchange.FallBps < 0 {
		return fmt.Errorf("fluctuation bounds must be non-negative, got +%d/-%d bps", c.Exchange.RiseBps, c.Exchange.FallBps)
	}
	if c.Exchange.FallBps >= 10000 {
		return fmt.Errorf("fall bound %d bps would drive prices to zero", c.Exchange.FallBps)
	}
	if c.API.Addr == "" {
		return fmt.Errorf("api address is required")
	}
	return nil
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if ms, ok := envInt("MATCH_INTERVAL_MS"); ok && ms > 0 {
		cfg.Exchange.MatchInterval = time.Duration(ms) * time.Millisecond
	}
	if ms, ok := envInt("FLUCTUATION_INTERVAL_MS"); ok && ms > 0 {
		cfg.Exchange.FluctuationInterval = time.Duration(ms) * time.Millisecond
	}
	if bps, ok := envInt("PRICE_RISE_BPS"); ok && bps >= 0 {
		cfg.Exchange.RiseBps = bps
	}
	if bps, ok := envInt("PRICE_FALL_BPS"); ok && bps >= 0 {
		cfg.Exchange.FallBps = bps
	}
	if seed := os.Getenv("PRICE_SEED"); seed != "" {
		if v, err := strconv.ParseUint(seed, 10, 64); err == nil {
			cfg.Exchange.Seed = v
		}
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		var list []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				list = append(list, o)
			}
		}
		if len(list) > 0 {
			cfg.API.AllowedOrigins = list
		}
	}

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	if debug := os.Getenv("LOG_DEBUG"); debug != "" {
		cfg.Log.Debug = debug == "true"
	}

	return cfg
}

func envInt(key string) (int64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
