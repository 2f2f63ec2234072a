package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/types"
)

// VenueEndpoint describes one configured venue.
type VenueEndpoint struct {
	ID        string
	Type      string // INTERNAL_MM, EXTERNAL_MM, DEX_AGGREGATOR, PROTOCOL, RFQ_PROTOCOL
	Transport string // "http" or "ws"
	URL       string
	APIKey    string
	TimeoutMs uint64
}

// Config is the process configuration, loaded from the environment.
type Config struct {
	Debug bool

	// Aggregation
	OverallTimeout  time.Duration
	PerVenueTimeout time.Duration
	MinQuotes       int
	MaxQuotes       int
	RankingStrategy string // "best_price" or "weighted"
	FillStrategy    string // "cascade" or "pro_rata"

	// Price bounds
	Bounds types.PriceBoundsConfig

	// Reference price sources
	ClobAPIURL     string
	ChainRPCURL    string
	ChainlinkFeeds map[string]string // symbol -> aggregator address

	// MM performance
	MmWindowDays     uint32
	MmMinResponsePct float64
	MmTrimInterval   time.Duration

	// Execution
	ExecutionTimeout    time.Duration
	MaxExecutionRetries int

	// Sweeper
	SweepInterval time.Duration

	// Storage
	DatabasePath string

	// Venues
	Venues []VenueEndpoint
}

// Load reads configuration from the environment with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Debug: getEnvBool("DEBUG", false),

		OverallTimeout:  getEnvDuration("AGG_OVERALL_TIMEOUT", 10*time.Second),
		PerVenueTimeout: getEnvDuration("AGG_PER_VENUE_TIMEOUT", 5*time.Second),
		MinQuotes:       getEnvInt("AGG_MIN_QUOTES", 1),
		MaxQuotes:       getEnvInt("AGG_MAX_QUOTES", 0),
		RankingStrategy: getEnv("RANKING_STRATEGY", "best_price"),
		FillStrategy:    getEnv("FILL_STRATEGY", "cascade"),

		Bounds: types.PriceBoundsConfig{
			LiquidTolerance:     getEnvDecimal("BOUNDS_LIQUID_TOLERANCE", decimal.RequireFromString("0.05")),
			SemiLiquidTolerance: getEnvDecimal("BOUNDS_SEMI_LIQUID_TOLERANCE", decimal.RequireFromString("0.075")),
			IlliquidTolerance:   getEnvDecimal("BOUNDS_ILLIQUID_TOLERANCE", decimal.RequireFromString("0.10")),
		},

		ClobAPIURL:  getEnv("CLOB_API_URL", ""),
		ChainRPCURL: getEnv("CHAIN_RPC_URL", "https://polygon-rpc.com"),

		MmWindowDays:     uint32(getEnvInt("MM_WINDOW_DAYS", 7)),
		MmMinResponsePct: getEnvFloat("MM_MIN_RESPONSE_PCT", 80.0),
		MmTrimInterval:   getEnvDuration("MM_TRIM_INTERVAL", time.Hour),

		ExecutionTimeout:    getEnvDuration("EXECUTION_TIMEOUT", 10*time.Second),
		MaxExecutionRetries: getEnvInt("EXECUTION_MAX_RETRIES", 2),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Second),

		DatabasePath: getEnv("DATABASE_PATH", "data/rfq.db"),
	}

	cfg.ChainlinkFeeds = parseFeeds(os.Getenv("CHAINLINK_FEEDS"))
	cfg.Venues = parseVenues()

	return cfg, nil
}

// parseFeeds parses "BTC/USD=0xc907...,ETH/USD=0xF9680..." into a map.
func parseFeeds(raw string) map[string]string {
	feeds := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			feeds[strings.ToUpper(parts[0])] = parts[1]
		}
	}
	return feeds
}

// parseVenues reads VENUE_1..VENUE_N entries shaped as
// "id|type|transport|url|api_key|timeout_ms" (api_key optional).
func parseVenues() []VenueEndpoint {
	var venues []VenueEndpoint
	for i := 1; ; i++ {
		raw := os.Getenv("VENUE_" + strconv.Itoa(i))
		if raw == "" {
			break
		}
		parts := strings.Split(raw, "|")
		if len(parts) < 4 {
			continue
		}
		endpoint := VenueEndpoint{
			ID:        parts[0],
			Type:      parts[1],
			Transport: parts[2],
			URL:       parts[3],
			TimeoutMs: 5000,
		}
		if len(parts) > 4 {
			endpoint.APIKey = parts[4]
		}
		if len(parts) > 5 {
			if ms, err := strconv.ParseUint(parts[5], 10, 64); err == nil && ms > 0 {
				endpoint.TimeoutMs = ms
			}
		}
		venues = append(venues, endpoint)
	}
	return venues
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
