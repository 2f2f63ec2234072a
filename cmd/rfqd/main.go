package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/aggregation"
	"github.com/Layer-V/otc-rfq/core"
	"github.com/Layer-V/otc-rfq/fill"
	"github.com/Layer-V/otc-rfq/internal/config"
	"github.com/Layer-V/otc-rfq/mmperf"
	"github.com/Layer-V/otc-rfq/pricing"
	"github.com/Layer-V/otc-rfq/ranking"
	"github.com/Layer-V/otc-rfq/storage"
	"github.com/Layer-V/otc-rfq/types"
	"github.com/Layer-V/otc-rfq/venue"
)

const version = "v1.2"

func main() {
	// ═══════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("version", version).Msg("OTC RFQ engine starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// LAYER 1: STORAGE
	// ═══════════════════════════════════════════════════════════════════════════

	var eventStore storage.EventStore
	var mmRepo mmperf.Repository

	db, err := storage.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		log.Warn().Err(err).Msg("Database unavailable, falling back to in-memory stores")
		eventStore = storage.NewMemoryEventStore()
		mmRepo = mmperf.NewMemoryRepository()
	} else {
		gormStore, err := storage.NewGormEventStore(db)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event store")
		}
		eventStore = gormStore
		mmRepo = storage.NewGormMmRepository(db)
	}
	sink := storage.NewSink(eventStore)

	// ═══════════════════════════════════════════════════════════════════════════
	// LAYER 2: REFERENCE PRICES
	// ═══════════════════════════════════════════════════════════════════════════

	var providers []pricing.Provider
	if cfg.ClobAPIURL != "" {
		providers = append(providers, pricing.NewClobMidProvider(cfg.ClobAPIURL, 3*time.Second))
	}
	theoretical := pricing.NewTheoreticalProvider(map[types.Symbol]types.Price{})
	providers = append(providers, theoretical)

	if cfg.ChainRPCURL != "" && len(cfg.ChainlinkFeeds) > 0 {
		feeds := make(map[types.Symbol]common.Address, len(cfg.ChainlinkFeeds))
		for symbol, address := range cfg.ChainlinkFeeds {
			sym, err := types.NewSymbol(symbol)
			if err != nil {
				continue
			}
			feeds[sym] = common.HexToAddress(address)
		}
		chainlink, err := pricing.DialChainlinkProvider(cfg.ChainRPCURL, feeds)
		if err != nil {
			log.Warn().Err(err).Msg("Chainlink provider unavailable")
		} else {
			providers = append(providers, chainlink)
			log.Info().Int("feeds", len(feeds)).Msg("Chainlink provider initialized")
		}
	}

	referenceChain := pricing.NewFallbackProvider(providers...)
	bounds := pricing.NewBoundsValidator(cfg.Bounds, referenceChain)

	// ═══════════════════════════════════════════════════════════════════════════
	// LAYER 3: VENUES
	// ═══════════════════════════════════════════════════════════════════════════

	registry := venue.NewRegistry()
	for _, endpoint := range cfg.Venues {
		venueType, err := types.ParseVenueType(endpoint.Type)
		if err != nil {
			log.Warn().Str("venue", endpoint.ID).Str("type", endpoint.Type).Msg("Unknown venue type, skipping")
			continue
		}

		var adapter venue.Adapter
		switch endpoint.Transport {
		case "ws":
			adapter = venue.NewWSAdapter(types.VenueID(endpoint.ID), endpoint.URL, endpoint.TimeoutMs, types.DefaultSettlement())
		default:
			adapter = venue.NewHTTPAdapter(types.VenueID(endpoint.ID), endpoint.URL, endpoint.APIKey, endpoint.TimeoutMs, types.DefaultSettlement())
		}

		venueConfig := venue.DefaultConfig()
		venueConfig.TimeoutMs = endpoint.TimeoutMs
		registry.Register(adapter, venueType, venueConfig)
	}
	if registry.Size() == 0 {
		log.Warn().Msg("No venues configured")
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// LAYER 4: ENGINE
	// ═══════════════════════════════════════════════════════════════════════════

	var rankStrategy ranking.Strategy
	if cfg.RankingStrategy == "weighted" {
		rankStrategy = ranking.NewWeightedScore()
	} else {
		rankStrategy = ranking.NewBestPrice()
	}

	var fillStrategy fill.Strategy
	if cfg.FillStrategy == "pro_rata" {
		fillStrategy = fill.NewProRata()
	} else {
		fillStrategy = fill.NewBestPriceCascade()
	}

	aggregator := aggregation.NewEngine(registry, rankStrategy, aggregation.Config{
		OverallTimeout:  cfg.OverallTimeout,
		PerVenueTimeout: cfg.PerVenueTimeout,
		MinQuotes:       cfg.MinQuotes,
		MaxQuotes:       cfg.MaxQuotes,
	})
	aggregator.SetEventSink(sink)

	tracker := mmperf.NewTracker(mmRepo, cfg.MmWindowDays)

	serviceConfig := core.DefaultConfig()
	serviceConfig.ExecutionTimeout = cfg.ExecutionTimeout
	serviceConfig.MaxExecutionRetries = cfg.MaxExecutionRetries

	service := core.NewService(registry, aggregator, bounds, rankStrategy, fillStrategy, tracker, sink, serviceConfig)

	sweeper := core.NewSweeper(service, cfg.SweepInterval)
	sweeper.Start()

	// Periodic venue health polling and MM history trimming.
	stopCh := make(chan struct{})
	go func() {
		healthTicker := time.NewTicker(30 * time.Second)
		trimTicker := time.NewTicker(cfg.MmTrimInterval)
		defer healthTicker.Stop()
		defer trimTicker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-healthTicker.C:
				registry.PollHealth(context.Background())
			case <-trimTicker.C:
				if _, err := tracker.TrimOldEvents(context.Background()); err != nil {
					log.Error().Err(err).Msg("Trim failed")
				}
			}
		}
	}()

	log.Info().
		Str("ranking", rankStrategy.Name()).
		Str("fill", fillStrategy.Name()).
		Int("venues", registry.Size()).
		Msg("Engine ready")

	// ═══════════════════════════════════════════════════════════════════════════
	// SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════════════

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down")
	close(stopCh)
	sweeper.Stop()
}
