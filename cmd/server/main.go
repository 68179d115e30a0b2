package main

import (
	"context"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog/log"

	"market-data-proxy/internal/api"
	"market-data-proxy/internal/config"
	"market-data-proxy/internal/logging"
	"market-data-proxy/internal/market"
	"market-data-proxy/internal/store"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	if cfgPath == "" {
		cfgPath = "configs/app.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	loc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Market.Timezone).Msg("load market timezone")
	}

	var st *store.Store
	var recorder market.Recorder
	var lookup market.SecurityIDLookup
	if cfg.Store.Sqlite.Path != "" {
		st, err = store.Open(cfg.Store.Sqlite.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("store error")
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Error().Err(err).Msg("store close error")
			}
		}()
		seedSecurityIDs(st, cfg.Symbols.SecurityIDs)
		recorder = st
		lookup = st
	} else {
		log.Warn().Msg("store.sqlite.path is empty; fetch log and symbol table disabled")
	}

	dhanCfg := market.DhanConfig{
		BaseURL:    cfg.Dhan.BaseURL,
		Timeout:    time.Duration(cfg.Dhan.TimeoutMs) * time.Millisecond,
		Instrument: cfg.Dhan.Instrument,
	}
	factory := func(creds market.Credentials) *market.DhanSession {
		return market.NewDhanSession(dhanCfg, creds)
	}
	registry := market.NewRegistry(market.RegistryConfig{
		TTL:         time.Duration(cfg.Dhan.SessionTTLSec) * time.Second,
		MaxSessions: cfg.Dhan.MaxSessions,
	}, factory)
	if cfg.Dhan.SessionTTLSec > 0 && cfg.Dhan.SessionSweepSpec != "" {
		sweeper, err := registry.StartSweeper(cfg.Dhan.SessionSweepSpec)
		if err != nil {
			log.Fatal().Err(err).Msg("session sweeper")
		}
		defer sweeper.Stop()
	}

	yahoo := market.NewYahooProvider(market.YahooConfig{
		BaseURL:  cfg.Yahoo.BaseURL,
		Timeout:  time.Duration(cfg.Yahoo.TimeoutMs) * time.Millisecond,
		Suffix:   cfg.Yahoo.Suffix,
		Location: loc,
	})
	svc, err := market.NewService(market.NewDhanAdapter(registry), yahoo, recorder, market.ServiceConfig{
		Location:        loc,
		SessionOpen:     cfg.Market.SessionOpen,
		SessionClose:    cfg.Market.SessionClose,
		PrimaryTimeout:  dhanCfg.Timeout,
		FallbackTimeout: time.Duration(cfg.Yahoo.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("historical service")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.New(server.WithHostPorts(addr))
	api.RegisterRoutes(h, svc, market.NewConnectionTester(registry, factory), market.NewResolver(lookup), st, cfg.Server.CORS.AllowedOrigins)

	log.Info().
		Str("addr", addr).
		Str("log_level", cfg.Log.Level).
		Strs("cors_origins", cfg.Server.CORS.AllowedOrigins).
		Msg("server starting")
	h.Spin()
}

func seedSecurityIDs(st *store.Store, ids map[string]string) {
	ctx := context.Background()
	for sym, id := range ids {
		if err := st.UpsertSecurityID(ctx, store.SecurityID{Symbol: sym, SecurityID: id, ExchangeSegment: market.DefaultExchangeSegment}); err != nil {
			log.Error().Err(err).Str("symbol", sym).Msg("seed security id")
		}
	}
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("security ids seeded")
	}
}
