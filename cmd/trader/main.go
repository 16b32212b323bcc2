package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"trendbot-go/internal/config"
	"trendbot-go/internal/engine"
	"trendbot-go/internal/exchange"
	"trendbot-go/internal/metrics"
	"trendbot-go/internal/notify"
	"trendbot-go/internal/storage"
	"trendbot-go/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	flag.Parse()

	// .env is optional; secrets can come from the real environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}

	var log zerolog.Logger
	if cfg.App.Env == "dev" {
		log = util.NewConsoleLogger(cfg.App.LogLevel)
	} else {
		log = util.NewLogger(cfg.App.LogLevel)
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := exchange.NewClient(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.Testnet, log)

	var history engine.HistoryProvider = client
	feedOpts := []exchange.Option{exchange.WithPollInterval(cfg.PollInterval())}
	if cfg.Feed.Provider == exchange.ProviderPoll {
		feedOpts = append(feedOpts, exchange.WithClient(client))
	}
	if cfg.Feed.Provider == exchange.ProviderStub {
		// Offline runs never touch the network, warm-up included.
		history = exchange.SyntheticHistory{}
	}
	feed := exchange.NewFeed(cfg.Feed.Provider, cfg.Trading.Symbols, log, feedOpts...)

	engineCfg := engine.Config{
		Symbols:               cfg.Trading.Symbols,
		CandleLookback:        cfg.Trading.CandleLookback,
		TakeProfitPct:         cfg.Trading.TakeProfitPct,
		StopLossPct:           cfg.Trading.StopLossPct,
		MinVolatilityPct:      cfg.Trading.MinVolatilityPct,
		MaxPositionsPerSymbol: cfg.Trading.MaxPositionsPerSymbol,
		OrderSizeUSD:          cfg.Trading.OrderSizeUSD,
		Leverage:              cfg.Trading.Leverage,
		MinTradeInterval:      cfg.MinTradeInterval(),
		StartingBalance:       cfg.Trading.StartingBalance,
		MaxDrawdownPct:        cfg.Risk.MaxDrawdownPct,
		RiskCooldown:          cfg.RiskCooldown(),
		Live:                  cfg.Trading.Live,
		LiveBalanceFraction:   cfg.Trading.LiveBalanceFraction,
		StatusInterval:        cfg.StatusInterval(),
		AccountSyncInterval:   cfg.AccountSyncInterval(),
	}

	opts := []engine.Option{}

	var telegram *notify.Telegram
	if cfg.Notify.TelegramToken != "" {
		telegram, err = notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram init")
		}
		opts = append(opts, engine.WithNotifier(telegram))
	} else {
		opts = append(opts, engine.WithNotifier(notify.NewLogNotifier(log)))
	}

	var recorders storage.Multi
	if cfg.Storage.TradesPath != "" {
		jsonl, err := storage.NewJSONLRecorder(cfg.Storage.TradesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open trade log")
		}
		defer jsonl.Close()
		recorders = append(recorders, jsonl)
	}
	if cfg.Storage.InfluxURL != "" {
		influx, err := storage.NewInfluxRecorder(cfg.Storage.InfluxURL, cfg.Storage.InfluxToken, cfg.Storage.InfluxOrg, cfg.Storage.InfluxBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("influxdb init")
		}
		defer influx.Close()
		recorders = append(recorders, influx)
	}
	if len(recorders) > 0 {
		opts = append(opts, engine.WithRecorder(recorders))
	}

	if cfg.Trading.Live {
		opts = append(opts, engine.WithExecutor(client), engine.WithAccountSyncer(client))
	}

	eng, err := engine.New(ctx, engineCfg, log, history, feed, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init")
	}

	if telegram != nil {
		telegram.SetStatusFunc(func() string { return eng.Snapshot().Format() })
		go telegram.Listen(ctx)
	}

	if err := eng.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("shutdown complete")
}
