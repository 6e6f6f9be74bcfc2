package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nicholaslie90/stock-scanner/internal/config"
	"github.com/nicholaslie90/stock-scanner/internal/flow"
	"github.com/nicholaslie90/stock-scanner/internal/metrics"
	"github.com/nicholaslie90/stock-scanner/internal/notify"
	"github.com/nicholaslie90/stock-scanner/internal/provider"
	"github.com/nicholaslie90/stock-scanner/internal/rank"
	"github.com/nicholaslie90/stock-scanner/internal/report"
	"github.com/nicholaslie90/stock-scanner/internal/scan"
	"github.com/nicholaslie90/stock-scanner/internal/technical"
	"github.com/nicholaslie90/stock-scanner/internal/universe"
	"github.com/nicholaslie90/stock-scanner/internal/util"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("SCANNER_CONFIG")
	if configPath == "" {
		configPath = "internal/config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log := util.NewLogger("info")
		log.Fatal().Err(err).Msg("load config")
	}

	log := util.NewLogger(cfg.App.LogLevel)

	apiKey := os.Getenv(cfg.Provider.APIKeyEnv)
	if apiKey == "" {
		// Fatal for the run, and the only message before any fetch.
		log.Error().Str("env", cfg.Provider.APIKeyEnv).Msg("flow provider API key missing, nothing to do")
		os.Exit(1)
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	requestDelay := time.Duration(cfg.Provider.RequestDelayMs) * time.Millisecond
	timeout := time.Duration(cfg.Provider.TimeoutMs) * time.Millisecond

	flowClient := provider.NewFlowClient(apiKey, requestDelay, log,
		provider.WithFlowBaseURL(cfg.Provider.BaseURL),
		provider.WithFlowTimeout(timeout),
	)
	priceClient := provider.NewPriceClient(apiKey, log,
		provider.WithPriceBaseURL(cfg.Provider.BaseURL),
		provider.WithPriceTimeout(timeout),
	)

	screener := universe.NewScreenerClient(
		cfg.Universe.Screener.BaseURL,
		cfg.Universe.Screener.Market,
		cfg.Universe.Screener.MinClose,
		cfg.Universe.Screener.MinValueTraded,
		cfg.Universe.Screener.Limit,
	)
	source := universe.NewSource(cfg.Universe.Source, cfg.Universe.Tickers,
		cfg.Universe.FilePath, cfg.Universe.StripSuffix, screener, log)

	classifier := flow.NewClassifier(cfg.Classifier.Institutional, cfg.Classifier.Retail)
	notifier := notify.NewTelegram(
		os.Getenv(cfg.Telegram.TokenEnv),
		os.Getenv(cfg.Telegram.ChatIDEnv),
		log,
	)
	if !notifier.Enabled() {
		log.Warn().Msg("telegram credentials missing, report goes to log only")
	}

	runner := scan.NewRunner(scan.Params{
		Universe:    source,
		Flows:       flowClient,
		Prices:      priceClient,
		Locator:     flow.NewLocator(flowClient, cfg.Provider.MaxLookbackDays, log),
		Scorer:      flow.NewScorer(classifier, cfg.Scoring.TopN, cfg.Scoring.BigAccumThreshold, cfg.Scoring.SevereDistThreshold),
		Engine:      technical.NewEngine(cfg.Technical.IntradayWindow, cfg.Technical.PositionalWindow, cfg.Technical.TrendWindow),
		Ranker:      rank.NewRanker(cfg.Ranking.MinValueTraded),
		Assembler:   report.NewAssembler(cfg.Report.MaxChunkLen, cfg.Report.TopK),
		Notifier:    notifier,
		Log:         log,
		Mode:        technical.Mode(cfg.Technical.Mode),
		HistoryDays: cfg.Technical.HistoryDays,
	})

	if err := runner.Run(ctx, time.Now().UTC()); err != nil {
		log.Fatal().Err(err).Msg("scan failed")
	}
	log.Info().Msg("scan complete")
}
