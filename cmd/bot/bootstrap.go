package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"daily-losers-bot/internal/broker/alpaca"
	"daily-losers-bot/internal/broker/brokerobs"
	"daily-losers-bot/internal/engine"
	"daily-losers-bot/internal/engine/engineobs"
	"daily-losers-bot/internal/eod"
	"daily-losers-bot/internal/eod/eodobs"
	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/llm/claude"
	"daily-losers-bot/internal/llm/llmobs"
	"daily-losers-bot/internal/llm/noop"
	"daily-losers-bot/internal/llm/openai"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/news"
	"daily-losers-bot/internal/notify"
	"daily-losers-bot/internal/ratelimit"
	"daily-losers-bot/internal/recommend"
	"daily-losers-bot/internal/recorder"
	"daily-losers-bot/internal/screener"
	"daily-losers-bot/internal/store"
	"daily-losers-bot/internal/trace"
	"daily-losers-bot/internal/tradelog"
)

// app holds the wired collaborators for one command.
type app struct {
	cfg      *store.Config
	broker   interfaces.Broker
	scraper  interfaces.Screener
	engine   interfaces.Engine
	eod      interfaces.EodSummarizer
	journal  *tradelog.Log
	news     *news.Service
	recorder interfaces.Recorder
}

// initializeSystem loads .env and sets up the logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	a.journal = tradelog.New(cfg.TradeLog.Dir, cfg.Location())

	brk, md, source := initializeBroker(ctx, cfg)
	a.broker = brk
	a.scraper = initializeScraper(cfg)

	labeler := initializeLabeler(ctx, cfg)
	a.news = initializeNews(cfg, source, labeler)

	a.recorder, err = initializeRecorder(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine, err = initializeEngine(cfg, engine.Deps{
		Broker:          brk,
		MarketData:      md,
		Screener:        screener.FileScreener{Path: cfg.Strategy.LosersFile},
		News:            a.news,
		Recommendations: initializeRecommendations(cfg),
		Notifier:        initializeNotifier(ctx, cfg),
		Recorder:        a.recorder,
		TradeLog:        a.journal,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.eod = initializeEOD(cfg, a.journal)
	return a, nil
}

func (a *app) Close() {
	if a.news != nil {
		a.news.Close()
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			logger.Warn(context.Background(), "Failed to close recorder", "error", err)
		}
	}
}

// loadConfig reads the YAML file and copies secrets from the environment
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.RequireSecrets(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}

// compressOldLogs gzips journal files past the retention window
func compressOldLogs(ctx context.Context, a *app) {
	if err := a.journal.CompressOlder(a.cfg.TradeLog.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeBroker returns the Alpaca client behind the broker and market
// data middleware, plus the raw client as the news source
func initializeBroker(ctx context.Context, cfg *store.Config) (interfaces.Broker, interfaces.MarketData, interfaces.NewsSource) {
	client := alpaca.New(alpaca.Params{
		Mode:      cfg.Mode,
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		Paper:     cfg.Alpaca.Paper,
		BaseURL:   cfg.Alpaca.BaseURL,
		DataURL:   cfg.Alpaca.DataURL,
		Feed:      cfg.Alpaca.Feed,
	})

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}
	if cfg.Alpaca.Paper {
		logger.Info(ctx, "Using Alpaca paper trading")
	} else {
		logger.Warn(ctx, "Using Alpaca LIVE trading")
	}

	return brokerobs.Wrap(client), brokerobs.WrapMarketData(client), client
}

func initializeScraper(cfg *store.Config) interfaces.Screener {
	return screener.NewYahoo(
		cfg.Screener.URL,
		time.Duration(cfg.Screener.TimeoutSeconds)*time.Second,
		ratelimit.PerMinute(cfg.Screener.RequestsPerMinute),
	)
}

// initializeLabeler picks the sentiment model and wraps it with observability
func initializeLabeler(ctx context.Context, cfg *store.Config) interfaces.SentimentLabeler {
	var labeler interfaces.SentimentLabeler

	switch cfg.LLM.Provider {
	case "OPENAI":
		labeler = openai.New(cfg.LLM.APIKey, openai.Options{
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			System:      cfg.LLM.System,
		})
	case "CLAUDE":
		labeler = claude.New(cfg.LLM.APIKey, claude.Options{
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			System:      cfg.LLM.System,
		})
	default:
		labeler = noop.New()
		logger.Warn(ctx, "No LLM provider configured - every article is NEUTRAL, so the news gate rejects all buys")
	}

	return llmobs.Wrap(labeler, cfg.LLM.Provider)
}

func initializeNews(cfg *store.Config, source interfaces.NewsSource, labeler interfaces.SentimentLabeler) *news.Service {
	return news.NewService(source, labeler, &news.ServiceConfig{
		MaxArticles:       cfg.Strategy.ArticlesPerSymbol,
		CacheDuration:     time.Duration(cfg.News.CacheMinutes) * time.Minute,
		ScraperTimeout:    time.Duration(cfg.News.ScraperTimeoutSeconds) * time.Second,
		FetchFullArticle:  cfg.News.FetchFullArticle,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
}

func initializeRecommendations(cfg *store.Config) interfaces.RecommendationSource {
	return recommend.NewFinnhub(cfg.Recommendations.APIKey, recommend.Options{
		BaseURL:           cfg.Recommendations.BaseURL,
		RequestsPerMinute: cfg.Recommendations.RequestsPerMinute,
	})
}

// initializeNotifier always logs summaries and posts them to Slack when enabled
func initializeNotifier(ctx context.Context, cfg *store.Config) interfaces.Notifier {
	notifiers := notify.Multi{notify.Log{}}
	if cfg.Notify.Slack {
		notifiers = append(notifiers, notify.NewSlack(cfg.Notify.WebhookURL))
		logger.Info(ctx, "Slack notifications enabled")
	}
	return notifiers
}

func initializeRecorder(ctx context.Context, cfg *store.Config) (interfaces.Recorder, error) {
	if cfg.Recorder.Driver == "none" {
		return recorder.NewNoopRecorder(), nil
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Recorder.Path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open run recorder", err, "path", cfg.Recorder.Path)
		return nil, err
	}
	return rec, nil
}

// initializeEngine builds the engine and wraps it with observability
func initializeEngine(cfg *store.Config, deps engine.Deps) (interfaces.Engine, error) {
	eng, err := engine.New(cfg, deps)
	if err != nil {
		return nil, err
	}
	return engineobs.Wrap(eng), nil
}

// initializeEOD wraps the summarizer with observability
func initializeEOD(cfg *store.Config, journal *tradelog.Log) interfaces.EodSummarizer {
	return eodobs.Wrap(eod.NewSummarizer(journal, cfg.Location()))
}
