package store

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"daily-losers-bot/internal/types"
)

type Config struct {
	Mode       string `yaml:"mode"`
	Production bool   `yaml:"production"`
	Alpaca     struct {
		Paper     bool   `yaml:"paper"`
		BaseURL   string `yaml:"base_url"`
		DataURL   string `yaml:"data_url"`
		Feed      string `yaml:"feed"`
		APIKey    string `yaml:"-"`
		APISecret string `yaml:"-"`
	} `yaml:"alpaca"`
	Strategy struct {
		BuyLimit            int     `yaml:"buy_limit"`
		CashReserve         float64 `yaml:"cash_reserve"`
		TargetCashFraction  float64 `yaml:"target_cash_fraction"`
		LiquidateLosers     bool    `yaml:"liquidate_losers"`
		GateOrder           string  `yaml:"gate_order"`
		StartupDelaySeconds int     `yaml:"startup_delay_seconds"`
		LosersTop           int     `yaml:"losers_top"`
		LosersFile          string  `yaml:"losers_file"`
		HistoryDays         int     `yaml:"history_days"`
		Timeframe           string  `yaml:"timeframe"`
		ArticlesPerSymbol   int     `yaml:"articles_per_symbol"`
		Timezone            string  `yaml:"timezone"`
	} `yaml:"strategy"`
	Indicators struct {
		Windows    []int   `yaml:"windows"`
		BBStdDev   float64 `yaml:"bb_stddev"`
		Oversold   float64 `yaml:"rsi_oversold"`
		Overbought float64 `yaml:"rsi_overbought"`
	} `yaml:"indicators"`
	LLM struct {
		Provider          string  `yaml:"provider"`
		Model             string  `yaml:"model"`
		MaxTokens         int     `yaml:"max_tokens"`
		Temperature       float32 `yaml:"temperature"`
		System            string  `yaml:"system"`
		RequestsPerMinute int     `yaml:"requests_per_minute"`
		APIKey            string  `yaml:"-"`
	} `yaml:"llm"`
	News struct {
		FetchFullArticle      bool `yaml:"fetch_full_article"`
		CacheMinutes          int  `yaml:"cache_minutes"`
		ScraperTimeoutSeconds int  `yaml:"scraper_timeout_seconds"`
	} `yaml:"news"`
	Recommendations struct {
		Provider          string `yaml:"provider"`
		BaseURL           string `yaml:"base_url"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
		APIKey            string `yaml:"-"`
	} `yaml:"recommendations"`
	Screener struct {
		URL               string `yaml:"url"`
		TimeoutSeconds    int    `yaml:"timeout_seconds"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"screener"`
	Notify struct {
		Slack      bool   `yaml:"slack"`
		WebhookURL string `yaml:"-"`
	} `yaml:"notify"`
	Recorder struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"recorder"`
	Schedule struct {
		Timezone   string `yaml:"timezone"`
		SaveLosers string `yaml:"save_losers"`
		Run        string `yaml:"run"`
		EOD        string `yaml:"eod"`
	} `yaml:"schedule"`
	TradeLog struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"tradelog"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Strategy.BuyLimit <= 0 {
		return fmt.Errorf("strategy.buy_limit must be positive, got %d", c.Strategy.BuyLimit)
	}
	if c.Strategy.CashReserve < 0 {
		return fmt.Errorf("strategy.cash_reserve must not be negative, got %.2f", c.Strategy.CashReserve)
	}
	if f := c.Strategy.TargetCashFraction; f <= 0 || f >= 1 {
		return fmt.Errorf("strategy.target_cash_fraction must be between 0-1, got %.2f", f)
	}
	if g := c.Strategy.GateOrder; g != "technical_first" && g != "sentiment_first" {
		return fmt.Errorf("strategy.gate_order must be 'technical_first' or 'sentiment_first', got '%s'", g)
	}
	if _, err := time.LoadLocation(c.Strategy.Timezone); err != nil {
		return fmt.Errorf("strategy.timezone: %w", err)
	}
	if len(c.Indicators.Windows) == 0 {
		return errors.New("indicators.windows cannot be empty")
	}
	for _, n := range c.Indicators.Windows {
		if n <= 0 {
			return fmt.Errorf("indicators.windows must be positive, got %d", n)
		}
	}
	if c.Indicators.Oversold >= c.Indicators.Overbought {
		return fmt.Errorf("indicators.rsi_oversold (%.1f) must be below rsi_overbought (%.1f)",
			c.Indicators.Oversold, c.Indicators.Overbought)
	}
	switch c.LLM.Provider {
	case "OPENAI", "CLAUDE", "NOOP":
	default:
		return fmt.Errorf("llm.provider must be 'OPENAI', 'CLAUDE' or 'NOOP', got '%s'", c.LLM.Provider)
	}
	switch c.Recorder.Driver {
	case "sqlite", "none":
	default:
		return fmt.Errorf("recorder.driver must be 'sqlite' or 'none', got '%s'", c.Recorder.Driver)
	}
	return nil
}

// ApplyEnv copies secrets from the environment into the config.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.Alpaca.APIKey = getenv("APCA_API_KEY_ID")
	c.Alpaca.APISecret = getenv("APCA_API_SECRET_KEY")
	if v := getenv("APCA_PAPER"); v != "" {
		c.Alpaca.Paper = v == "true" || v == "True" || v == "1"
	}
	if v := getenv("PRODUCTION"); v != "" {
		c.Production = v == "true" || v == "True" || v == "1"
	}
	if c.Production && c.Strategy.StartupDelaySeconds == 0 {
		c.Strategy.StartupDelaySeconds = 60
	}
	switch c.LLM.Provider {
	case "OPENAI":
		c.LLM.APIKey = getenv("OPENAI_API_KEY")
	case "CLAUDE":
		c.LLM.APIKey = getenv("CLAUDE_API_KEY")
	}
	c.Recommendations.APIKey = getenv("FINNHUB_API_KEY")
	c.Notify.WebhookURL = getenv("SLACK_WEBHOOK_URL")
}

// RequireSecrets reports every credential the configured providers need.
func (c *Config) RequireSecrets() error {
	var missing []error
	if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
		missing = append(missing, errors.New("APCA_API_KEY_ID and APCA_API_SECRET_KEY must be set"))
	}
	if c.LLM.Provider != "NOOP" && c.LLM.APIKey == "" {
		missing = append(missing, fmt.Errorf("API key for llm.provider %s must be set", c.LLM.Provider))
	}
	if c.Recommendations.Provider == "FINNHUB" && c.Recommendations.APIKey == "" {
		missing = append(missing, errors.New("FINNHUB_API_KEY must be set"))
	}
	if c.Notify.Slack && c.Notify.WebhookURL == "" {
		missing = append(missing, errors.New("SLACK_WEBHOOK_URL must be set when notify.slack is on"))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %w", types.ErrConfig, errors.Join(missing...))
	}
	return nil
}

// Location is the exchange time zone used for history windows.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Strategy.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Alpaca.Feed == "" {
		c.Alpaca.Feed = "iex"
	}
	if c.Strategy.BuyLimit == 0 {
		c.Strategy.BuyLimit = 8
	}
	if c.Strategy.CashReserve == 0 {
		c.Strategy.CashReserve = 1.0
	}
	if c.Strategy.TargetCashFraction == 0 {
		c.Strategy.TargetCashFraction = 0.10
	}
	if c.Strategy.GateOrder == "" {
		c.Strategy.GateOrder = "technical_first"
	}
	if c.Strategy.StartupDelaySeconds == 0 && c.Production {
		c.Strategy.StartupDelaySeconds = 60
	}
	if c.Strategy.LosersTop == 0 {
		c.Strategy.LosersTop = 100
	}
	if c.Strategy.LosersFile == "" {
		c.Strategy.LosersFile = "data/previous_day_losers.csv"
	}
	if c.Strategy.HistoryDays == 0 {
		c.Strategy.HistoryDays = 365
	}
	if c.Strategy.Timeframe == "" {
		c.Strategy.Timeframe = "1d"
	}
	if c.Strategy.ArticlesPerSymbol == 0 {
		c.Strategy.ArticlesPerSymbol = 3
	}
	if c.Strategy.Timezone == "" {
		c.Strategy.Timezone = "America/New_York"
	}
	if len(c.Indicators.Windows) == 0 {
		c.Indicators.Windows = []int{14, 30, 50, 200}
	}
	if c.Indicators.BBStdDev == 0 {
		c.Indicators.BBStdDev = 2
	}
	if c.Indicators.Oversold == 0 {
		c.Indicators.Oversold = 30
	}
	if c.Indicators.Overbought == 0 {
		c.Indicators.Overbought = 70
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "OPENAI"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-3.5-turbo"
		if c.LLM.Provider == "CLAUDE" {
			c.LLM.Model = "claude-3-5-haiku-latest"
		}
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 5
	}
	if c.LLM.RequestsPerMinute == 0 {
		c.LLM.RequestsPerMinute = 60
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 60
	}
	if c.News.ScraperTimeoutSeconds == 0 {
		c.News.ScraperTimeoutSeconds = 30
	}
	if c.Recommendations.Provider == "" {
		c.Recommendations.Provider = "FINNHUB"
	}
	if c.Recommendations.BaseURL == "" {
		c.Recommendations.BaseURL = "https://finnhub.io/api/v1"
	}
	if c.Recommendations.RequestsPerMinute == 0 {
		c.Recommendations.RequestsPerMinute = 30
	}
	if c.Screener.URL == "" {
		c.Screener.URL = "https://finance.yahoo.com/losers?offset=0&count=100"
	}
	if c.Screener.TimeoutSeconds == 0 {
		c.Screener.TimeoutSeconds = 30
	}
	if c.Screener.RequestsPerMinute == 0 {
		c.Screener.RequestsPerMinute = 120
	}
	if c.Recorder.Driver == "" {
		c.Recorder.Driver = "sqlite"
	}
	if c.Recorder.Path == "" {
		c.Recorder.Path = "data/runs.db"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = c.Strategy.Timezone
	}
	if c.Schedule.SaveLosers == "" {
		c.Schedule.SaveLosers = "0 30 16 * * 1-5"
	}
	if c.Schedule.Run == "" {
		c.Schedule.Run = "0 31 9 * * 1-5"
	}
	if c.Schedule.EOD == "" {
		c.Schedule.EOD = "0 15 16 * * 1-5"
	}
	if c.TradeLog.Dir == "" {
		c.TradeLog.Dir = "logs"
	}
}
