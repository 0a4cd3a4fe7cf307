package news

import (
	"context"
	"sync"
	"time"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/ratelimit"
	"daily-losers-bot/internal/types"
)

// Service provides per-symbol news sentiment with caching
type Service struct {
	source   interfaces.NewsSource
	scraper  *Scraper
	analyzer *Analyzer
	cache    *sentimentCache
	cfg      *ServiceConfig
}

var _ interfaces.NewsSentiment = (*Service)(nil)

// ServiceConfig configures the news sentiment service
type ServiceConfig struct {
	MaxArticles       int           // articles labeled per symbol
	CacheDuration     time.Duration // how long a verdict is reused
	ScraperTimeout    time.Duration
	FetchFullArticle  bool // scrape the article page when the feed body is short
	RequestsPerMinute int  // labeler throttle, 0 disables
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxArticles:       3,
		CacheDuration:     1 * time.Hour,
		ScraperTimeout:    30 * time.Second,
		FetchFullArticle:  true,
		RequestsPerMinute: 60,
	}
}

type sentimentCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type cacheEntry struct {
	verdict   types.SentimentVerdict
	timestamp time.Time
}

func newSentimentCache(ttl time.Duration) *sentimentCache {
	return &sentimentCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}
}

func (c *sentimentCache) get(symbol string) (types.SentimentVerdict, time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[symbol]
	if !exists {
		return types.SentimentVerdict{}, 0, false
	}
	age := c.now().Sub(entry.timestamp)
	if age > c.ttl {
		return types.SentimentVerdict{}, 0, false
	}
	return entry.verdict, age, true
}

func (c *sentimentCache) set(v types.SentimentVerdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[v.Symbol] = &cacheEntry{verdict: v, timestamp: c.now()}
}

// cleanupLoop periodically removes expired entries until close is called
func (c *sentimentCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *sentimentCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for symbol, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, symbol)
		}
	}
}

func (c *sentimentCache) close() {
	c.once.Do(func() { close(c.stop) })
}

// NewService creates a news sentiment service. The cache cleaner runs until
// Close is called.
func NewService(source interfaces.NewsSource, labeler interfaces.SentimentLabeler, cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	var limiter *ratelimit.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = ratelimit.PerMinute(cfg.RequestsPerMinute)
	}

	s := &Service{
		source:   source,
		scraper:  NewScraper(cfg.ScraperTimeout),
		analyzer: NewAnalyzer(labeler, limiter),
		cache:    newSentimentCache(cfg.CacheDuration),
		cfg:      cfg,
	}
	if cfg.CacheDuration > 0 {
		go s.cache.cleanupLoop(10 * time.Minute)
	}
	return s
}

// Sentiment returns the aggregated label for symbol, cached or fresh.
// Missing news is an error wrapping ErrDataUnavailable.
func (s *Service) Sentiment(ctx context.Context, symbol string) (types.SentimentLabel, error) {
	if v, age, ok := s.cache.get(symbol); ok {
		logger.Debug(ctx, "Using cached sentiment", "symbol", symbol, "age_minutes", age.Minutes())
		return v.Label, nil
	}

	v, err := s.fetchFreshSentiment(ctx, symbol)
	if err != nil {
		return "", err
	}
	s.cache.set(v)
	return v.Label, nil
}

func (s *Service) fetchFreshSentiment(ctx context.Context, symbol string) (types.SentimentVerdict, error) {
	articles, err := s.source.Articles(ctx, symbol, s.cfg.MaxArticles)
	if err != nil {
		return types.SentimentVerdict{}, err
	}
	if len(articles) > s.cfg.MaxArticles {
		articles = articles[:s.cfg.MaxArticles]
	}
	if s.cfg.FetchFullArticle {
		articles = s.scraper.Enrich(ctx, articles)
	}
	return s.analyzer.Analyze(ctx, symbol, articles)
}

// Close stops the cache cleaner
func (s *Service) Close() {
	s.cache.close()
}
