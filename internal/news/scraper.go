package news

import (
	"context"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"daily-losers-bot/internal/api"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/types"
)

// Scraper fills in article bodies the news feed left empty
type Scraper struct {
	timeout time.Duration
	delay   time.Duration
}

func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{timeout: timeout, delay: 500 * time.Millisecond}
}

// Enrich fetches the page for every article whose body is too short to
// label and replaces the body when the page yields more text.
func (s *Scraper) Enrich(ctx context.Context, articles []types.Article) []types.Article {
	enriched := make([]types.Article, len(articles))
	copy(enriched, articles)

	for i := range enriched {
		if len(enriched[i].Body) >= 100 || enriched[i].URL == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if full := s.FetchArticleContent(ctx, enriched[i].URL); len(full) > len(enriched[i].Body) {
			enriched[i].Body = full
		}

		if i < len(enriched)-1 && s.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.delay):
			}
		}
	}
	return enriched
}

// FetchArticleContent returns the paragraph text of an article page, or ""
// when the page cannot be fetched.
func (s *Scraper) FetchArticleContent(ctx context.Context, articleURL string) string {
	c := colly.NewCollector()
	c.SetRequestTimeout(s.timeout)

	var paragraphs []string
	seen := false

	c.OnHTML("article, div.article-body, div.content-body, div.story-content, div.caas-body", func(e *colly.HTMLElement) {
		if seen {
			return
		}
		e.ForEach("p", func(_ int, el *colly.HTMLElement) {
			text := strings.TrimSpace(el.Text)
			if len(text) > 20 {
				paragraphs = append(paragraphs, collapse(text))
			}
		})
		seen = len(paragraphs) > 0
	})

	c.OnRequest(func(r *colly.Request) {
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Debug(ctx, "Article fetch error", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	if err := c.Visit(articleURL); err != nil {
		logger.Debug(ctx, "Failed to fetch article content", "url", articleURL, "error", err)
		return ""
	}
	c.Wait()

	return strings.Join(paragraphs, "\n\n")
}
