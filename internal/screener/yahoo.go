// Package screener finds the previous session's biggest losers.
package screener

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"daily-losers-bot/internal/api"
	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/ratelimit"
	"daily-losers-bot/internal/types"
)

const DefaultLosersURL = "https://finance.yahoo.com/losers?offset=0&count=100"

// Yahoo scrapes the day losers table, worst performer first.
type Yahoo struct {
	url     string
	timeout time.Duration
	limiter *ratelimit.Limiter
}

var _ interfaces.Screener = (*Yahoo)(nil)

func NewYahoo(pageURL string, timeout time.Duration, limiter *ratelimit.Limiter) *Yahoo {
	if pageURL == "" {
		pageURL = DefaultLosersURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Yahoo{url: pageURL, timeout: timeout, limiter: limiter}
}

func (y *Yahoo) Losers(ctx context.Context, top int) ([]string, error) {
	if top <= 0 {
		return nil, fmt.Errorf("%w: top must be positive, got %d", types.ErrInvalidParameter, top)
	}
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(y.timeout)

	var symbols []string
	seen := make(map[string]bool)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
	})

	c.OnHTML("table tbody tr", func(e *colly.HTMLElement) {
		if len(symbols) >= top {
			return
		}
		sym := symbolFromRow(e)
		if sym == "" || seen[sym] {
			return
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("losers page returned %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(y.url); err != nil {
		if scrapeErr != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrDataUnavailable, scrapeErr)
		}
		return nil, fmt.Errorf("%w: failed to visit %s: %w", types.ErrDataUnavailable, y.url, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrDataUnavailable, scrapeErr)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols found on losers page", types.ErrDataUnavailable)
	}

	logger.Info(ctx, "Scraped daily losers", "count", len(symbols), "url", y.url)
	return symbols, nil
}

// symbolFromRow prefers the quote link, then the symbol cell text.
func symbolFromRow(e *colly.HTMLElement) string {
	if href := e.ChildAttr(`a[href*="/quote/"]`, "href"); href != "" {
		if sym := symbolFromQuoteHref(href); sym != "" {
			return sym
		}
	}
	for _, sel := range []string{`td[aria-label="Symbol"]`, `span.symbol`, `td:first-child`} {
		if t := strings.TrimSpace(e.ChildText(sel)); t != "" {
			return strings.ToUpper(strings.Fields(t)[0])
		}
	}
	return ""
}

func symbolFromQuoteHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	_, rest, ok := strings.Cut(u.Path, "/quote/")
	if !ok {
		return ""
	}
	sym, _, _ := strings.Cut(rest, "/")
	sym, err = url.PathUnescape(sym)
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(sym))
}
