package feed

import (
	"context"
	"time"

	"github.com/bilgisen/newsfeed/internal/config"
	"github.com/bilgisen/newsfeed/internal/logger"
	"github.com/bilgisen/newsfeed/internal/models"
	"github.com/go-resty/resty/v2"
)

// Fetcher issues the search request and decodes the result.
type Fetcher struct {
	client *resty.Client
	url    string
	apiKey string
	parser *Parser
}

// NewFetcher builds a Fetcher for the configured search endpoint.
// Failed requests are not retried; the next refresh is the retry.
func NewFetcher(cfg *config.Config) *Fetcher {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0),
		url:    cfg.SearchURL(),
		apiKey: cfg.SearchAPIKey,
		parser: NewParser(cfg.ImageBaseURL),
	}
}

// Fetch retrieves the current search results. Transport and status failures are
// returned as *FetchError, undecodable bodies as *ParseError.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.Article, error) {
	log := logger.Component("feed")
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("api-key", f.apiKey).
		Get(f.url)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode()}
	}

	articles, err := f.parser.ParseSearchResponse(resp.Body())
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("articles", len(articles)).
		Dur("duration", time.Since(start)).
		Msg("Fetched search results")

	return articles, nil
}
