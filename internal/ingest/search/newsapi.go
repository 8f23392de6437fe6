package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	newsAPIBaseURL        = "https://newsapi.org/v2/everything"
	newsAPIDefaultTimeout = 30 * time.Second
	newsAPIDefaultRPM     = 10 // free tier is 100 requests/day, keep the burn rate low
	newsAPIAuthHeader     = "X-Api-Key"
)

var (
	errNewsAPIUnexpectedStatus = errors.New("newsapi unexpected status")
	errNewsAPIBadStatus        = errors.New("newsapi bad status")
	errNewsAPIError            = errors.New("newsapi api error")
	errNewsAPIRateLimited      = errors.New("newsapi rate limited")
)

// NewsAPIProvider queries the NewsAPI /v2/everything endpoint.
type NewsAPIProvider struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	lookback    time.Duration
	enabled     bool

	// now is swapped in tests to pin the lookback window start.
	now func() time.Time
}

// NewsAPIConfig holds configuration for the NewsAPI provider.
type NewsAPIConfig struct {
	Enabled        bool
	APIKey         string
	RequestsPerMin int
	Timeout        time.Duration

	// LookbackHours sets the "from" parameter. Zero means no restriction.
	LookbackHours int
}

// NewNewsAPIProvider creates a NewsAPI provider instance.
func NewNewsAPIProvider(cfg NewsAPIConfig) *NewsAPIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = newsAPIDefaultTimeout
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = newsAPIDefaultRPM
	}

	return &NewsAPIProvider{
		baseURL: newsAPIBaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/secondsPerMinute), 1),
		lookback:    time.Duration(cfg.LookbackHours) * time.Hour,
		enabled:     cfg.Enabled && cfg.APIKey != "",
		now:         time.Now,
	}
}

func (p *NewsAPIProvider) Name() ProviderName {
	return ProviderNewsAPI
}

func (p *NewsAPIProvider) IsAvailable() bool {
	return p.enabled && p.apiKey != ""
}

// Search runs one query against NewsAPI and maps the article list.
func (p *NewsAPIProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if !p.enabled {
		return nil, errProviderDisabled
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("newsapi rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.buildSearchURL(query, maxResults), nil)
	if err != nil {
		return nil, fmt.Errorf("create newsapi request: %w", err)
	}

	req.Header.Set(newsAPIAuthHeader, p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read newsapi response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errNewsAPIRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		if err := checkNewsAPIError(body); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %d", errNewsAPIUnexpectedStatus, resp.StatusCode)
	}

	return parseNewsAPIResponse(body, maxResults)
}

func (p *NewsAPIProvider) buildSearchURL(query string, maxResults int) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")

	if p.lookback > 0 {
		params.Set("from", p.now().Add(-p.lookback).UTC().Format(time.RFC3339))
	}

	return p.baseURL + "?" + params.Encode()
}

// newsAPIResponse represents the JSON response from NewsAPI.
type newsAPIResponse struct {
	Status   string           `json:"status"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"` //nolint:tagliatelle // NewsAPI uses camelCase
}

func parseNewsAPIResponse(body []byte, maxResults int) ([]Result, error) {
	if err := checkNewsAPIError(body); err != nil {
		return nil, err
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse newsapi json: %w", err)
	}

	if resp.Status != "ok" {
		return nil, fmt.Errorf("%w: %s", errNewsAPIBadStatus, resp.Status)
	}

	results := make([]Result, 0, min(len(resp.Articles), maxResults))

	for _, article := range resp.Articles {
		if len(results) >= maxResults {
			break
		}

		if article.URL == "" {
			continue
		}

		result := Result{
			URL:         article.URL,
			Title:       article.Title,
			Description: article.Description,
			Domain:      article.Source.Name,
		}

		if article.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
				result.PublishedAt = t
			}
		}

		results = append(results, result)
	}

	return results, nil
}

type newsAPIErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func checkNewsAPIError(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] != '{' && trimmed[0] != '[' {
		errMsg := string(trimmed)
		if len(errMsg) > responseTruncateLen {
			errMsg = errMsg[:responseTruncateLen] + "..."
		}

		return fmt.Errorf("%w: %s", errNewsAPIError, errMsg)
	}

	var errResp newsAPIErrorResponse
	if err := json.Unmarshal(trimmed, &errResp); err == nil && errResp.Status == "error" {
		return fmt.Errorf("%w: %s (%s)", errNewsAPIError, errResp.Message, errResp.Code)
	}

	return nil
}
