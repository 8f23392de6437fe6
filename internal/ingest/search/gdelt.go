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
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	gdeltBaseURL        = "https://api.gdeltproject.org/api/v2/doc/doc"
	gdeltDefaultTimeout = 30 * time.Second
	gdeltDefaultRPM     = 60
	gdeltSeenDateLayout = "20060102T150405Z"

	secondsPerMinute = 60.0

	responseTruncateLen = 200
)

var (
	errGDELTUnexpectedStatus = errors.New("gdelt unexpected status")
	errGDELTAPIError         = errors.New("gdelt api error")
	errProviderDisabled      = errors.New("provider disabled")
)

// GDELTProvider queries the GDELT DOC 2.0 API. No API key required.
type GDELTProvider struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	timespan    string
	enabled     bool
}

// GDELTConfig holds configuration for the GDELT provider.
type GDELTConfig struct {
	Enabled        bool
	RequestsPerMin int
	Timeout        time.Duration

	// LookbackHours narrows results to recent coverage via the API's
	// timespan parameter. Zero means no restriction.
	LookbackHours int
}

// NewGDELTProvider creates a GDELT provider instance.
func NewGDELTProvider(cfg GDELTConfig) *GDELTProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = gdeltDefaultTimeout
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = gdeltDefaultRPM
	}

	timespan := ""
	if cfg.LookbackHours > 0 {
		timespan = fmt.Sprintf("%dh", cfg.LookbackHours)
	}

	return &GDELTProvider{
		baseURL: gdeltBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/secondsPerMinute), 1),
		timespan:    timespan,
		enabled:     cfg.Enabled,
	}
}

func (p *GDELTProvider) Name() ProviderName {
	return ProviderGDELT
}

func (p *GDELTProvider) IsAvailable() bool {
	return p.enabled
}

// Search runs one query against GDELT and maps the article list.
func (p *GDELTProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if !p.enabled {
		return nil, errProviderDisabled
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gdelt rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.buildSearchURL(query, maxResults), nil)
	if err != nil {
		return nil, fmt.Errorf("create gdelt request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gdelt request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errGDELTUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gdelt response: %w", err)
	}

	return parseGDELTResponse(body, maxResults)
}

func (p *GDELTProvider) buildSearchURL(query string, maxResults int) string {
	params := url.Values{}
	params.Set("query", quotePhrase(query))
	params.Set("mode", "ArtList")
	params.Set("maxrecords", fmt.Sprintf("%d", maxResults))
	params.Set("format", "json")
	params.Set("sort", "DateDesc")

	if p.timespan != "" {
		params.Set("timespan", p.timespan)
	}

	return p.baseURL + "?" + params.Encode()
}

// quotePhrase wraps multi-word queries in quotes so GDELT matches the exact
// competitor name instead of ANDing the words.
func quotePhrase(query string) string {
	query = strings.TrimSpace(query)
	if !strings.Contains(query, " ") || strings.Contains(query, "\"") {
		return query
	}

	return "\"" + query + "\""
}

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

type gdeltArticle struct {
	URL       string `json:"url"`
	URLMobile string `json:"url_mobile"` //nolint:tagliatelle // GDELT API field name
	Title     string `json:"title"`
	SeenDate  string `json:"seendate"`
	Domain    string `json:"domain"`
	Language  string `json:"language"`
}

func parseGDELTResponse(body []byte, maxResults int) ([]Result, error) {
	if err := checkGDELTError(body); err != nil {
		return nil, err
	}

	var resp gdeltResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse gdelt json: %w", err)
	}

	results := make([]Result, 0, min(len(resp.Articles), maxResults))

	for _, article := range resp.Articles {
		if len(results) >= maxResults {
			break
		}

		if r := mapGDELTArticle(article); r != nil {
			results = append(results, *r)
		}
	}

	return results, nil
}

// checkGDELTError catches non-JSON bodies: GDELT reports query errors as
// plain text with status 200.
func checkGDELTError(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] != '{' && trimmed[0] != '[' {
		errMsg := string(trimmed)
		if len(errMsg) > responseTruncateLen {
			errMsg = errMsg[:responseTruncateLen] + "..."
		}

		return fmt.Errorf("%w: %s", errGDELTAPIError, errMsg)
	}

	return nil
}

func mapGDELTArticle(article gdeltArticle) *Result {
	articleURL := article.URL
	if articleURL == "" {
		articleURL = article.URLMobile
	}

	if articleURL == "" {
		return nil
	}

	result := &Result{
		URL:    articleURL,
		Title:  article.Title,
		Domain: article.Domain,
	}

	if article.SeenDate != "" {
		if t, err := time.Parse(gdeltSeenDateLayout, article.SeenDate); err == nil {
			result.PublishedAt = t
		}
	}

	return result
}
