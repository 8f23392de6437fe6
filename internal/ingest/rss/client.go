package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	headerUserAgent  = "User-Agent"
	maxFeedBodySize  = 10 * 1024 * 1024
	maxPageBodySize  = 5 * 1024 * 1024
	maxFeedRedirects = 10
)

var (
	errFeedStatus     = errors.New("feed fetch failed")
	errPageStatus     = errors.New("page fetch failed")
	errTooManyJumps   = errors.New("too many redirects")
	errNoPageMetadata = errors.New("no extractable page metadata")
)

// feedClient fetches and parses one feed over HTTP.
type feedClient struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

func newFeedClient(timeout time.Duration, userAgent string) *feedClient {
	return &feedClient{
		httpClient: newHTTPClient(timeout),
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxFeedRedirects {
				return errTooManyJumps
			}

			return nil
		},
	}
}

func (c *feedClient) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	req.Header.Set(headerUserAgent, c.userAgent)
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errFeedStatus, resp.StatusCode)
	}

	feed, err := c.parser.Parse(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return feed, nil
}
