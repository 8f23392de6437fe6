package rss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// entryPublishedAt resolves the best available publication time for a feed
// entry. gofeed already parses the common date formats; raw strings it could
// not handle go through dateparse. A zero time means unknown.
func entryPublishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}

	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}

	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}

		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}

// stripHTML removes markup from a feed snippet, keeping text content only.
func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	var sb strings.Builder

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// pageExtractor fetches an article page and pulls a short description out of
// it. Used only when the feed entry itself carries no description.
type pageExtractor struct {
	httpClient *http.Client
	userAgent  string
	logger     *zerolog.Logger
}

func newPageExtractor(timeout time.Duration, userAgent string, logger *zerolog.Logger) *pageExtractor {
	return &pageExtractor{
		httpClient: newHTTPClient(timeout),
		userAgent:  userAgent,
		logger:     logger,
	}
}

// describe returns a snippet for the page, or "" when nothing could be
// extracted. Failures are logged at debug level: an empty snippet is a
// quality loss, not an error.
func (p *pageExtractor) describe(ctx context.Context, pageURL string) string {
	snippet, err := p.extract(ctx, pageURL)
	if err != nil {
		p.logger.Debug().Err(err).
			Str(logKeyURL, pageURL).
			Msg("page snippet extraction failed")

		return ""
	}

	return snippet
}

func (p *pageExtractor) extract(ctx context.Context, pageURL string) (string, error) {
	body, err := p.fetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	// Readability first (Firefox Reader Mode algorithm), meta tags as the
	// fallback when the page defeats it.
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil {
		if desc := firstNonEmpty(article.Excerpt, article.TextContent); desc != "" {
			return clipRunes(strings.Join(strings.Fields(desc), " "), maxSnippetLength), nil
		}
	}

	if desc := metaDescription(body); desc != "" {
		return clipRunes(desc, maxSnippetLength), nil
	}

	return "", errNoPageMetadata
}

func (p *pageExtractor) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create page request: %w", err)
	}

	req.Header.Set(headerUserAgent, p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errPageStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBodySize))
	if err != nil {
		return nil, fmt.Errorf("read page body: %w", err)
	}

	return body, nil
}

// metaDescription pulls description/og:description out of the page head.
func metaDescription(htmlBytes []byte) string {
	doc, err := html.Parse(bytes.NewReader(htmlBytes))
	if err != nil {
		return ""
	}

	var desc, ogDesc string

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			name, content := metaAttrs(n)
			switch strings.ToLower(name) {
			case "description":
				desc = content
			case "og:description":
				ogDesc = content
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	return strings.TrimSpace(firstNonEmpty(ogDesc, desc))
}

func metaAttrs(n *html.Node) (string, string) {
	var name, content string

	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			name = attr.Val
		case "content":
			content = attr.Val
		}
	}

	return name, content
}

func firstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}

	return ""
}
