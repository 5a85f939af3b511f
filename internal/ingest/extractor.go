package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const (
	maxTextLength = 60000
	// minTextLength is the minimum content length to accept as a valid
	// extraction. Pages returning less are likely login walls, cookie
	// walls, or empty pages.
	minTextLength = 100
	// maxRetries is the number of extraction attempts before giving up.
	maxRetries = 3
	// maxBodySize is the maximum HTTP response body size (5MB).
	maxBodySize = 5 * 1024 * 1024
)

// Extractor fetches web pages and pulls out readable content.
type Extractor struct {
	client     *http.Client
	retryDelay time.Duration
}

// NewExtractor creates a web content extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryDelay: 2 * time.Second,
	}
}

// Extract fetches url and returns the page title and normalized main text,
// retrying transient failures with backoff.
func (e *Extractor) Extract(ctx context.Context, url string) (title, text string, err error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * e.retryDelay
			select {
			case <-ctx.Done():
				return "", "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		title, text, err = e.doExtract(ctx, url)
		if err == nil {
			return title, text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
	}
	return "", "", fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

func (e *Extractor) doExtract(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}

	// Use a realistic browser User-Agent to avoid being blocked by sites.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}

	parsedURL, _ := nurl.Parse(url)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", "", fmt.Errorf("readability: %w", err)
	}

	text := normalizeText(article.TextContent)

	if utf8.RuneCountInString(text) < minTextLength {
		return "", "", fmt.Errorf("extracted content too short (%d chars), possibly blocked or empty page", utf8.RuneCountInString(text))
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		runes := []rune(text)
		text = string(runes[:maxTextLength]) + "\n... [truncated]"
	}

	return strings.TrimSpace(article.Title), text, nil
}

var (
	multiSpace   = regexp.MustCompile(`[ \t]+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
