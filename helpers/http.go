package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/html/charset"

	apperr "jkouadio/educarriereworker/pkg/errors"
)

var (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36"

	// The rendering proxy holds the connection open while client-side
	// JavaScript settles, so the timeout is much larger than the wait budget.
	client = &http.Client{
		Timeout: 90 * time.Second,
	}
)

// FetchRendered requests targetURL through a ScraperAPI-compatible rendering
// proxy with JavaScript rendering enabled, converts the response body to
// UTF-8 if needed, and returns it as a string.
func FetchRendered(ctx context.Context, endpoint, apiKey, targetURL string, waitMs int) (string, error) {
	params := url.Values{}
	params.Set("api_key", apiKey)
	params.Set("url", targetURL)
	params.Set("render", "true")
	params.Set("render_js", "true")
	params.Set("wait_for", strconv.Itoa(waitMs))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", apperr.NewNetwork(targetURL, "failed to create request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", apperr.NewNetwork(targetURL, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", apperr.NewRateLimit(targetURL, resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperr.NewNetwork(targetURL, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.NewNetwork(targetURL, "failed to read response body", err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))

	// If already UTF-8, return as is
	if name == "utf-8" || name == "UTF-8" {
		return string(bodyBytes), nil
	}

	// Convert to UTF-8 if necessary
	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return "", apperr.NewNetwork(targetURL, "failed to read converted UTF-8 body", err)
	}

	return buf.String(), nil
}
