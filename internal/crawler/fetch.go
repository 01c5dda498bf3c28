package crawler

import (
	"context"
	"fmt"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jkouadio/educarriereworker/helpers"
	"jkouadio/educarriereworker/logger"
	apperr "jkouadio/educarriereworker/pkg/errors"
	"jkouadio/educarriereworker/services/cache"
)

// FetchError is returned when a fetch exhausts its retry budget. It carries
// the last error and the attempt count; the orchestrator treats it as "this
// page or item could not be fetched this run", never as fatal.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap returns the last underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// RetryWindows are the randomized sleep windows between fetch attempts. The
// window after a transport error is wider than after an empty body or a
// structural miss.
type RetryWindows struct {
	ShortMin time.Duration
	ShortMax time.Duration
	LongMin  time.Duration
	LongMax  time.Duration
}

// DefaultRetryWindows returns the production pacing windows.
func DefaultRetryWindows() RetryWindows {
	return RetryWindows{
		ShortMin: 4 * time.Second,
		ShortMax: 7 * time.Second,
		LongMin:  5 * time.Second,
		LongMax:  10 * time.Second,
	}
}

// RenderClient fetches pages through a JavaScript-rendering proxy with
// bounded retries and randomized backoff.
type RenderClient struct {
	Endpoint   string
	APIKey     string
	WaitMs     int
	MaxRetries int
	Windows    RetryWindows

	// DebugDir receives raw markup dumps when the structural marker is
	// missing, for offline inspection. Empty disables dumping.
	DebugDir  string
	SessionID string

	// CacheSvc blocks further requests for BlockTime after the proxy rate
	// limits us. Nil disables blocking.
	CacheSvc  cache.CacheService
	CacheKey  string
	BlockTime time.Duration

	Log *logger.Logger
	rnd *mathrand.Rand
}

// NewRenderClient creates a render client with production retry pacing.
func NewRenderClient(endpoint, apiKey string, waitMs, maxRetries int, cacheSvc cache.CacheService, log *logger.Logger) *RenderClient {
	return &RenderClient{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		WaitMs:     waitMs,
		MaxRetries: maxRetries,
		Windows:    DefaultRetryWindows(),
		CacheSvc:   cacheSvc,
		CacheKey:   "scraperapi_rate_limited",
		BlockTime:  300 * time.Second,
		Log:        log,
		rnd:        mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch retrieves the rendered markup of url, retrying on transport errors,
// empty bodies, and missing structural markers. Exhausting retries returns a
// *FetchError carrying the last failure.
func (c *RenderClient) Fetch(ctx context.Context, url, marker string) (string, error) {
	// A standing rate-limit block short-circuits the whole fetch
	if c.CacheSvc != nil && c.CacheKey != "" {
		if _, err := c.CacheSvc.Get(c.CacheKey); err == nil {
			return "", apperr.NewRateLimit(url, fmt.Sprintf("%d", int(c.BlockTime/time.Second)))
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		c.logDebug("fetching %s (attempt %d/%d)", url, attempt, c.MaxRetries)

		markup, err := helpers.FetchRendered(ctx, c.Endpoint, c.APIKey, url, c.WaitMs)
		if err != nil {
			if apperr.IsType(err, apperr.ErrorTypeRateLimit) {
				if c.CacheSvc != nil && c.CacheKey != "" {
					c.CacheSvc.Set(c.CacheKey, []byte(fmt.Sprintf("%d", int(c.BlockTime/time.Second))), c.BlockTime)
				}
				return "", err
			}
			lastErr = err
			c.logWarn("transport error for %s: %v", url, err)
			if serr := c.sleep(ctx, c.Windows.LongMin, c.Windows.LongMax); serr != nil {
				return "", serr
			}
			continue
		}

		if strings.TrimSpace(markup) == "" {
			lastErr = apperr.NewEmptyResponse(url)
			c.logWarn("empty response for %s, retrying", url)
			if serr := c.sleep(ctx, c.Windows.ShortMin, c.Windows.ShortMax); serr != nil {
				return "", serr
			}
			continue
		}

		if marker != "" && !hasMarker(markup, marker) {
			lastErr = apperr.NewStructure(url, fmt.Sprintf("expected marker %q not found", marker))
			c.logWarn("page structure not recognized for %s, retrying", url)
			c.dumpDebug(url, markup)
			if serr := c.sleep(ctx, c.Windows.ShortMin, c.Windows.ShortMax); serr != nil {
				return "", serr
			}
			continue
		}

		return markup, nil
	}

	return "", &FetchError{URL: url, Attempts: c.MaxRetries, Err: lastErr}
}

// hasMarker reports whether the markup contains the structural marker
func hasMarker(markup, marker string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	return doc.Find(marker).Length() > 0
}

var debugSlugPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// dumpDebug persists raw markup for offline inspection of structural misses
func (c *RenderClient) dumpDebug(url, markup string) {
	if c.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(c.DebugDir, 0o755); err != nil {
		c.logWarn("failed to create debug directory: %v", err)
		return
	}

	slug := strings.Trim(debugSlugPattern.ReplaceAllString(url, "_"), "_")
	if len(slug) > 80 {
		slug = slug[len(slug)-80:]
	}
	path := filepath.Join(c.DebugDir, fmt.Sprintf("debug_%s_%s.html", slug, c.SessionID))
	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		c.logWarn("failed to write debug dump: %v", err)
		return
	}
	c.logDebug("raw markup saved to %s", path)
}

func (c *RenderClient) sleep(ctx context.Context, min, max time.Duration) error {
	d := helpers.RandBetween(c.rnd, min, max)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *RenderClient) logDebug(format string, v ...interface{}) {
	if c.Log != nil {
		c.Log.Debug().Msgf(format, v...)
	}
}

func (c *RenderClient) logWarn(format string, v ...interface{}) {
	if c.Log != nil {
		c.Log.Warn().Msgf(format, v...)
	}
}
