package crawler

import (
	"context"
	"fmt"
	mathrand "math/rand"
	"strings"
	"time"

	"jkouadio/educarriereworker/helpers"
	"jkouadio/educarriereworker/logger"
)

// Delays are the randomized courtesy pauses toward the origin. They are a
// hard requirement of the crawl, not an optimization knob.
type Delays struct {
	ItemMin time.Duration
	ItemMax time.Duration
	PageMin time.Duration
	PageMax time.Duration
}

// DefaultDelays returns the production pacing windows.
func DefaultDelays() Delays {
	return Delays{
		ItemMin: 3 * time.Second,
		ItemMax: 7 * time.Second,
		PageMin: 8 * time.Second,
		PageMax: 15 * time.Second,
	}
}

// Summary aggregates what a crawl session did, for the final run log line.
type Summary struct {
	PagesScanned int
	StubsFound   int
	NewOffers    int
	SkippedSeen  int
	Degraded     int
	FailedPages  int
}

// Crawler drives one crawl session over the paginated listing: fetch a
// listing page, filter stubs against the seen-set, enrich each new stub from
// its detail page, checkpoint the page, move on. Pages are processed
// strictly in order, one item at a time.
type Crawler struct {
	BaseURL    string
	MaxPages   int
	Fetcher    Fetcher
	Seen       *SeenSet
	Checkpoint *CheckpointWriter
	Delays     Delays
	Log        *logger.Logger

	rnd *mathrand.Rand
}

// New creates a crawler session with production pacing.
func New(baseURL string, maxPages int, fetcher Fetcher, seen *SeenSet, checkpoint *CheckpointWriter, log *logger.Logger) *Crawler {
	return &Crawler{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		MaxPages:   maxPages,
		Fetcher:    fetcher,
		Seen:       seen,
		Checkpoint: checkpoint,
		Delays:     DefaultDelays(),
		Log:        log,
		rnd:        mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// Run crawls pages 1..MaxPages and returns the newly discovered, enriched
// offers in discovery order. Item- and page-level failures are contained and
// logged; only context cancellation propagates as an error.
func (c *Crawler) Run(ctx context.Context) (*Summary, []JobPosting, error) {
	sum := &Summary{}
	var collected []JobPosting
	zeroNewStreak := 0

	for page := 1; page <= c.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return sum, collected, err
		}

		newOnPage, err := c.crawlPage(ctx, page, sum, &collected)
		if err != nil {
			return sum, collected, err
		}
		sum.PagesScanned++

		if newOnPage == 0 {
			zeroNewStreak++
			// A cold start with no new activity on two consecutive pages
			// means the rest of the listing is stale too.
			if zeroNewStreak >= 2 && len(collected) == 0 {
				c.Log.Info().
					Int("page", page).
					Msg("No new offers on two consecutive pages, stopping crawl")
				break
			}
		} else {
			zeroNewStreak = 0
		}

		if page < c.MaxPages {
			if err := c.pause(ctx, c.Delays.PageMin, c.Delays.PageMax); err != nil {
				return sum, collected, err
			}
		}
	}

	return sum, collected, nil
}

// crawlPage processes a single listing page and returns how many new offers
// it yielded. Fetch and parse failures are logged and reported as zero new.
func (c *Crawler) crawlPage(ctx context.Context, page int, sum *Summary, collected *[]JobPosting) (int, error) {
	url := fmt.Sprintf("%s/emploi/page/emploi/%d", c.BaseURL, page)
	c.Log.Info().Int("page", page).Str("url", url).Msg("Scraping listing page")

	markup, err := c.Fetcher.Fetch(ctx, url, ListingMarker)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		sum.FailedPages++
		c.Log.Error().Err(err).Int("page", page).Msg("Listing fetch failed, skipping page")
		return 0, nil
	}

	stubs, err := ParseListing(strings.NewReader(markup))
	if err != nil {
		sum.FailedPages++
		c.Log.Error().Err(err).Int("page", page).Msg("Listing parse failed, skipping page")
		return 0, nil
	}
	sum.StubsFound += len(stubs)

	newOnPage := 0
	for i := range stubs {
		stub := stubs[i]

		if !c.Seen.IsNew(stub.ID) {
			sum.SkippedSeen++
			c.Log.Debug().Str("id", stub.ID).Str("title", stub.Title).Msg("Offer already known, skipping")
			continue
		}

		if newOnPage > 0 {
			if err := c.pause(ctx, c.Delays.ItemMin, c.Delays.ItemMax); err != nil {
				return newOnPage, err
			}
		}

		posting := stub
		if posting.URL != "" {
			c.Log.Info().Str("id", posting.ID).Str("title", posting.Title).Msg("New offer detected, fetching details")
			if err := c.enrich(ctx, &posting); err != nil {
				if ctx.Err() != nil {
					return newOnPage, ctx.Err()
				}
				// Degrade to listing-only fields rather than dropping the offer
				sum.Degraded++
				c.Log.Warn().Err(err).Str("id", posting.ID).Msg("Detail fetch failed, keeping listing fields only")
			}
		} else {
			c.Log.Info().Str("title", posting.Title).Msg("New offer without URL, ingesting listing fields only")
		}

		if posting.ID == "" {
			posting.ID = SyntheticID(posting.Title, posting.Entreprise)
			if !c.Seen.IsNew(posting.ID) {
				sum.SkippedSeen++
				c.Log.Debug().Str("id", posting.ID).Msg("Synthetic id already ingested this run, skipping")
				continue
			}
		}

		c.Seen.Add(posting.ID)
		*collected = append(*collected, posting)
		newOnPage++
		sum.NewOffers++
	}

	c.Log.Info().
		Int("page", page).
		Int("found", len(stubs)).
		Int("new", newOnPage).
		Msg("Listing page processed")

	if newOnPage > 0 && c.Checkpoint != nil {
		pageItems := (*collected)[len(*collected)-newOnPage:]
		if err := c.Checkpoint.WritePage(pageItems, page); err != nil {
			c.Log.Error().Err(err).Int("page", page).Msg("Checkpoint write failed")
		} else {
			c.Log.Info().Int("page", page).Int("items", newOnPage).Msg("Page checkpoint written")
		}
	}

	return newOnPage, nil
}

// enrich fetches and parses the offer's detail page, merging the result into
// the posting in place.
func (c *Crawler) enrich(ctx context.Context, p *JobPosting) error {
	markup, err := c.Fetcher.Fetch(ctx, p.URL, DetailMarker)
	if err != nil {
		return err
	}

	details, err := ParseDetail(strings.NewReader(markup))
	if err != nil {
		return err
	}

	p.ApplyDetail(details)
	return nil
}

func (c *Crawler) pause(ctx context.Context, min, max time.Duration) error {
	d := helpers.RandBetween(c.rnd, min, max)
	if d <= 0 {
		return ctx.Err()
	}
	c.Log.Debug().Dur("pause", d).Msg("Pausing before next request")
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
