package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jkouadio/educarriereworker/logger"
)

const testBaseURL = "https://emploi.example.ci"

func listingURL(page int) string {
	return fmt.Sprintf("%s/emploi/page/emploi/%d", testBaseURL, page)
}

func newTestCrawler(fetcher Fetcher, seen *SeenSet, checkpoint *CheckpointWriter, maxPages int) *Crawler {
	c := New(testBaseURL, maxPages, fetcher, seen, checkpoint, logger.ForComponent("crawler-test"))
	c.Delays = Delays{}
	return c
}

func TestCrawlerSkipsSeenAndEnrichesNew(t *testing.T) {
	oldURL := "https://emploi.example.ci/offre-100-caissier"
	newURL := "https://emploi.example.ci/offre-101-comptable"

	fetcher := newScriptedFetcher()
	fetcher.pages[listingURL(1)] = listingHTML(
		offerBlock("Offre d'emploi", "CAISSIER", oldURL, "C100", "01/06/2025", "15/06/2025"),
		offerBlock("Offre d'emploi", "COMPTABLE", newURL, "C101", "02/06/2025", "15/06/2025"),
	)
	fetcher.pages[newURL] = detailHTML("COMPTABLE", "FIRM SA", "Tenue des comptes.", "BAC+2.", "CV à contact@firm.ci")

	crawler := newTestCrawler(fetcher, NewSeenSet([]string{"100"}), nil, 1)

	sum, collected, err := crawler.Run(context.Background())
	require.NoError(t, err)

	// Only the unseen offer triggers a detail fetch
	assert.Equal(t, 0, fetcher.callCount(oldURL))
	assert.Equal(t, 1, fetcher.callCount(newURL))

	require.Len(t, collected, 1)
	assert.Equal(t, "101", collected[0].ID)
	assert.Equal(t, "COMPTABLE", collected[0].Title)
	assert.Equal(t, "FIRM SA", collected[0].Entreprise)
	assert.Equal(t, "20/06/2025", collected[0].DateLimite) // detail page wins

	assert.Equal(t, 1, sum.PagesScanned)
	assert.Equal(t, 2, sum.StubsFound)
	assert.Equal(t, 1, sum.NewOffers)
	assert.Equal(t, 1, sum.SkippedSeen)
	assert.Equal(t, 0, sum.Degraded)
}

func TestCrawlerStopsAfterTwoStalePages(t *testing.T) {
	fetcher := newScriptedFetcher()
	for page := 1; page <= 5; page++ {
		fetcher.pages[listingURL(page)] = listingHTML(
			offerBlock("Offre d'emploi", "ANCIEN", fmt.Sprintf("https://emploi.example.ci/offre-%d-ancien", page), "C1", "01/01/2025", "01/02/2025"),
		)
	}

	seen := NewSeenSet([]string{"1", "2", "3", "4", "5"})
	crawler := newTestCrawler(fetcher, seen, nil, 5)

	sum, collected, err := crawler.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, collected)
	assert.Equal(t, 2, sum.PagesScanned)
	assert.Equal(t, 0, fetcher.callCount(listingURL(3)))
}

func TestCrawlerKeepsGoingAfterEarlyActivity(t *testing.T) {
	newURL := "https://emploi.example.ci/offre-200-nouveau"

	fetcher := newScriptedFetcher()
	fetcher.pages[listingURL(1)] = listingHTML(
		offerBlock("Offre d'emploi", "NOUVEAU", newURL, "C200", "01/06/2025", "20/06/2025"),
	)
	fetcher.pages[newURL] = detailHTML("NOUVEAU", "FIRM SA", "Desc.", "Profil.", "Dossier.")
	for page := 2; page <= 4; page++ {
		fetcher.pages[listingURL(page)] = listingHTML(
			offerBlock("Offre d'emploi", "ANCIEN", fmt.Sprintf("https://emploi.example.ci/offre-99%d-ancien", page), "C9", "01/01/2025", "01/02/2025"),
		)
	}

	seen := NewSeenSet([]string{"992", "993", "994"})
	crawler := newTestCrawler(fetcher, seen, nil, 4)

	sum, collected, err := crawler.Run(context.Background())
	require.NoError(t, err)

	// Once something new was found, stale pages no longer stop the scan
	assert.Equal(t, 4, sum.PagesScanned)
	require.Len(t, collected, 1)
	assert.Equal(t, "200", collected[0].ID)
}

func TestCrawlerContainsPageFailure(t *testing.T) {
	newURL := "https://emploi.example.ci/offre-300-suivant"

	fetcher := newScriptedFetcher()
	fetcher.errs[listingURL(1)] = &FetchError{URL: listingURL(1), Attempts: 3}
	fetcher.pages[listingURL(2)] = listingHTML(
		offerBlock("Offre d'emploi", "SUIVANT", newURL, "C300", "01/06/2025", "20/06/2025"),
	)
	fetcher.pages[newURL] = detailHTML("SUIVANT", "FIRM SA", "Desc.", "Profil.", "Dossier.")

	crawler := newTestCrawler(fetcher, NewSeenSet(nil), nil, 2)

	sum, collected, err := crawler.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.FailedPages)
	assert.Equal(t, 2, sum.PagesScanned)
	require.Len(t, collected, 1)
	assert.Equal(t, "300", collected[0].ID)
}

func TestCrawlerDegradesOnDetailFailure(t *testing.T) {
	newURL := "https://emploi.example.ci/offre-400-degrade"

	fetcher := newScriptedFetcher()
	fetcher.pages[listingURL(1)] = listingHTML(
		offerBlock("Offre d'emploi", "DEGRADE", newURL, "C400", "01/06/2025", "15/06/2025"),
	)
	fetcher.errs[newURL] = &FetchError{URL: newURL, Attempts: 3}

	crawler := newTestCrawler(fetcher, NewSeenSet(nil), nil, 1)

	sum, collected, err := crawler.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Degraded)
	require.Len(t, collected, 1)
	assert.Equal(t, "400", collected[0].ID)
	assert.Equal(t, "DEGRADE", collected[0].Title)
	assert.Equal(t, "15/06/2025", collected[0].DateLimite) // listing value survives
	assert.Empty(t, collected[0].Entreprise)
}

func TestCrawlerIngestsStubWithoutURL(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.pages[listingURL(1)] = listingHTML(
		offerBlock("Avis de recrutement", "SANS LIEN", "", "C500", "01/06/2025", "20/06/2025"),
	)

	crawler := newTestCrawler(fetcher, NewSeenSet(nil), nil, 1)

	sum, collected, err := crawler.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, collected, 1)
	assert.Equal(t, SyntheticID("SANS LIEN", ""), collected[0].ID)
	assert.Equal(t, 1, sum.NewOffers)
	// No detail fetch happened, the listing page was the only request
	assert.Len(t, fetcher.calls, 1)
}

func TestCrawlerDeduplicatesSyntheticIDsWithinRun(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.pages[listingURL(1)] = listingHTML(
		offerBlock("Avis de recrutement", "DOUBLON", "", "C1", "01/06/2025", "20/06/2025"),
		offerBlock("Avis de recrutement", "DOUBLON", "", "C1", "01/06/2025", "20/06/2025"),
	)

	crawler := newTestCrawler(fetcher, NewSeenSet(nil), nil, 1)

	sum, collected, err := crawler.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, collected, 1)
	assert.Equal(t, 1, sum.NewOffers)
	assert.Equal(t, 1, sum.SkippedSeen)
}

func TestCrawlerWritesPageCheckpoints(t *testing.T) {
	outputDir := t.TempDir()
	checkpoint, err := NewCheckpointWriter(outputDir, "sess1")
	require.NoError(t, err)

	newURL := "https://emploi.example.ci/offre-600-archive"
	fetcher := newScriptedFetcher()
	fetcher.pages[listingURL(1)] = listingHTML(
		offerBlock("Offre d'emploi", "ARCHIVE", newURL, "C600", "01/06/2025", "20/06/2025"),
	)
	fetcher.pages[newURL] = detailHTML("ARCHIVE", "FIRM SA", "Desc.", "Profil.", "Dossier.")

	crawler := newTestCrawler(fetcher, NewSeenSet(nil), checkpoint, 1)

	_, collected, err := crawler.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, collected, 1)

	_, err = os.Stat(filepath.Join(outputDir, "progress", "educarriere_new_page_1_sess1.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outputDir, "progress", "educarriere_new_page_1_sess1.json"))
	assert.NoError(t, err)
}

func TestCrawlerHonorsContextCancellation(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.pages[listingURL(1)] = listingHTML(
		offerBlock("Offre d'emploi", "QUELCONQUE", "", "C1", "01/06/2025", "20/06/2025"),
	)

	crawler := newTestCrawler(fetcher, NewSeenSet(nil), nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := crawler.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
