package storage

import (
	"context"

	"jkouadio/educarriereworker/internal/crawler"
)

// Storage represents the durable store for job postings. The crawl only
// ever inserts; existing rows are never updated or deleted.
type Storage interface {
	// ExternalIDs returns the offer ids of every stored posting, used to
	// build the seen-set at session start.
	ExternalIDs(ctx context.Context) ([]string, error)

	// UpsertAll inserts the postings that are not already present, keyed by
	// offer id, in a single transaction. Returns the number actually
	// inserted; duplicates are skipped silently.
	UpsertAll(ctx context.Context, postings []crawler.JobPosting) (int, error)

	// Close releases the underlying connections
	Close()
}
