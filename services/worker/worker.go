package worker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"jkouadio/educarriereworker/config"
	"jkouadio/educarriereworker/internal/crawler"
	"jkouadio/educarriereworker/logger"
	apperr "jkouadio/educarriereworker/pkg/errors"
	"jkouadio/educarriereworker/services/cache"
	"jkouadio/educarriereworker/services/publisher"
	"jkouadio/educarriereworker/services/storage"
)

// streamKey identifies the origin site in published stream entries
const streamKey = "educarriere"

// Worker runs crawl sessions on a cron schedule: seen-set load, crawl,
// batched store insert, and stream publication of what was new.
type Worker struct {
	ctx       context.Context
	cfg       config.Config
	storage   storage.Storage
	publisher publisher.Publisher
	cache     cache.CacheService
	cron      *cron.Cron

	delays     crawler.Delays
	windows    crawler.RetryWindows
	newFetcher func(sessionID string, log *logger.Logger) crawler.Fetcher
}

// NewWorker creates a new worker
func NewWorker(ctx context.Context, cfg config.Config, store storage.Storage, pub publisher.Publisher, cacheSvc cache.CacheService) *Worker {
	w := &Worker{
		ctx:       ctx,
		cfg:       cfg,
		storage:   store,
		publisher: pub,
		cache:     cacheSvc,
		cron:      cron.New(),
		delays:    crawler.DefaultDelays(),
		windows:   crawler.DefaultRetryWindows(),
	}
	w.newFetcher = w.renderFetcher
	return w
}

// renderFetcher builds the production render client for one session
func (w *Worker) renderFetcher(sessionID string, log *logger.Logger) crawler.Fetcher {
	client := crawler.NewRenderClient(
		w.cfg.ScraperAPIEndpoint,
		w.cfg.ScraperAPIKey,
		w.cfg.RenderWaitMs,
		w.cfg.MaxRetries,
		w.cache,
		log,
	)
	client.Windows = w.windows
	client.DebugDir = filepath.Join(w.cfg.OutputDir, "logs")
	client.SessionID = sessionID
	return client
}

// Start schedules periodic crawl sessions and runs one immediately, then
// blocks until the worker's context is cancelled.
func (w *Worker) Start() error {
	spec := "@every " + w.cfg.CrawlInterval.String()
	_, err := w.cron.AddFunc(spec, func() {
		if err := w.RunOnce(w.ctx); err != nil {
			logger.Error("Crawl session failed: %v", err)
		}
	})
	if err != nil {
		return apperr.NewConfiguration("failed to schedule crawl", err)
	}

	w.cron.Start()
	logger.Info("Crawl scheduler started (%s)", spec)

	// Run immediately so the store is populated before the first tick
	go func() {
		if err := w.RunOnce(w.ctx); err != nil {
			logger.Error("Crawl session failed: %v", err)
		}
	}()

	<-w.ctx.Done()
	w.cron.Stop()
	return nil
}

// RunOnce executes a full crawl session. Crawl-internal failures are
// contained inside the session; storage and configuration failures surface
// to the caller.
func (w *Worker) RunOnce(ctx context.Context) error {
	sessionID := time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:8]

	log, closer, err := logger.NewSession(filepath.Join(w.cfg.OutputDir, "logs"), sessionID)
	if err != nil {
		return apperr.NewConfiguration("failed to open session log", err)
	}
	defer closer.Close()

	log.Info().
		Str("base_url", w.cfg.BaseURL).
		Int("max_pages", w.cfg.MaxPages).
		Msg("Starting crawl session")

	ids, err := w.storage.ExternalIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load known offer ids")
		return err
	}
	seen := crawler.NewSeenSet(ids)
	log.Info().Int("known_offers", seen.Len()).Msg("Seen-set loaded")

	checkpoint, err := crawler.NewCheckpointWriter(w.cfg.OutputDir, sessionID)
	if err != nil {
		return apperr.NewConfiguration("failed to prepare checkpoint directory", err)
	}

	session := crawler.New(w.cfg.BaseURL, w.cfg.MaxPages, w.newFetcher(sessionID, log), seen, checkpoint, log)
	session.Delays = w.delays

	summary, postings, runErr := session.Run(ctx)
	if runErr != nil {
		log.Warn().Err(runErr).Msg("Crawl interrupted, ingesting what was collected")
	}

	// Checkpoints already bound the loss; the store insert is idempotent, so
	// a partial session is safe to commit.
	inserted, err := w.storage.UpsertAll(ctx, postings)
	if err != nil {
		log.Error().Err(err).Msg("Failed to insert new offers")
		return err
	}

	w.publishAll(log, postings)

	log.Info().
		Int("pages_scanned", summary.PagesScanned).
		Int("offers_found", summary.StubsFound).
		Int("offers_new", summary.NewOffers).
		Int("offers_degraded", summary.Degraded).
		Int("offers_skipped_seen", summary.SkippedSeen).
		Int("pages_failed", summary.FailedPages).
		Int("inserted", inserted).
		Msg("Crawl session finished")

	return runErr
}

// publishAll streams each newly discovered posting to downstream consumers.
// Publish failures are logged, never fatal to the session.
func (w *Worker) publishAll(log *logger.Logger, postings []crawler.JobPosting) {
	if w.publisher == nil {
		return
	}

	for i := range postings {
		data, err := json.Marshal(&postings[i])
		if err != nil {
			log.Error().Err(err).Str("id", postings[i].ID).Msg("Failed to marshal posting")
			continue
		}
		if err := w.publisher.Publish(streamKey, data); err != nil {
			log.Error().Err(err).Str("id", postings[i].ID).Msg("Failed to publish posting")
		}
	}

	if err := w.publisher.TrimStreams(); err != nil {
		log.Error().Err(err).Msg("Failed to trim streams")
	}
}
