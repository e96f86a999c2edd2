package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/reviewpulse/reviewpulse/internal/archive"
	"github.com/reviewpulse/reviewpulse/internal/ingest"
	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/queue"
	"github.com/reviewpulse/reviewpulse/internal/sources"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Worker executes one scrape job: fetch from the platform, archive the
// raw payload, push items through the ingest gate and reschedule the
// source. Transient fetch errors surface to the job retry machinery;
// permanent ones count as a zero-yield scrape so a broken source cannot
// wedge its queue.
type Worker struct {
	store           *store.Store
	adapters        *sources.Registry
	gate            *ingest.Gate
	archiver        archive.Archiver
	limiter         *rate.Limiter
	fetchTimeout    time.Duration
	deactivateAfter int
	log             *logrus.Entry
}

func NewWorker(st *store.Store, adapters *sources.Registry, gate *ingest.Gate,
	archiver archive.Archiver, ratePerMinute, deactivateAfter int, fetchTimeout time.Duration) *Worker {
	if ratePerMinute <= 0 {
		ratePerMinute = 10
	}
	return &Worker{
		store:           st,
		adapters:        adapters,
		gate:            gate,
		archiver:        archiver,
		// Burst of 1: a fresh window must not front-load a full
		// minute's worth of fetches on top of the steady rate.
		limiter:         rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1),
		fetchTimeout:    fetchTimeout,
		deactivateAfter: deactivateAfter,
		log:             logrus.WithField("worker", "scrape"),
	}
}

// Handle processes one scrape job.
func (w *Worker) Handle(ctx context.Context, job *queue.Job) error {
	var payload queue.ScrapePayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("bad scrape payload: %w", err)
	}

	src, err := w.store.Sources.Get(ctx, payload.SourceAccountID)
	if err != nil {
		return fmt.Errorf("load source %s: %w", payload.SourceAccountID, err)
	}
	if src == nil {
		w.log.Warnf("Source %s not found, dropping scrape job", payload.SourceAccountID)
		return nil
	}
	if !src.IsActive {
		w.log.Infof("Source %s is inactive, skipping", src.ID)
		return nil
	}

	adapter, ok := w.adapters.Lookup(src.Platform)
	if !ok {
		w.log.Errorf("No adapter for platform %s, skipping source %s", src.Platform, src.ID)
		w.finish(ctx, src, true)
		return nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	fctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	items, err := adapter.Fetch(fctx, src)
	cancel()
	if err != nil {
		if sources.IsTransient(err) {
			w.finish(ctx, src, false)
			return fmt.Errorf("fetch %s/%s: %w", src.Platform, src.ID, err)
		}
		// Permanent fetch failure counts as a zero-yield scrape.
		w.log.Warnf("Permanent fetch failure for source %s: %v", src.ID, err)
		items = nil
	}

	w.archiveRaw(ctx, src, items)

	created, err := w.gate.Ingest(ctx, src, items)
	if err != nil {
		w.finish(ctx, src, false)
		return err
	}

	w.finish(ctx, src, true)
	w.log.Infof("Scraped source %s (%s): %d items, %d new mentions",
		src.ID, src.Platform, len(items), created)
	return nil
}

// finish records the scrape outcome and re-advances the next-run marker,
// so a source stays on cadence even when its claimed sweep job fails.
func (w *Worker) finish(ctx context.Context, src *models.SourceAccount, success bool) {
	now := time.Now().UTC()
	if err := w.store.Sources.TouchScraped(ctx, src.ID, now); err != nil {
		w.log.Errorf("Failed to touch source %s: %v", src.ID, err)
	}

	next := now.Add(src.PollingInterval())
	if err := w.store.Sources.ScheduleNext(ctx, src.ID, next); err != nil {
		w.log.Errorf("Failed to reschedule source %s: %v", src.ID, err)
	}

	if success {
		if err := w.store.Sources.ResetFailures(ctx, src.ID); err != nil {
			w.log.Errorf("Failed to reset failure count for source %s: %v", src.ID, err)
		}
		return
	}

	count, err := w.store.Sources.RecordFailure(ctx, src.ID)
	if err != nil {
		w.log.Errorf("Failed to record failure for source %s: %v", src.ID, err)
		return
	}
	if w.deactivateAfter > 0 && count >= w.deactivateAfter {
		w.log.Warnf("Deactivating source %s after %d consecutive failures", src.ID, count)
		if err := w.store.Sources.Deactivate(ctx, src.ID); err != nil {
			w.log.Errorf("Failed to deactivate source %s: %v", src.ID, err)
		}
	}
}

// archiveRaw stores the normalized fetch result for audit and replay.
// Best effort: an archive failure never blocks ingestion.
func (w *Worker) archiveRaw(ctx context.Context, src *models.SourceAccount, items []sources.RawItem) {
	if len(items) == 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		w.log.Errorf("Failed to marshal raw items for source %s: %v", src.ID, err)
		return
	}
	name := fmt.Sprintf("scrapes/%s/%s/%s.json",
		src.Platform, src.ID, time.Now().UTC().Format("20060102T150405Z"))
	if err := w.archiver.Store(ctx, name, data); err != nil {
		w.log.Warnf("Failed to archive scrape for source %s: %v", src.ID, err)
	}
}
