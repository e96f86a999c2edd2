package scrape

import (
	"context"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/queue"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Scheduler drives per-source polling off the durable next-run marker.
// The marker is the single source of truth for when a source is due: the
// sweeper claims due sources by advancing it with a guarded update, so
// two sweepers racing on the same source enqueue at most one scrape job.
type Scheduler struct {
	store             *store.Store
	queue             *queue.Queue
	cron              *cron.Cron
	jitterMax         time.Duration
	sweepEvery        time.Duration
	maxScrapeAttempts int
	log               *logrus.Entry
}

func NewScheduler(st *store.Store, q *queue.Queue, jitterMax, sweepEvery time.Duration, maxScrapeAttempts int) *Scheduler {
	return &Scheduler{
		store:             st,
		queue:             q,
		cron:              cron.New(),
		jitterMax:         jitterMax,
		sweepEvery:        sweepEvery,
		maxScrapeAttempts: maxScrapeAttempts,
		log:               logrus.WithField("component", "scheduler"),
	}
}

// Start seeds markers for unscheduled sources and begins sweeping.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.seed(ctx); err != nil {
		return err
	}

	spec := "@every " + s.sweepEvery.String()
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.log.Errorf("Sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Infof("Scheduler started, sweeping every %s", s.sweepEvery)
	return nil
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// seed assigns a first next-run marker to every active source that does
// not already carry one. Sources with a marker keep it, so a restart
// never resets the polling cadence. The jitter spreads the initial burst
// so every source does not fire at once after a deploy.
func (s *Scheduler) seed(ctx context.Context) error {
	active, err := s.store.Sources.ListActive(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	seeded := 0
	for _, src := range active {
		if src.NextRunAt != nil && src.NextRunAt.After(now) {
			continue
		}
		var jitter time.Duration
		if s.jitterMax > 0 {
			jitter = time.Duration(rand.Int63n(int64(s.jitterMax)))
		}
		if err := s.store.Sources.ScheduleNext(ctx, src.ID, now.Add(jitter)); err != nil {
			return err
		}
		seeded++
	}

	s.log.Infof("Seeded %d of %d active sources", seeded, len(active))
	return nil
}

// Sweep claims every due source and enqueues one scrape job per claim.
func (s *Scheduler) Sweep(ctx context.Context) error {
	claimed, err := s.store.Sources.ClaimDue(ctx, time.Now().UTC(), 100)
	if err != nil {
		return err
	}

	for _, src := range claimed {
		err := s.queue.Enqueue(ctx, queue.QueueScrape,
			queue.ScrapePayload{SourceAccountID: src.ID},
			queue.WithMaxAttempts(s.maxScrapeAttempts))
		if err != nil {
			s.log.Errorf("Failed to enqueue scrape for source %s: %v", src.ID, err)
			continue
		}
		s.log.Debugf("Enqueued scrape for source %s (%s)", src.ID, src.Platform)
	}

	if len(claimed) > 0 {
		s.log.Infof("Swept %d due sources", len(claimed))
	}
	return nil
}
