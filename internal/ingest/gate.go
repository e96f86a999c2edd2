package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/queue"
	"github.com/reviewpulse/reviewpulse/internal/sources"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Gate turns adapter output into at-most-once mention creation. The
// (platform, external_id) uniqueness constraint is the dedup authority:
// a duplicate insert is a silent no-op and enqueues nothing, so the gate
// behaves identically for one writer or many concurrent ones.
type Gate struct {
	store       *store.Store
	queue       *queue.Queue
	maxAttempts int
}

// NewGate builds a gate whose analysis jobs carry the given retry
// budget; maxAnalysisAttempts <= 0 keeps the queue default.
func NewGate(st *store.Store, q *queue.Queue, maxAnalysisAttempts int) *Gate {
	return &Gate{store: st, queue: q, maxAttempts: maxAnalysisAttempts}
}

// Ingest inserts each new item and enqueues exactly one analysis job per
// created mention. The insert and its job are committed in one
// transaction, so a crash cannot leave a mention without its analysis
// job. Returns the number of mentions created.
func (g *Gate) Ingest(ctx context.Context, src *models.SourceAccount, items []sources.RawItem) (int, error) {
	created := 0

	for _, item := range items {
		if item.ExternalID == "" || strings.TrimSpace(item.Text) == "" {
			logrus.Debugf("Skipping empty item from source %s", src.ID)
			continue
		}

		publishedAt := item.PublishedAt
		if publishedAt.IsZero() {
			publishedAt = time.Now().UTC()
		}

		mention := &models.Mention{
			ID:              uuid.New().String(),
			TenantID:        src.TenantID,
			LocationID:      src.LocationID,
			SourceAccountID: src.ID,
			Platform:        src.Platform,
			ExternalID:      item.ExternalID,
			URL:             item.URL,
			AuthorName:      item.Author,
			Text:            item.Text,
			Stars:           item.Stars,
			PublishedAt:     publishedAt,
			Status:          models.StatusNew,
		}

		var inserted bool
		err := g.store.Transaction(ctx, func(tx *store.Store) error {
			ok, err := tx.Mentions.CreateIfAbsent(ctx, mention)
			if err != nil {
				return err
			}
			inserted = ok
			if !ok {
				// Already ingested; not an error, nothing to analyze.
				return nil
			}
			return g.queue.EnqueueTx(ctx, tx.DB, queue.QueueAnalysis,
				queue.AnalyzePayload{MentionID: mention.ID},
				queue.WithMaxAttempts(g.maxAttempts))
		})
		if err != nil {
			return created, fmt.Errorf("ingest %s/%s: %w", src.Platform, item.ExternalID, err)
		}
		if inserted {
			created++
		}
	}

	return created, nil
}
