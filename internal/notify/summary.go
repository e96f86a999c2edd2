package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Summarizer sends each active tenant a periodic digest of mention
// activity. Runs on the cron schedule configured at startup.
type Summarizer struct {
	store         *store.Store
	channels      Channels
	riskThreshold int
	window        time.Duration
	log           *logrus.Entry
}

func NewSummarizer(st *store.Store, channels Channels, riskThreshold int, window time.Duration) *Summarizer {
	return &Summarizer{
		store:         st,
		channels:      channels,
		riskThreshold: riskThreshold,
		window:        window,
		log:           logrus.WithField("worker", "summary"),
	}
}

// Run builds and delivers a digest for every tenant with recent
// mentions. Per-tenant and per-recipient failures are isolated.
func (s *Summarizer) Run(ctx context.Context) error {
	since := time.Now().UTC().Add(-s.window)

	tenantIDs, err := s.store.Mentions.ActiveTenantsSince(ctx, since)
	if err != nil {
		return err
	}
	s.log.Infof("Sending summaries for %d tenants", len(tenantIDs))

	for _, tenantID := range tenantIDs {
		if err := s.summarizeTenant(ctx, tenantID, since); err != nil {
			s.log.Errorf("Failed to summarize tenant %s: %v", tenantID, err)
		}
	}
	return nil
}

func (s *Summarizer) summarizeTenant(ctx context.Context, tenantID string, since time.Time) error {
	summary, err := s.store.Mentions.SummarySince(ctx, tenantID, since, s.riskThreshold)
	if err != nil {
		return err
	}
	if summary.Total == 0 {
		return nil
	}

	tenant, err := s.store.Tenants.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	businessName := tenantID
	if tenant != nil {
		businessName = tenant.BusinessName
	}

	recipients, err := s.store.Users.AlertRecipients(ctx, tenantID)
	if err != nil {
		return err
	}

	message := RenderSummary(businessName, summary)
	for i := range recipients {
		if err := s.channels.Deliver(ctx, &recipients[i], message); err != nil {
			s.log.Errorf("Failed to send summary to user %s: %v", recipients[i].ID, err)
		}
	}
	return nil
}
