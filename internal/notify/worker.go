package notify

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/queue"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Worker fans out one alert to every eligible recipient of a tenant.
// A failure for one recipient is logged and never blocks the rest; the
// job is done once every recipient has been attempted.
type Worker struct {
	store      *store.Store
	channels   Channels
	recipients *gocache.Cache
	clientURL  string
	log        *logrus.Entry
}

func NewWorker(st *store.Store, channels Channels, clientURL string) *Worker {
	return &Worker{
		store:      st,
		channels:   channels,
		recipients: gocache.New(5*time.Minute, 10*time.Minute),
		clientURL:  clientURL,
		log:        logrus.WithField("worker", "notify"),
	}
}

// Handle processes one notify job.
func (w *Worker) Handle(ctx context.Context, job *queue.Job) error {
	var payload queue.NotifyPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("bad notify payload: %w", err)
	}

	recipients, err := w.resolveRecipients(ctx, payload.TenantID)
	if err != nil {
		return fmt.Errorf("resolve recipients for tenant %s: %w", payload.TenantID, err)
	}
	if len(recipients) == 0 {
		w.log.Warnf("No alert recipients for tenant %s", payload.TenantID)
		return nil
	}

	mention, err := w.store.Mentions.Get(ctx, payload.MentionID)
	if err != nil {
		return fmt.Errorf("load mention %s: %w", payload.MentionID, err)
	}
	if mention == nil {
		w.log.Warnf("Mention %s not found, dropping notification", payload.MentionID)
		return nil
	}

	businessName := ""
	tenant, err := w.store.Tenants.Get(ctx, payload.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant %s: %w", payload.TenantID, err)
	}
	if tenant != nil {
		businessName = tenant.BusinessName
	}

	topReply, err := w.store.Replies.TopSuggestion(ctx, mention.ID)
	if err != nil {
		w.log.Warnf("Failed to load top reply for mention %s: %v", mention.ID, err)
	}

	message := RenderAlert(Alert{
		BusinessName:   businessName,
		Platform:       mention.Platform,
		AuthorName:     mention.AuthorName,
		Text:           mention.Text,
		Stars:          mention.Stars,
		Sentiment:      mention.Sentiment,
		RiskScore:      mention.RiskScore,
		RiskTier:       payload.RiskTier,
		URL:            fmt.Sprintf("%s/mentions/%s", w.clientURL, mention.ID),
		SuggestedReply: topReply,
	})

	delivered := 0
	for i := range recipients {
		user := &recipients[i]
		if err := w.channels.Deliver(ctx, user, message); err != nil {
			w.log.Errorf("Failed to notify user %s: %v", user.ID, err)
			continue
		}
		delivered++
	}

	w.log.Infof("Notified %d/%d recipients for mention %s (%s)",
		delivered, len(recipients), mention.ID, payload.Type)
	return nil
}

func (w *Worker) resolveRecipients(ctx context.Context, tenantID string) ([]models.User, error) {
	if cached, ok := w.recipients.Get(tenantID); ok {
		return cached.([]models.User), nil
	}
	users, err := w.store.Users.AlertRecipients(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	w.recipients.SetDefault(tenantID, users)
	return users, nil
}
