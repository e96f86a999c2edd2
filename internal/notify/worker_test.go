package notify

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/queue"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// fakeNotifier records deliveries and fails for configured addresses.
type fakeNotifier struct {
	sent    []string
	failFor map[string]bool
}

func (f *fakeNotifier) Send(ctx context.Context, address, message string) error {
	if f.failFor[address] {
		return assert.AnError
	}
	f.sent = append(f.sent, address)
	return nil
}

type notifyFixture struct {
	store    *store.Store
	whatsapp *fakeNotifier
	email    *fakeNotifier
	worker   *Worker
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	whatsapp := &fakeNotifier{failFor: map[string]bool{}}
	email := &fakeNotifier{failFor: map[string]bool{}}
	worker := NewWorker(st, Channels{WhatsApp: whatsapp, Email: email}, "http://localhost:3000")
	return &notifyFixture{store: st, whatsapp: whatsapp, email: email, worker: worker}
}

func (f *notifyFixture) seedTenant(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Tenants.Create(context.Background(), &models.Tenant{
		ID:           "tenant-1",
		BusinessName: "Mama's Kitchen",
		Country:      "MY",
	}))
}

func (f *notifyFixture) seedMention(t *testing.T) *models.Mention {
	t.Helper()
	stars := 1
	m := &models.Mention{
		ID:              uuid.New().String(),
		TenantID:        "tenant-1",
		LocationID:      "loc-1",
		SourceAccountID: "src-1",
		Platform:        models.PlatformGoogle,
		ExternalID:      uuid.New().String(),
		AuthorName:      "John D.",
		Text:            "Terrible experience, cold food.",
		Stars:           &stars,
		PublishedAt:     time.Now().UTC(),
		Status:          models.StatusEscalated,
		Sentiment:       models.SentimentNegative,
		RiskScore:       85,
	}
	created, err := f.store.Mentions.CreateIfAbsent(context.Background(), m)
	require.NoError(t, err)
	require.True(t, created)
	return m
}

func (f *notifyFixture) seedUser(t *testing.T, id, email, phone string, role models.Role) {
	t.Helper()
	require.NoError(t, f.store.Users.Create(context.Background(), &models.User{
		ID:       id,
		TenantID: "tenant-1",
		Email:    email,
		Phone:    phone,
		Role:     role,
	}))
}

func notifyJob(t *testing.T, tenantID, mentionID string) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.NotifyPayload{
		TenantID:  tenantID,
		MentionID: mentionID,
		Type:      "high-risk",
		RiskTier:  "high",
	})
	require.NoError(t, err)
	return &queue.Job{ID: uuid.New().String(), Queue: queue.QueueNotifications, Payload: string(body)}
}

func TestWorker_DeliversToAllRecipients(t *testing.T) {
	f := newNotifyFixture(t)
	f.seedTenant(t)
	m := f.seedMention(t)

	f.seedUser(t, "u1", "owner@example.com", "+60123456789", models.RoleOwner)
	f.seedUser(t, "u2", "manager@example.com", "", models.RoleManager)
	f.seedUser(t, "u3", "staff@example.com", "", models.RoleStaff)

	require.NoError(t, f.worker.Handle(context.Background(), notifyJob(t, "tenant-1", m.ID)))

	// Phone wins over email; staff is never alerted.
	assert.Equal(t, []string{"+60123456789"}, f.whatsapp.sent)
	assert.Equal(t, []string{"manager@example.com"}, f.email.sent)
}

func TestWorker_OneFailureDoesNotBlockOthers(t *testing.T) {
	f := newNotifyFixture(t)
	f.seedTenant(t)
	m := f.seedMention(t)

	f.seedUser(t, "u1", "first@example.com", "", models.RoleOwner)
	f.seedUser(t, "u2", "broken@example.com", "", models.RoleManager)
	f.seedUser(t, "u3", "third@example.com", "", models.RoleManager)
	f.email.failFor["broken@example.com"] = true

	// Every recipient was attempted, so the job must not be retried.
	require.NoError(t, f.worker.Handle(context.Background(), notifyJob(t, "tenant-1", m.ID)))

	assert.Equal(t, []string{"first@example.com", "third@example.com"}, f.email.sent)
}

func TestWorker_NoRecipientsIsNotAnError(t *testing.T) {
	f := newNotifyFixture(t)
	f.seedTenant(t)
	m := f.seedMention(t)

	require.NoError(t, f.worker.Handle(context.Background(), notifyJob(t, "tenant-1", m.ID)))
	assert.Empty(t, f.whatsapp.sent)
	assert.Empty(t, f.email.sent)
}

func TestWorker_MissingMentionDropsJob(t *testing.T) {
	f := newNotifyFixture(t)
	f.seedTenant(t)
	f.seedUser(t, "u1", "owner@example.com", "", models.RoleOwner)

	require.NoError(t, f.worker.Handle(context.Background(), notifyJob(t, "tenant-1", "gone")))
	assert.Empty(t, f.email.sent)
}

func TestChannels_DeliverPrefersWhatsApp(t *testing.T) {
	whatsapp := &fakeNotifier{failFor: map[string]bool{}}
	email := &fakeNotifier{failFor: map[string]bool{}}
	channels := Channels{WhatsApp: whatsapp, Email: email}
	ctx := context.Background()

	both := &models.User{ID: "u1", Phone: "+60123456789", Email: "u1@example.com"}
	require.NoError(t, channels.Deliver(ctx, both, "hello"))
	assert.Len(t, whatsapp.sent, 1)
	assert.Empty(t, email.sent)

	emailOnly := &models.User{ID: "u2", Email: "u2@example.com"}
	require.NoError(t, channels.Deliver(ctx, emailOnly, "hello"))
	assert.Len(t, email.sent, 1)

	unreachable := &models.User{ID: "u3"}
	assert.Error(t, channels.Deliver(ctx, unreachable, "hello"))

	// Phone set but WhatsApp not configured: falls through to nothing.
	noWhatsApp := Channels{Email: email}
	withPhone := &models.User{ID: "u4", Phone: "+60123456789", Email: "u4@example.com"}
	require.NoError(t, noWhatsApp.Deliver(ctx, withPhone, "hello"))
	assert.Len(t, email.sent, 2)
}
