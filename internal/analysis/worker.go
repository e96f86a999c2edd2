package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/queue"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Worker enriches NEW mentions with AI-derived signals and drafts
// candidate replies. Analyzer and responder failures degrade to the
// deterministic fallback; only persistence failures bubble up to the job
// retry machinery.
type Worker struct {
	store         *store.Store
	queue         *queue.Queue
	analyzer      Analyzer
	responder     Responder
	riskThreshold int
	callTimeout   time.Duration
	replyMaxWords int
	log           *logrus.Entry
}

func NewWorker(st *store.Store, q *queue.Queue, analyzer Analyzer, responder Responder,
	riskThreshold int, callTimeout time.Duration, replyMaxWords int) *Worker {
	return &Worker{
		store:         st,
		queue:         q,
		analyzer:      analyzer,
		responder:     responder,
		riskThreshold: riskThreshold,
		callTimeout:   callTimeout,
		replyMaxWords: replyMaxWords,
		log:           logrus.WithField("worker", "analysis"),
	}
}

// Handle processes one analyze job.
func (w *Worker) Handle(ctx context.Context, job *queue.Job) error {
	var payload queue.AnalyzePayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("bad analyze payload: %w", err)
	}

	mention, err := w.store.Mentions.Get(ctx, payload.MentionID)
	if err != nil {
		return fmt.Errorf("load mention %s: %w", payload.MentionID, err)
	}
	if mention == nil {
		// Archived/deleted concurrently; nothing to do.
		w.log.Warnf("Mention %s not found, skipping analysis", payload.MentionID)
		return nil
	}

	result := w.analyze(ctx, mention)
	result.Clamp()

	now := time.Now().UTC()
	fields := store.AnalysisFields{
		Sentiment:           result.Sentiment,
		Intent:              result.Intent,
		Topics:              result.Topics,
		RiskScore:           result.RiskScore,
		ViralityProbability: result.ViralityProbability,
		Confidence:          result.Confidence,
		Language:            result.Language,
	}
	if err := w.store.Mentions.SaveAnalysis(ctx, mention.ID, fields, now); err != nil {
		return fmt.Errorf("persist analysis for %s: %w", mention.ID, err)
	}

	tone := "friendly"
	if result.Sentiment == models.SentimentNegative {
		tone = "apologetic"
	}

	replies := w.draftReplies(ctx, mention, result, tone)
	if err := w.store.Replies.ReplaceDrafts(ctx, mention.ID, replies, tone); err != nil {
		return fmt.Errorf("persist reply drafts for %s: %w", mention.ID, err)
	}

	if result.RiskScore >= w.riskThreshold {
		if _, err := w.store.Mentions.Escalate(ctx, mention.ID); err != nil {
			return fmt.Errorf("escalate mention %s: %w", mention.ID, err)
		}
		err := w.queue.Enqueue(ctx, queue.QueueNotifications,
			queue.NotifyPayload{
				TenantID:  mention.TenantID,
				MentionID: mention.ID,
				Type:      "high-risk",
				RiskTier:  "high",
			},
			queue.WithPriority(queue.PriorityHigh))
		if err != nil {
			return fmt.Errorf("enqueue notification for %s: %w", mention.ID, err)
		}
	}

	w.log.Infof("Analyzed mention %s: sentiment=%s risk=%d", mention.ID, result.Sentiment, result.RiskScore)
	return nil
}

func (w *Worker) analyze(ctx context.Context, mention *models.Mention) *Analysis {
	actx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()

	result, err := w.analyzer.Analyze(actx, mention.Text, mention.Stars)
	if err != nil {
		w.log.Warnf("Analyzer failed for mention %s, using fallback: %v", mention.ID, err)
		return Fallback(mention.Text, mention.Stars)
	}
	return result
}

func (w *Worker) draftReplies(ctx context.Context, mention *models.Mention, result *Analysis, tone string) []string {
	businessName := ""
	country := ""
	tenant, err := w.store.Tenants.Get(ctx, mention.TenantID)
	if err != nil {
		w.log.Warnf("Failed to load tenant %s: %v", mention.TenantID, err)
	} else if tenant != nil {
		businessName = tenant.BusinessName
		country = tenant.Country
	}

	rctx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()

	replies, err := w.responder.GenerateReplies(rctx, mention.Text, mention.Stars,
		result.Sentiment, result.Topics, ReplyOptions{
			Tone:         tone,
			MaxWords:     w.replyMaxWords,
			BusinessName: businessName,
			Country:      country,
		})
	if err != nil {
		w.log.Warnf("Responder failed for mention %s, using fallback reply: %v", mention.ID, err)
		return FallbackReplies(result.Sentiment, businessName)
	}
	if len(replies) > 3 {
		replies = replies[:3]
	}
	return replies
}

// FlagFailed flags the mention after the job's retry budget is spent, so
// an operator can follow up; the mention is never silently dropped.
// Registered as the pool's exhaustion hook.
func (w *Worker) FlagFailed(ctx context.Context, job *queue.Job) {
	var payload queue.AnalyzePayload
	if err := job.Decode(&payload); err != nil {
		w.log.Errorf("Cannot flag failed analysis, bad payload: %v", err)
		return
	}
	if err := w.store.Mentions.FlagAnalysisFailed(ctx, payload.MentionID); err != nil {
		w.log.Errorf("Failed to flag mention %s for manual review: %v", payload.MentionID, err)
		return
	}
	w.log.Warnf("Mention %s flagged for manual review after failed analysis", payload.MentionID)
}
