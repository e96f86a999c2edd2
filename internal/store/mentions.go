package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

type MentionRepo struct {
	db *gorm.DB
}

// CreateIfAbsent inserts a mention unless one with the same
// (platform, external_id) already exists. The uniqueness constraint is
// the sole dedup authority, so the insert is safe under any number of
// concurrent writers. Returns whether a row was created.
func (r *MentionRepo) CreateIfAbsent(ctx context.Context, m *models.Mention) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *MentionRepo) Get(ctx context.Context, id string) (*models.Mention, error) {
	var m models.Mention
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AnalysisFields is the write-once-per-pass field group owned by the
// analysis worker. Raw fields and status are never touched through it.
type AnalysisFields struct {
	Sentiment           models.Sentiment
	Intent              string
	Topics              []string
	RiskScore           int
	ViralityProbability float64
	Confidence          float64
	Language            string
}

// SaveAnalysis persists one analysis pass and stamps processed_at. A
// repeated pass (retry or explicit re-analysis) overwrites the previous
// one and clears any failure flag.
func (r *MentionRepo) SaveAnalysis(ctx context.Context, mentionID string, f AnalysisFields, at time.Time) error {
	updates := models.Mention{
		Sentiment:           f.Sentiment,
		Intent:              f.Intent,
		Topics:              f.Topics,
		RiskScore:           f.RiskScore,
		ViralityProbability: f.ViralityProbability,
		Confidence:          f.Confidence,
		Language:            f.Language,
		ProcessedAt:         &at,
	}
	res := r.db.WithContext(ctx).Model(&models.Mention{}).
		Where("id = ?", mentionID).
		Select("sentiment", "intent", "topics", "risk_score", "virality_probability",
			"confidence", "language", "processed_at", "analysis_failed").
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mention %s not found", mentionID)
	}
	return nil
}

// FlagAnalysisFailed marks a mention for manual follow-up after analysis
// retries are exhausted. The mention stays visible to operators rather
// than being dropped from the pipeline.
func (r *MentionRepo) FlagAnalysisFailed(ctx context.Context, mentionID string) error {
	return r.db.WithContext(ctx).Model(&models.Mention{}).
		Where("id = ?", mentionID).
		Update("analysis_failed", true).Error
}

// Escalate moves a mention to ESCALATED. Only NEW and REVIEWED mentions
// are eligible; anything further along keeps its status.
func (r *MentionRepo) Escalate(ctx context.Context, mentionID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Mention{}).
		Where("id = ? AND status IN ?", mentionID,
			[]models.MentionStatus{models.StatusNew, models.StatusReviewed}).
		Update("status", models.StatusEscalated)
	return res.RowsAffected == 1, res.Error
}

// UpdateStatus applies a user/operator-driven status change, enforcing
// the state machine. The guard on the old status makes concurrent
// transitions race-safe.
func (r *MentionRepo) UpdateStatus(ctx context.Context, mentionID string, from, to models.MentionStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("invalid status transition %s -> %s", from, to)
	}
	res := r.db.WithContext(ctx).Model(&models.Mention{}).
		Where("id = ? AND status = ?", mentionID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mention %s is no longer in status %s", mentionID, from)
	}
	return nil
}

// TenantSummary aggregates mention activity for one tenant over a window.
type TenantSummary struct {
	Total    int
	Positive int
	Negative int
	Neutral  int
	HighRisk int
	AvgStars float64
}

func (r *MentionRepo) SummarySince(ctx context.Context, tenantID string, since time.Time, riskThreshold int) (*TenantSummary, error) {
	var s TenantSummary
	err := r.db.WithContext(ctx).Model(&models.Mention{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Select(`COUNT(*) AS total,
			SUM(CASE WHEN sentiment = 'POSITIVE' THEN 1 ELSE 0 END) AS positive,
			SUM(CASE WHEN sentiment = 'NEGATIVE' THEN 1 ELSE 0 END) AS negative,
			SUM(CASE WHEN sentiment = 'NEUTRAL' THEN 1 ELSE 0 END) AS neutral,
			SUM(CASE WHEN risk_score >= ? THEN 1 ELSE 0 END) AS high_risk,
			COALESCE(AVG(stars), 0) AS avg_stars`, riskThreshold).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveTenantsSince lists tenants with at least one mention ingested
// since the given time.
func (r *MentionRepo) ActiveTenantsSince(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Mention{}).
		Where("created_at >= ?", since).
		Distinct().
		Pluck("tenant_id", &ids).Error
	return ids, err
}

func (r *MentionRepo) CountByDedupKey(ctx context.Context, platform models.Platform, externalID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Mention{}).
		Where("platform = ? AND external_id = ?", platform, externalID).
		Count(&count).Error
	return count, err
}
