package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

type SourceAccountRepo struct {
	db *gorm.DB
}

func (r *SourceAccountRepo) Get(ctx context.Context, id string) (*models.SourceAccount, error) {
	var src models.SourceAccount
	err := r.db.WithContext(ctx).First(&src, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (r *SourceAccountRepo) Create(ctx context.Context, src *models.SourceAccount) error {
	return r.db.WithContext(ctx).Create(src).Error
}

func (r *SourceAccountRepo) ListActive(ctx context.Context) ([]models.SourceAccount, error) {
	var sources []models.SourceAccount
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&sources).Error
	return sources, err
}

// TouchScraped advances last_scraped_at. Done after every scrape outcome,
// including permanent failures, to prevent tight retry loops on broken
// sources.
func (r *SourceAccountRepo) TouchScraped(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.SourceAccount{}).
		Where("id = ?", id).
		Update("last_scraped_at", at).Error
}

// ScheduleNext sets the durable next-run marker for a source.
func (r *SourceAccountRepo) ScheduleNext(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.SourceAccount{}).
		Where("id = ?", id).
		Update("next_run_at", at).Error
}

// ClaimDue returns active sources whose next-run marker has come due and
// advances each claimed marker by the source's polling frequency. The
// advance is guarded on the old marker value so that two sweepers racing
// on the same source claim it at most once.
func (r *SourceAccountRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.SourceAccount, error) {
	var due []models.SourceAccount
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Order("next_run_at ASC").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	var claimed []models.SourceAccount
	for _, src := range due {
		next := now.Add(src.PollingInterval())
		res := r.db.WithContext(ctx).Model(&models.SourceAccount{}).
			Where("id = ? AND next_run_at = ?", src.ID, src.NextRunAt).
			Update("next_run_at", next)
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 1 {
			claimed = append(claimed, src)
		}
	}
	return claimed, nil
}

// RecordFailure increments the consecutive-failure counter and returns
// the new count.
func (r *SourceAccountRepo) RecordFailure(ctx context.Context, id string) (int, error) {
	err := r.db.WithContext(ctx).Model(&models.SourceAccount{}).
		Where("id = ?", id).
		Update("consecutive_failures", gorm.Expr("consecutive_failures + 1")).Error
	if err != nil {
		return 0, err
	}
	var count int
	err = r.db.WithContext(ctx).Model(&models.SourceAccount{}).
		Where("id = ?", id).
		Pluck("consecutive_failures", &count).Error
	return count, err
}

func (r *SourceAccountRepo) ResetFailures(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.SourceAccount{}).
		Where("id = ?", id).
		Update("consecutive_failures", 0).Error
}

// Deactivate turns polling off for a source. Mentions already ingested
// from it are unaffected.
func (r *SourceAccountRepo) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.SourceAccount{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
