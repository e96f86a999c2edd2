package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

type ReplyRepo struct {
	db *gorm.DB
}

// ReplaceDrafts swaps the unclaimed draft suggestions for a mention with
// a fresh set. Replacing rather than appending keeps a retried or
// re-analyzed pass from stacking duplicate drafts. Sent and dismissed
// replies are untouched.
func (r *ReplyRepo) ReplaceDrafts(ctx context.Context, mentionID string, texts []string, tone string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("mention_id = ? AND status = ? AND assigned_user_id IS NULL",
			mentionID, models.ReplyDraft).
			Delete(&models.Reply{}).Error
		if err != nil {
			return err
		}
		if len(texts) == 0 {
			return nil
		}
		now := time.Now().UTC()
		replies := make([]models.Reply, 0, len(texts))
		for _, text := range texts {
			replies = append(replies, models.Reply{
				ID:            uuid.New().String(),
				MentionID:     mentionID,
				SuggestedText: text,
				Tone:          tone,
				Status:        models.ReplyDraft,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		return tx.Create(&replies).Error
	})
}

// TopSuggestion returns the most recent draft for a mention, or "" when
// none exists.
func (r *ReplyRepo) TopSuggestion(ctx context.Context, mentionID string) (string, error) {
	var reply models.Reply
	err := r.db.WithContext(ctx).
		Where("mention_id = ? AND status = ?", mentionID, models.ReplyDraft).
		Order("created_at DESC").
		First(&reply).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return reply.SuggestedText, nil
}

func (r *ReplyRepo) ListByMention(ctx context.Context, mentionID string) ([]models.Reply, error) {
	var replies []models.Reply
	err := r.db.WithContext(ctx).
		Where("mention_id = ?", mentionID).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}
