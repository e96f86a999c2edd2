package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMentionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     MentionStatus
		to       MentionStatus
		expected bool
	}{
		{"New to reviewed", StatusNew, StatusReviewed, true},
		{"New to escalated", StatusNew, StatusEscalated, true},
		{"New to archived", StatusNew, StatusArchived, true},
		{"New to replied skips review", StatusNew, StatusReplied, false},
		{"Reviewed to replied", StatusReviewed, StatusReplied, true},
		{"Reviewed to escalated", StatusReviewed, StatusEscalated, true},
		{"Reviewed back to new", StatusReviewed, StatusNew, false},
		{"Replied to escalated", StatusReplied, StatusEscalated, false},
		{"Replied to archived", StatusReplied, StatusArchived, true},
		{"Escalated to archived", StatusEscalated, StatusArchived, true},
		{"Escalated to reviewed", StatusEscalated, StatusReviewed, false},
		{"Archived is terminal", StatusArchived, StatusNew, false},
		{"Archived stays archived", StatusArchived, StatusArchived, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransition(tt.to))
		})
	}
}

func TestSourceAccount_PollingInterval(t *testing.T) {
	tests := []struct {
		name     string
		minutes  int
		expected time.Duration
	}{
		{"Half hour", 30, 30 * time.Minute},
		{"Hourly", 60, time.Hour},
		{"Zero falls back to hourly", 0, time.Hour},
		{"Negative falls back to hourly", -5, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &SourceAccount{PollingFrequencyMinutes: tt.minutes}
			assert.Equal(t, tt.expected, src.PollingInterval())
		})
	}
}
