package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

func intPtr(v int) *int { return &v }

func TestFallback(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		stars         *int
		wantSentiment models.Sentiment
		wantRisk      int
		wantIntent    string
	}{
		{
			name:          "One star is negative regardless of text",
			text:          "great amazing wonderful",
			stars:         intPtr(1),
			wantSentiment: models.SentimentNegative,
			wantRisk:      70,
			wantIntent:    "complaint",
		},
		{
			name:          "Two stars is negative",
			text:          "",
			stars:         intPtr(2),
			wantSentiment: models.SentimentNegative,
			wantRisk:      70,
			wantIntent:    "complaint",
		},
		{
			name:          "Four stars is positive",
			text:          "terrible awful",
			stars:         intPtr(4),
			wantSentiment: models.SentimentPositive,
			wantRisk:      10,
			wantIntent:    "praise",
		},
		{
			name:          "Five stars is positive",
			text:          "",
			stars:         intPtr(5),
			wantSentiment: models.SentimentPositive,
			wantRisk:      10,
			wantIntent:    "praise",
		},
		{
			name:          "Three stars falls back to keywords, negative",
			text:          "The food was terrible and the service was awful",
			stars:         intPtr(3),
			wantSentiment: models.SentimentNegative,
			wantRisk:      60,
			wantIntent:    "complaint",
		},
		{
			name:          "No stars, positive keywords",
			text:          "Great food, excellent service, we love this place",
			stars:         nil,
			wantSentiment: models.SentimentPositive,
			wantRisk:      15,
			wantIntent:    "praise",
		},
		{
			name:          "No stars, no keywords",
			text:          "We visited on a Tuesday evening",
			stars:         nil,
			wantSentiment: models.SentimentNeutral,
			wantRisk:      30,
			wantIntent:    "feedback",
		},
		{
			name:          "Balanced keywords stay neutral",
			text:          "great location but terrible parking",
			stars:         nil,
			wantSentiment: models.SentimentNeutral,
			wantRisk:      30,
			wantIntent:    "feedback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Fallback(tt.text, tt.stars)

			assert.Equal(t, tt.wantSentiment, result.Sentiment)
			assert.Equal(t, tt.wantRisk, result.RiskScore)
			assert.Equal(t, tt.wantIntent, result.Intent)
			assert.Equal(t, 0.6, result.Confidence)
			assert.Equal(t, "en", result.Language)
			assert.NotNil(t, result.Topics)
		})
	}
}

func TestFallback_Virality(t *testing.T) {
	lowRisk := Fallback("", intPtr(5))
	assert.Equal(t, 0.1, lowRisk.ViralityProbability)

	// Fallback risk never exceeds 70, so the elevated virality tier is
	// reserved for analyzer-scored mentions.
	highestFallback := Fallback("", intPtr(1))
	assert.Equal(t, 0.1, highestFallback.ViralityProbability)
}

func TestAnalysis_Clamp(t *testing.T) {
	a := &Analysis{
		RiskScore:           150,
		ViralityProbability: 2.5,
		Confidence:          -0.3,
	}
	a.Clamp()
	assert.Equal(t, 100, a.RiskScore)
	assert.Equal(t, 1.0, a.ViralityProbability)
	assert.Equal(t, 0.0, a.Confidence)

	b := &Analysis{RiskScore: -10, ViralityProbability: 0.4, Confidence: 0.9}
	b.Clamp()
	assert.Equal(t, 0, b.RiskScore)
	assert.Equal(t, 0.4, b.ViralityProbability)
	assert.Equal(t, 0.9, b.Confidence)
}

func TestFallbackReplies(t *testing.T) {
	replies := FallbackReplies(models.SentimentNegative, "Mama's Kitchen")
	assert.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Mama's Kitchen")
	assert.Contains(t, replies[0], "apologize")

	replies = FallbackReplies(models.SentimentPositive, "")
	assert.Len(t, replies, 1)
	assert.Contains(t, replies[0], "our business")
}
