package analysis

import (
	"fmt"
	"strings"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Keyword lists for the deterministic classifier.
var (
	negativeWords = []string{"bad", "poor", "terrible", "awful", "disappointing", "worst", "horrible"}
	positiveWords = []string{"great", "excellent", "amazing", "wonderful", "fantastic", "best", "love"}
)

// Risk tiers assigned by the fallback classifier.
const (
	fallbackRiskLowStars  = 70
	fallbackRiskHighStars = 10
	fallbackRiskNegative  = 60
	fallbackRiskPositive  = 15
	fallbackRiskNeutral   = 30
)

// Fallback is the deterministic classifier used whenever the analyzer is
// unavailable or returns unusable output. It guarantees every mention
// reaches an analyzed state even when the AI provider is degraded.
func Fallback(text string, stars *int) *Analysis {
	sentiment := models.SentimentNeutral
	riskScore := fallbackRiskNeutral

	switch {
	case stars != nil && *stars <= 2:
		sentiment = models.SentimentNegative
		riskScore = fallbackRiskLowStars
	case stars != nil && *stars >= 4:
		sentiment = models.SentimentPositive
		riskScore = fallbackRiskHighStars
	default:
		lower := strings.ToLower(text)
		negCount := countMatches(lower, negativeWords)
		posCount := countMatches(lower, positiveWords)
		if negCount > posCount {
			sentiment = models.SentimentNegative
			riskScore = fallbackRiskNegative
		} else if posCount > negCount {
			sentiment = models.SentimentPositive
			riskScore = fallbackRiskPositive
		}
	}

	intent := "feedback"
	switch sentiment {
	case models.SentimentNegative:
		intent = "complaint"
	case models.SentimentPositive:
		intent = "praise"
	}

	virality := 0.1
	if riskScore > 70 {
		virality = 0.4
	}

	return &Analysis{
		Sentiment:           sentiment,
		Intent:              intent,
		Topics:              []string{},
		RiskScore:           riskScore,
		ViralityProbability: virality,
		Confidence:          0.6,
		Language:            "en",
	}
}

func countMatches(content string, words []string) int {
	count := 0
	for _, word := range words {
		if strings.Contains(content, word) {
			count++
		}
	}
	return count
}

// FallbackReplies returns a single canned, tone-appropriate reply for
// when the responder is unavailable, so every analyzed mention still has
// a draft suggestion.
func FallbackReplies(sentiment models.Sentiment, businessName string) []string {
	if businessName == "" {
		businessName = "our business"
	}
	switch sentiment {
	case models.SentimentPositive:
		return []string{fmt.Sprintf("Thank you so much for your kind words! We're thrilled you had a great experience at %s. We look forward to serving you again soon!", businessName)}
	case models.SentimentNegative:
		return []string{fmt.Sprintf("We sincerely apologize for your experience. This isn't the standard we strive for at %s. We'd like to make this right. Please contact us directly so we can address your concerns.", businessName)}
	default:
		return []string{fmt.Sprintf("Thank you for your feedback! We appreciate you taking the time to share your thoughts about %s. We're always working to improve our service.", businessName)}
	}
}
