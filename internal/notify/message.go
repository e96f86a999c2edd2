package notify

import (
	"fmt"
	"strings"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Rendering limits for alert messages.
const (
	maxMentionTextLen = 200
	maxReplyLen       = 150
)

// Alert carries everything needed to render one mention alert.
type Alert struct {
	BusinessName   string
	Platform       models.Platform
	AuthorName     string
	Text           string
	Stars          *int
	Sentiment      models.Sentiment
	RiskScore      int
	RiskTier       string
	URL            string
	SuggestedReply string
}

// RenderAlert builds the message body for one alert. The risk tier only
// changes the urgency framing, never the delivery order within a job.
func RenderAlert(a Alert) string {
	riskSymbol := "ℹ️"
	switch {
	case a.RiskTier == "high" || a.RiskScore > 70:
		riskSymbol = "🚨"
	case a.RiskScore > 40:
		riskSymbol = "⚠️"
	}

	sentimentSymbol := "😐"
	switch a.Sentiment {
	case models.SentimentPositive:
		sentimentSymbol = "😊"
	case models.SentimentNegative:
		sentimentSymbol = "😟"
	}

	author := a.AuthorName
	if author == "" {
		author = "Anonymous"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *New %s Review* %s\n\n", riskSymbol, a.Platform, sentimentSymbol)
	fmt.Fprintf(&b, "*%s*\n", a.BusinessName)
	fmt.Fprintf(&b, "From: %s\n", author)
	if a.Stars != nil {
		fmt.Fprintf(&b, "Rating: %s (%d/5)\n", starsDisplay(*a.Stars), *a.Stars)
	}
	fmt.Fprintf(&b, "Risk Score: %d/100\n\n", a.RiskScore)
	fmt.Fprintf(&b, "*Review:*\n%q\n\n", truncate(a.Text, maxMentionTextLen))
	if a.SuggestedReply != "" {
		fmt.Fprintf(&b, "*Suggested Reply:*\n%q\n\n", truncate(a.SuggestedReply, maxReplyLen))
	}
	fmt.Fprintf(&b, "View & Reply: %s", a.URL)

	return b.String()
}

// RenderSummary builds the periodic activity digest for one tenant.
func RenderSummary(businessName string, s *store.TenantSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Daily Summary: %s*\n\n", businessName)
	fmt.Fprintf(&b, "Total Mentions: %d\n", s.Total)
	fmt.Fprintf(&b, "😊 Positive: %d\n", s.Positive)
	fmt.Fprintf(&b, "😐 Neutral: %d\n", s.Neutral)
	fmt.Fprintf(&b, "😟 Negative: %d\n", s.Negative)
	if s.AvgStars > 0 {
		fmt.Fprintf(&b, "⭐ Avg Rating: %.1f/5\n", s.AvgStars)
	}
	if s.HighRisk > 0 {
		fmt.Fprintf(&b, "\n🚨 %d high-risk reviews need attention!\n", s.HighRisk)
	}
	return b.String()
}

func starsDisplay(stars int) string {
	if stars < 0 {
		stars = 0
	}
	if stars > 5 {
		stars = 5
	}
	return strings.Repeat("⭐", stars) + strings.Repeat("☆", 5-stars)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
