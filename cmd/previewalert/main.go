package main

import (
	"fmt"
	"strings"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/notify"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Renders sample alert and summary messages to the terminal so message
// formatting can be checked without Twilio or SMTP credentials.
func main() {
	fmt.Println("🔔 ReviewPulse - Alert Preview")
	fmt.Println("==============================")

	oneStar := 1
	fiveStars := 5

	samples := []notify.Alert{
		{
			BusinessName:   "Mama's Kitchen",
			Platform:       models.PlatformGoogle,
			AuthorName:     "John D.",
			Text:           "Absolutely terrible experience. We waited 45 minutes for cold food and the staff was rude when we complained. Never coming back, and I'll make sure everyone I know hears about this.",
			Stars:          &oneStar,
			Sentiment:      models.SentimentNegative,
			RiskScore:      85,
			RiskTier:       "high",
			URL:            "http://localhost:3000/mentions/sample-1",
			SuggestedReply: "We're very sorry to hear about your experience, John. This falls well short of the standard we hold ourselves to. Please reach out so we can make this right.",
		},
		{
			BusinessName: "Mama's Kitchen",
			Platform:     models.PlatformYelp,
			AuthorName:   "Sarah L.",
			Text:         "Best laksa in town! The staff remembered our usual order and the new outdoor seating is lovely.",
			Stars:        &fiveStars,
			Sentiment:    models.SentimentPositive,
			RiskScore:    5,
			URL:          "http://localhost:3000/mentions/sample-2",
		},
		{
			BusinessName: "Mama's Kitchen",
			Platform:     models.PlatformFacebook,
			Text:         "Food was okay, a bit pricey for the portion size.",
			Sentiment:    models.SentimentNeutral,
			RiskScore:    45,
			URL:          "http://localhost:3000/mentions/sample-3",
		},
	}

	for i, a := range samples {
		fmt.Printf("\n--- Alert %d ---\n\n", i+1)
		fmt.Println(notify.RenderAlert(a))
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 40))
	fmt.Println("\n--- Daily Summary ---")
	fmt.Println()
	fmt.Println(notify.RenderSummary("Mama's Kitchen", &store.TenantSummary{
		Total:    14,
		Positive: 9,
		Neutral:  3,
		Negative: 2,
		HighRisk: 1,
		AvgStars: 4.2,
	}))
}
