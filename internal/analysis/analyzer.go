package analysis

import (
	"context"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Analysis is the signal set derived from one mention.
type Analysis struct {
	Sentiment           models.Sentiment
	Intent              string
	Topics              []string
	RiskScore           int
	ViralityProbability float64
	Confidence          float64
	Language            string
}

// Clamp forces numeric outputs into their domains regardless of what the
// analyzer returned: riskScore into [0,100], probabilities into [0,1].
func (a *Analysis) Clamp() {
	if a.RiskScore < 0 {
		a.RiskScore = 0
	}
	if a.RiskScore > 100 {
		a.RiskScore = 100
	}
	a.ViralityProbability = clamp01(a.ViralityProbability)
	a.Confidence = clamp01(a.Confidence)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Analyzer scores a mention for sentiment and risk. Implementations call
// an external AI provider; the worker falls back to the deterministic
// classifier when the call fails or returns unusable output.
type Analyzer interface {
	Analyze(ctx context.Context, text string, stars *int) (*Analysis, error)
}

// ReplyOptions steers reply generation.
type ReplyOptions struct {
	Tone         string
	MaxWords     int
	BusinessName string
	Country      string
}

// Responder drafts candidate replies to a mention.
type Responder interface {
	GenerateReplies(ctx context.Context, text string, stars *int, sentiment models.Sentiment,
		topics []string, opts ReplyOptions) ([]string, error)
}
