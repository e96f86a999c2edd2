package analysis

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

func completionResponder(content string) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(200, map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
}

func TestClient_Analyze(t *testing.T) {
	client := NewClient("test-key", "https://api.openai.com", "gpt-4-turbo-preview")
	httpmock.ActivateNonDefault(client.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		completionResponder(`{
			"sentiment": "negative",
			"intent": "complaint",
			"topics": ["service"],
			"riskScore": 82,
			"viralityProbability": 0.3,
			"confidence": 0.95,
			"language": "en"
		}`))

	result, err := client.Analyze(context.Background(), "awful service", nil)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, result.Sentiment)
	assert.Equal(t, "complaint", result.Intent)
	assert.Equal(t, []string{"service"}, result.Topics)
	assert.Equal(t, 82, result.RiskScore)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "en", result.Language)
}

func TestClient_AnalyzeRejectsUnknownSentiment(t *testing.T) {
	client := NewClient("test-key", "https://api.openai.com", "gpt-4-turbo-preview")
	httpmock.ActivateNonDefault(client.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		completionResponder(`{"sentiment": "MIXED", "riskScore": 50}`))

	_, err := client.Analyze(context.Background(), "text", nil)
	assert.Error(t, err)
}

func TestClient_AnalyzeDefaultsMissingFields(t *testing.T) {
	client := NewClient("test-key", "https://api.openai.com", "gpt-4-turbo-preview")
	httpmock.ActivateNonDefault(client.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		completionResponder(`{"sentiment": "NEUTRAL", "riskScore": 30}`))

	result, err := client.Analyze(context.Background(), "text", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, result.Topics)
	assert.Equal(t, "en", result.Language)
}

func TestClient_AnalyzeErrorStatus(t *testing.T) {
	client := NewClient("test-key", "https://api.openai.com", "gpt-4-turbo-preview")
	httpmock.ActivateNonDefault(client.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		httpmock.NewStringResponder(429, "rate limited"))

	_, err := client.Analyze(context.Background(), "text", nil)
	assert.Error(t, err)
}

func TestClient_GenerateReplies(t *testing.T) {
	client := NewClient("test-key", "https://api.openai.com", "gpt-4-turbo-preview")
	httpmock.ActivateNonDefault(client.client.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		completionResponder(`["We're sorry.", "Please reach out.", "We'd like to make it right.", "Extra one"]`))

	replies, err := client.GenerateReplies(context.Background(), "bad food", nil,
		models.SentimentNegative, []string{"food"}, ReplyOptions{
			Tone: "apologetic", MaxWords: 80, BusinessName: "Mama's Kitchen", Country: "MY",
		})
	require.NoError(t, err)
	assert.Len(t, replies, 3)
}
