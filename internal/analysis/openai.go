package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Client calls an OpenAI-compatible chat completions endpoint to score
// mentions and draft replies. It implements both Analyzer and Responder.
type Client struct {
	client  *resty.Client
	apiKey  string
	model   string
	baseURL string
}

var (
	_ Analyzer  = (*Client)(nil)
	_ Responder = (*Client)(nil)
)

func NewClient(apiKey, baseURL, model string) *Client {
	return &Client{
		client:  resty.New().SetTimeout(30 * time.Second),
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type analysisWire struct {
	Sentiment           string   `json:"sentiment"`
	Intent              string   `json:"intent"`
	Topics              []string `json:"topics"`
	RiskScore           float64  `json:"riskScore"`
	ViralityProbability float64  `json:"viralityProbability"`
	Confidence          float64  `json:"confidence"`
	Language            string   `json:"language"`
}

func (c *Client) Analyze(ctx context.Context, text string, stars *int) (*Analysis, error) {
	starsLine := ""
	if stars != nil {
		starsLine = fmt.Sprintf("Star rating: %d/5\n", *stars)
	}

	prompt := fmt.Sprintf(`Analyze the following customer review/mention and provide a JSON response with:
- sentiment: "POSITIVE", "NEUTRAL", or "NEGATIVE"
- intent: primary intent (e.g., "complaint", "praise", "inquiry", "feedback")
- topics: array of key topics mentioned (e.g., ["food quality", "service", "wait time", "pricing"])
- riskScore: integer 0-100 (how urgently this needs addressing; viral potential, legal risk, severe complaint = high score)
- viralityProbability: float 0-1 (likelihood this could go viral or spread)
- confidence: float 0-1 (confidence in this analysis)
- language: detected language code (e.g., "en", "ms", "zh")

Review text: %q
%s
Respond ONLY with valid JSON. No markdown, no explanation.`, text, starsLine)

	content, err := c.complete(ctx, prompt, &respFormat{Type: "json_object"}, 0)
	if err != nil {
		return nil, err
	}

	var wire analysisWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return nil, fmt.Errorf("unparsable analyzer output: %w", err)
	}

	sentiment := models.Sentiment(strings.ToUpper(wire.Sentiment))
	switch sentiment {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		return nil, fmt.Errorf("analyzer returned unrecognized sentiment %q", wire.Sentiment)
	}

	result := &Analysis{
		Sentiment:           sentiment,
		Intent:              wire.Intent,
		Topics:              wire.Topics,
		RiskScore:           int(wire.RiskScore),
		ViralityProbability: wire.ViralityProbability,
		Confidence:          wire.Confidence,
		Language:            wire.Language,
	}
	if result.Topics == nil {
		result.Topics = []string{}
	}
	if result.Language == "" {
		result.Language = "en"
	}
	return result, nil
}

func (c *Client) GenerateReplies(ctx context.Context, text string, stars *int, sentiment models.Sentiment,
	topics []string, opts ReplyOptions) ([]string, error) {

	starsLine := ""
	if stars != nil {
		starsLine = fmt.Sprintf("Star rating: %d/5\n", *stars)
	}
	extra := ""
	switch sentiment {
	case models.SentimentNegative:
		extra = "- Acknowledge the issue without admitting fault\n- Offer a path forward\n"
	case models.SentimentPositive:
		extra = "- Show genuine appreciation\n- Encourage return visits or referrals\n"
	}

	prompt := fmt.Sprintf(`You are a reputation management expert writing a %s response to a customer review.

Business: %s
Country: %s
Review sentiment: %s
Key topics: %s
%s
Original review:
%q

Generate 3 different response options, each under %d words. Each must:
- Be legally safe and compliant with local defamation laws
- Address the customer's concerns specifically
- Be authentic and non-generic
- Use appropriate tone: %s
%s
Respond ONLY with a JSON array of 3 strings. No markdown, no explanation.
Format: ["response1", "response2", "response3"]`,
		opts.Tone, opts.BusinessName, opts.Country, sentiment,
		strings.Join(topics, ", "), starsLine, text, opts.MaxWords, opts.Tone, extra)

	content, err := c.complete(ctx, prompt, nil, 1500)
	if err != nil {
		return nil, err
	}

	var replies []string
	if err := json.Unmarshal([]byte(content), &replies); err != nil {
		return nil, fmt.Errorf("unparsable responder output: %w", err)
	}
	if len(replies) > 3 {
		replies = replies[:3]
	}
	return replies, nil
}

func (c *Client) complete(ctx context.Context, prompt string, format *respFormat, maxTokens int) (string, error) {
	req := chatRequest{
		Model:          c.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		Temperature:    0.3,
		ResponseFormat: format,
		MaxTokens:      maxTokens,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.baseURL + "/v1/chat/completions")

	if err != nil {
		return "", fmt.Errorf("analyzer request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("analyzer returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var body chatResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("unparsable analyzer response: %w", err)
	}
	if len(body.Choices) == 0 {
		return "", fmt.Errorf("analyzer returned no choices")
	}
	return body.Choices[0].Message.Content, nil
}
