package queue

// Job payloads exchanged between pipeline stages. Transport-agnostic:
// nothing here knows how jobs are stored or claimed.

// ScrapePayload asks the scrape worker to poll one source account.
type ScrapePayload struct {
	SourceAccountID string `json:"sourceAccountId"`
}

// AnalyzePayload asks the analysis worker to enrich one mention.
type AnalyzePayload struct {
	MentionID string `json:"mentionId"`
}

// NotifyPayload asks the notification worker to fan out an alert.
type NotifyPayload struct {
	TenantID  string `json:"tenantId"`
	MentionID string `json:"mentionId"`
	Type      string `json:"type"`
	RiskTier  string `json:"riskTier"`
}
