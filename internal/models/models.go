package models

import "time"

// Platform identifies the external review site a mention came from.
type Platform string

const (
	PlatformGoogle   Platform = "GOOGLE"
	PlatformYelp     Platform = "YELP"
	PlatformFacebook Platform = "FACEBOOK"
)

// MentionStatus tracks a mention through its review workflow.
type MentionStatus string

const (
	StatusNew       MentionStatus = "NEW"
	StatusReviewed  MentionStatus = "REVIEWED"
	StatusReplied   MentionStatus = "REPLIED"
	StatusEscalated MentionStatus = "ESCALATED"
	StatusArchived  MentionStatus = "ARCHIVED"
)

// CanTransition reports whether the status state machine allows moving to
// the given status. ARCHIVED is terminal; the review flow is forward-only;
// ESCALATED is reachable from NEW and REVIEWED.
func (s MentionStatus) CanTransition(to MentionStatus) bool {
	if s == StatusArchived {
		return false
	}
	if to == StatusArchived {
		return true
	}
	switch s {
	case StatusNew:
		return to == StatusReviewed || to == StatusEscalated
	case StatusReviewed:
		return to == StatusReplied || to == StatusEscalated
	default:
		return false
	}
}

type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

type ReplyStatus string

const (
	ReplyDraft     ReplyStatus = "DRAFT"
	ReplySent      ReplyStatus = "SENT"
	ReplyDismissed ReplyStatus = "DISMISSED"
)

type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

// Tenant is one paying business.
type Tenant struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	BusinessName string `gorm:"not null"`
	Country      string `gorm:"type:varchar(8)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Tenant) TableName() string { return "tenants" }

type User struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	TenantID  string `gorm:"type:varchar(36);not null;index:idx_user_tenant"`
	Email     string `gorm:"uniqueIndex;not null"`
	Phone     string `gorm:"type:varchar(32)"`
	Role      Role   `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }

type Location struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	TenantID  string `gorm:"type:varchar(36);not null;index:idx_location_tenant"`
	Name      string `gorm:"not null"`
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Location) TableName() string { return "locations" }

// SourceAccount is a monitored account/page on one platform for one
// location. Never deleted, only deactivated. NextRunAt is the durable
/// polling marker: the sweeper enqueues a scrape job once it comes due,
// and the scrape worker advances it after every run.
type SourceAccount struct {
	ID                      string   `gorm:"primaryKey;type:varchar(36)"`
	TenantID                string   `gorm:"type:varchar(36);not null;index:idx_source_tenant"`
	LocationID              string   `gorm:"type:varchar(36);not null"`
	Platform                Platform `gorm:"type:varchar(16);not null"`
	AccountURL              string   `gorm:"not null"`
	PollingFrequencyMinutes int      `gorm:"not null;default:60"`
	IsActive                bool     `gorm:"not null;default:true;index:idx_source_due"`
	LastScrapedAt           *time.Time
	NextRunAt               *time.Time `gorm:"index:idx_source_due"`
	ConsecutiveFailures     int        `gorm:"not null;default:0"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (SourceAccount) TableName() string { return "source_accounts" }

// PollingInterval is the cadence between scrapes. A non-positive stored
// frequency falls back to the hourly column default so the next-run
// marker always moves forward.
func (s *SourceAccount) PollingInterval() time.Duration {
	minutes := s.PollingFrequencyMinutes
	if minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

// Mention is one observed review/post. (platform, external_id) is the
// global dedup key. Raw fields are written once at ingest; analysis
// fields are written by the analysis worker; status changes come from
// user/operator action.
type Mention struct {
	ID              string   `gorm:"primaryKey;type:varchar(36)"`
	TenantID        string   `gorm:"type:varchar(36);not null;index:idx_mention_tenant_created,priority:1"`
	LocationID      string   `gorm:"type:varchar(36);not null"`
	SourceAccountID string   `gorm:"type:varchar(36);not null;index:idx_mention_source"`
	Platform        Platform `gorm:"type:varchar(16);not null;index:idx_mention_dedup,unique"`
	ExternalID      string   `gorm:"type:varchar(128);not null;index:idx_mention_dedup,unique"`
	URL             string
	AuthorName      string
	Text            string `gorm:"type:text"`
	Stars           *int
	PublishedAt     time.Time
	Status          MentionStatus `gorm:"type:varchar(16);not null;default:'NEW'"`

	Sentiment           Sentiment `gorm:"type:varchar(16)"`
	Intent              string    `gorm:"type:varchar(32)"`
	Topics              []string  `gorm:"serializer:json"`
	RiskScore           int       `gorm:"not null;default:0"`
	ViralityProbability float64   `gorm:"not null;default:0"`
	Confidence          float64   `gorm:"not null;default:0"`
	Language            string    `gorm:"type:varchar(8)"`
	ProcessedAt         *time.Time
	AnalysisFailed      bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"index:idx_mention_tenant_created,priority:2"`
	UpdatedAt time.Time
}

func (Mention) TableName() string { return "mentions" }

// Reply is a drafted or sent response to a mention. AssignedUserID stays
// nil until a user claims the draft.
type Reply struct {
	ID             string      `gorm:"primaryKey;type:varchar(36)"`
	MentionID      string      `gorm:"type:varchar(36);not null;index:idx_reply_mention"`
	SuggestedText  string      `gorm:"type:text;not null"`
	Tone           string      `gorm:"type:varchar(16)"`
	Status         ReplyStatus `gorm:"type:varchar(16);not null;default:'DRAFT'"`
	AssignedUserID *string     `gorm:"type:varchar(36)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Reply) TableName() string { return "replies" }
