package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Storage
	DatabaseURL string

	// Frontend base URL used for deep links in alerts
	ClientURL string

	// Scraping
	ScrapeConcurrency       int
	ScrapeRatePerMinute     int
	FetchTimeoutSeconds     int
	StartupJitterSeconds    int
	SweepIntervalSeconds    int
	MaxScrapeAttempts       int
	DeactivateAfterFailures int // 0 disables auto-deactivation

	// Analysis
	AnalysisConcurrency    int
	AnalyzerTimeoutSeconds int
	MaxAnalysisAttempts    int
	RiskThreshold          int
	ReplyMaxWords          int
	AnalyzerAPIKey         string
	AnalyzerBaseURL        string
	AnalyzerModel          string

	// Notifications
	NotifyConcurrency int
	TwilioAccountSID  string
	TwilioAuthToken   string
	WhatsAppFrom      string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SummarySchedule   string // "daily", "weekly" or "" to disable

	// Job queue
	QueuePollMillis    int
	BackoffBaseSeconds int
	BackoffMaxSeconds  int

	// Source platform credentials
	GoogleAPIKey        string
	YelpAPIKey          string
	FacebookAccessToken string

	// Raw payload archive (Azure Blob); empty account disables archiving
	StorageAccount   string
	StorageContainer string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Debug:       getBoolEnv("DEBUG", false),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ClientURL:   getEnv("CLIENT_URL", "http://localhost:3000"),

		ScrapeConcurrency:       getIntEnv("SCRAPE_CONCURRENCY", 5),
		ScrapeRatePerMinute:     getIntEnv("SCRAPE_RATE_PER_MINUTE", 10),
		FetchTimeoutSeconds:     getIntEnv("FETCH_TIMEOUT_SECONDS", 30),
		StartupJitterSeconds:    getIntEnv("STARTUP_JITTER_SECONDS", 60),
		SweepIntervalSeconds:    getIntEnv("SWEEP_INTERVAL_SECONDS", 15),
		MaxScrapeAttempts:       getIntEnv("MAX_SCRAPE_ATTEMPTS", 3),
		DeactivateAfterFailures: getIntEnv("DEACTIVATE_AFTER_FAILURES", 0),

		AnalysisConcurrency:    getIntEnv("ANALYSIS_CONCURRENCY", 10),
		AnalyzerTimeoutSeconds: getIntEnv("ANALYZER_TIMEOUT_SECONDS", 30),
		MaxAnalysisAttempts:    getIntEnv("MAX_ANALYSIS_ATTEMPTS", 3),
		RiskThreshold:          getIntEnv("RISK_THRESHOLD", 70),
		ReplyMaxWords:          getIntEnv("REPLY_MAX_WORDS", 80),
		AnalyzerAPIKey:         getEnv("ANALYZER_API_KEY", ""),
		AnalyzerBaseURL:        getEnv("ANALYZER_BASE_URL", "https://api.openai.com"),
		AnalyzerModel:          getEnv("ANALYZER_MODEL", "gpt-4-turbo-preview"),

		NotifyConcurrency: getIntEnv("NOTIFY_CONCURRENCY", 20),
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		WhatsAppFrom:      getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SummarySchedule:   getEnv("SUMMARY_SCHEDULE", "daily"),

		QueuePollMillis:    getIntEnv("QUEUE_POLL_MILLIS", 500),
		BackoffBaseSeconds: getIntEnv("BACKOFF_BASE_SECONDS", 30),
		BackoffMaxSeconds:  getIntEnv("BACKOFF_MAX_SECONDS", 900),

		GoogleAPIKey:        getEnv("GOOGLE_API_KEY", ""),
		YelpAPIKey:          getEnv("YELP_API_KEY", ""),
		FacebookAccessToken: getEnv("FACEBOOK_ACCESS_TOKEN", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "scrapes"),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RiskThreshold < 0 || c.RiskThreshold > 100 {
		return fmt.Errorf("RISK_THRESHOLD must be in [0,100]")
	}

	if c.SummarySchedule != "" && c.SummarySchedule != "daily" && c.SummarySchedule != "weekly" {
		return fmt.Errorf("SUMMARY_SCHEDULE must be 'daily', 'weekly' or empty")
	}

	if c.TwilioAccountSID == "" && c.SMTPHost == "" {
		return fmt.Errorf("at least one notification channel must be configured (TWILIO_ACCOUNT_SID or SMTP_HOST)")
	}

	if c.SMTPHost != "" {
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP_USERNAME and SMTP_PASSWORD are required when SMTP_HOST is set")
		}
	}

	if c.ScrapeConcurrency <= 0 || c.AnalysisConcurrency <= 0 || c.NotifyConcurrency <= 0 {
		return fmt.Errorf("worker concurrencies must be positive")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
