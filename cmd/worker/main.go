package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/analysis"
	"github.com/reviewpulse/reviewpulse/internal/archive"
	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/ingest"
	"github.com/reviewpulse/reviewpulse/internal/notify"
	"github.com/reviewpulse/reviewpulse/internal/queue"
	"github.com/reviewpulse/reviewpulse/internal/scrape"
	"github.com/reviewpulse/reviewpulse/internal/sources"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting ReviewPulse worker")

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}

	q, err := queue.New(st.DB)
	if err != nil {
		logrus.Fatalf("Failed to initialize job queue: %v", err)
	}

	var archiver archive.Archiver = archive.Noop{}
	if cfg.StorageAccount != "" {
		archiver, err = archive.NewBlobArchiver(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive storage: %v", err)
		}
	}

	adapters := sources.NewRegistry(
		sources.NewGoogleAdapter(cfg.GoogleAPIKey),
		sources.NewYelpAdapter(cfg.YelpAPIKey),
		sources.NewFacebookAdapter(cfg.FacebookAccessToken),
	)

	gate := ingest.NewGate(st, q, cfg.MaxAnalysisAttempts)

	scrapeWorker := scrape.NewWorker(st, adapters, gate, archiver,
		cfg.ScrapeRatePerMinute, cfg.DeactivateAfterFailures,
		time.Duration(cfg.FetchTimeoutSeconds)*time.Second)

	aiClient := analysis.NewClient(cfg.AnalyzerAPIKey, cfg.AnalyzerBaseURL, cfg.AnalyzerModel)
	analysisWorker := analysis.NewWorker(st, q, aiClient, aiClient,
		cfg.RiskThreshold,
		time.Duration(cfg.AnalyzerTimeoutSeconds)*time.Second,
		cfg.ReplyMaxWords)

	channels := notify.Channels{}
	if cfg.TwilioAccountSID != "" {
		channels.WhatsApp = notify.NewWhatsAppNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.WhatsAppFrom)
	}
	if cfg.SMTPHost != "" {
		channels.Email = notify.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	notifyWorker := notify.NewWorker(st, channels, cfg.ClientURL)

	poll := time.Duration(cfg.QueuePollMillis) * time.Millisecond
	backoff := queue.ExponentialBackoff(
		time.Duration(cfg.BackoffBaseSeconds)*time.Second,
		time.Duration(cfg.BackoffMaxSeconds)*time.Second)

	pools := []*queue.Pool{
		queue.NewPool(q, queue.QueueScrape, cfg.ScrapeConcurrency, scrapeWorker.Handle,
			queue.WithPollInterval(poll), queue.WithBackoff(backoff)),
		queue.NewPool(q, queue.QueueAnalysis, cfg.AnalysisConcurrency, analysisWorker.Handle,
			queue.WithPollInterval(poll), queue.WithBackoff(backoff),
			queue.WithOnExhausted(analysisWorker.FlagFailed)),
		queue.NewPool(q, queue.QueueNotifications, cfg.NotifyConcurrency, notifyWorker.Handle,
			queue.WithPollInterval(poll), queue.WithBackoff(backoff)),
	}
	for _, p := range pools {
		p.Start()
	}

	scheduler := scrape.NewScheduler(st, q,
		time.Duration(cfg.StartupJitterSeconds)*time.Second,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second,
		cfg.MaxScrapeAttempts)
	if err := scheduler.Start(context.Background()); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	housekeeping := cron.New()
	housekeeping.AddFunc("@every 1m", func() {
		released, err := q.ReleaseStale(context.Background(), 10*time.Minute)
		if err != nil {
			logrus.Errorf("Failed to release stale jobs: %v", err)
			return
		}
		if released > 0 {
			logrus.Warnf("Released %d stale jobs", released)
		}
	})
	if cfg.SummarySchedule != "" {
		summarizer := notify.NewSummarizer(st, channels, cfg.RiskThreshold, summaryWindow(cfg.SummarySchedule))
		housekeeping.AddFunc(summarySpec(cfg.SummarySchedule), func() {
			if err := summarizer.Run(context.Background()); err != nil {
				logrus.Errorf("Summary run failed: %v", err)
			}
		})
	}
	housekeeping.Start()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler(st)).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(q)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(scheduler)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	housekeeping.Stop()
	scheduler.Stop()
	for _, p := range pools {
		if err := p.Stop(ctx); err != nil {
			logrus.Errorf("Pool shutdown: %v", err)
		}
	}

	logrus.Info("Worker exited")
}

func summarySpec(schedule string) string {
	if schedule == "weekly" {
		return "0 9 * * MON"
	}
	return "0 9 * * *"
}

func summaryWindow(schedule string) time.Duration {
	if schedule == "weekly" {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

func healthCheckHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	}
}

func metricsHandler(q *queue.Queue) http.HandlerFunc {
	queues := []string{queue.QueueScrape, queue.QueueAnalysis, queue.QueueNotifications}
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := make(map[string]map[string]int64, len(queues))
		for _, name := range queues {
			pending, err := q.Depth(r.Context(), name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			failed, err := q.CountByStatus(r.Context(), name, queue.StatusFailed)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			metrics[name] = map[string]int64{"pending": pending, "failed": failed}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics)
	}
}

func triggerHandler(scheduler *scrape.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := scheduler.Sweep(context.Background()); err != nil {
				logrus.Errorf("Manual sweep failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Sweep triggered successfully"}`))
	}
}
