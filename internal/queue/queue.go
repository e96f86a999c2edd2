package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Queue names for the three pipeline stages.
const (
	QueueScrape        = "scrape"
	QueueAnalysis      = "analysis"
	QueueNotifications = "notifications"
)

// Two-tier priority lane. High-priority jobs are claimed ahead of
// default-tier jobs within the same queue.
const (
	PriorityDefault = 0
	PriorityHigh    = 10
)

const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job is one durable unit of work. Payloads are JSON so the table stays
// agnostic of what each stage carries.
type Job struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	Queue       string    `gorm:"type:varchar(32);not null;index:idx_job_claim,priority:1"`
	Payload     string    `gorm:"type:text;not null"`
	Priority    int       `gorm:"not null;default:0"`
	Status      string    `gorm:"type:varchar(16);not null;default:'pending';index:idx_job_claim,priority:2"`
	RunAt       time.Time `gorm:"not null;index:idx_job_claim,priority:3"`
	Attempts    int       `gorm:"not null;default:0"`
	MaxAttempts int       `gorm:"not null;default:3"`
	LastError   string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Job) TableName() string { return "jobs" }

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	return json.Unmarshal([]byte(j.Payload), v)
}

// Queue is a database-backed job queue. Enqueued jobs survive process
// restarts; delayed enqueue is driven by the persisted run_at marker
// rather than in-memory timers.
type Queue struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Queue, error) {
	if err := db.AutoMigrate(&Job{}); err != nil {
		return nil, fmt.Errorf("failed to migrate jobs table: %w", err)
	}
	return &Queue{db: db}, nil
}

// EnqueueOption adjusts delay, priority or retry budget for one job.
type EnqueueOption func(*Job)

func WithDelay(d time.Duration) EnqueueOption {
	return func(j *Job) { j.RunAt = time.Now().UTC().Add(d) }
}

func WithPriority(p int) EnqueueOption {
	return func(j *Job) { j.Priority = p }
}

func WithMaxAttempts(n int) EnqueueOption {
	return func(j *Job) {
		if n > 0 {
			j.MaxAttempts = n
		}
	}
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, payload any, opts ...EnqueueOption) error {
	return q.EnqueueTx(ctx, q.db, queueName, payload, opts...)
}

// EnqueueTx enqueues within an existing transaction, so a caller can make
// a domain write and its follow-up job atomic (the ingest gate relies on
// this for its exactly-one-analysis-job guarantee).
func (q *Queue) EnqueueTx(ctx context.Context, tx *gorm.DB, queueName string, payload any, opts ...EnqueueOption) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &Job{
		ID:          uuid.New().String(),
		Queue:       queueName,
		Payload:     string(body),
		Priority:    PriorityDefault,
		Status:      StatusPending,
		RunAt:       time.Now().UTC(),
		MaxAttempts: 3,
	}
	for _, opt := range opts {
		opt(job)
	}

	if err := tx.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to enqueue %s job: %w", queueName, err)
	}
	return nil
}

// Claim picks the next due job off a queue and flips it to running.
// The flip is guarded on the pending status, so concurrent claimers get
// distinct jobs; a claimer that loses the race moves on to the next
// candidate. Returns nil when the queue has no due work.
func (q *Queue) Claim(ctx context.Context, queueName string) (*Job, error) {
	for i := 0; i < 3; i++ {
		var job Job
		err := q.db.WithContext(ctx).
			Where("queue = ? AND status = ? AND run_at <= ?", queueName, StatusPending, time.Now().UTC()).
			Order("priority DESC, run_at ASC").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		res := q.db.WithContext(ctx).Model(&Job{}).
			Where("id = ? AND status = ?", job.ID, StatusPending).
			Updates(map[string]any{
				"status":   StatusRunning,
				"attempts": gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			job.Status = StatusRunning
			job.Attempts++
			return &job, nil
		}
		// Lost the race; retry with the next candidate.
	}
	return nil, nil
}

func (q *Queue) Complete(ctx context.Context, job *Job) error {
	return q.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", job.ID).
		Update("status", StatusDone).Error
}

// Retry requeues a failed job with a delay.
func (q *Queue) Retry(ctx context.Context, job *Job, cause error, delay time.Duration) error {
	return q.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":     StatusPending,
			"run_at":     time.Now().UTC().Add(delay),
			"last_error": cause.Error(),
		}).Error
}

// Fail marks a job as permanently failed after its retry budget is spent.
func (q *Queue) Fail(ctx context.Context, job *Job, cause error) error {
	return q.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":     StatusFailed,
			"last_error": cause.Error(),
		}).Error
}

// ReleaseStale requeues jobs stuck in running, e.g. after a crash between
// claim and completion. Handlers are idempotent enough for the rerun:
// mention creation dedups and analysis overwrites its own pass.
func (q *Queue) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := q.db.WithContext(ctx).Model(&Job{}).
		Where("status = ? AND updated_at < ?", StatusRunning, time.Now().UTC().Add(-olderThan)).
		Updates(map[string]any{
			"status": StatusPending,
			"run_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// Depth counts pending jobs on a queue, for the metrics endpoint.
func (q *Queue) Depth(ctx context.Context, queueName string) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&Job{}).
		Where("queue = ? AND status = ?", queueName, StatusPending).
		Count(&count).Error
	return count, err
}

// CountByStatus counts jobs on a queue in a given status. Used by tests
// and the metrics endpoint.
func (q *Queue) CountByStatus(ctx context.Context, queueName, status string) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&Job{}).
		Where("queue = ? AND status = ?", queueName, status).
		Count(&count).Error
	return count, err
}

// List returns all jobs on a queue, newest first. Test helper.
func (q *Queue) List(ctx context.Context, queueName string) ([]Job, error) {
	var jobs []Job
	err := q.db.WithContext(ctx).
		Where("queue = ?", queueName).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}
