package sources

import (
	"context"
	"errors"
	"time"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// RawItem is one candidate mention as returned by a platform adapter,
// before dedup and ingestion.
type RawItem struct {
	ExternalID  string
	Author      string
	Text        string
	Stars       *int
	PublishedAt time.Time
	URL         string
}

// TransientError marks a fetch failure worth retrying (timeouts, network
// errors, upstream 5xx). Anything else is treated as a permanent
// zero-yield result.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient fetch error: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Adapter fetches and normalizes candidate mentions for one source
// account. One implementation per platform; adding a platform means
// adding an adapter, not editing a dispatcher.
type Adapter interface {
	Platform() models.Platform
	Fetch(ctx context.Context, src *models.SourceAccount) ([]RawItem, error)
}

// Registry resolves the adapter for a platform.
type Registry struct {
	adapters map[models.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Lookup(p models.Platform) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

func dedupeItems(items []RawItem) []RawItem {
	seen := make(map[string]bool, len(items))
	var unique []RawItem
	for _, item := range items {
		if item.ExternalID == "" || seen[item.ExternalID] {
			continue
		}
		seen[item.ExternalID] = true
		unique = append(unique, item)
	}
	return unique
}
