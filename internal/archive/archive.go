package archive

import "context"

// Archiver persists raw scrape payloads for audit and reprocessing.
// Archiving is best-effort: a failed write never fails the scrape job.
type Archiver interface {
	Store(ctx context.Context, name string, data []byte) error
}

// Noop is used when no archive backend is configured.
type Noop struct{}

func (Noop) Store(ctx context.Context, name string, data []byte) error { return nil }
