package domain

import (
	"context"
	"time"
)

// ResultSink receives one append-only record per evaluated direction.
type ResultSink interface {
	Append(ctx context.Context, result OpportunityResult) error
}

// ResultStore is a queryable ResultSink backed by durable storage.
type ResultStore interface {
	ResultSink
	ListRecent(ctx context.Context, limit int) ([]OpportunityResult, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]OpportunityResult, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
