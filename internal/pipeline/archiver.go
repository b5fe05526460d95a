// Package pipeline holds the periodic maintenance jobs that run beside
// the evaluation loop.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// defaultMultipartThreshold is the payload size above which the archiver
// switches to multipart upload.
const defaultMultipartThreshold int64 = 8 * 1024 * 1024

// ResultSource is the store surface the archiver drains. The Postgres
// result store satisfies it.
type ResultSource interface {
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.OpportunityResult, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BlobStore is the object-store surface the archiver writes to and
// verifies against.
type BlobStore interface {
	domain.BlobWriter
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
	Exists(ctx context.Context, path string) (bool, error)
}

// ArchiverConfig holds the archival job parameters.
type ArchiverConfig struct {
	RetentionDays int
	Interval      time.Duration
	Prefix        string

	// MultipartThreshold overrides the payload size that triggers
	// multipart upload; zero keeps the default.
	MultipartThreshold int64
}

// Archiver moves result rows older than the retention window into a
// timestamped JSONL object, deleting rows only after the object is
// confirmed present.
type Archiver struct {
	cfg    ArchiverConfig
	store  ResultSource
	blob   BlobStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(cfg ArchiverConfig, store ResultSource, blob BlobStore, logger *slog.Logger) *Archiver {
	if cfg.MultipartThreshold <= 0 {
		cfg.MultipartThreshold = defaultMultipartThreshold
	}
	return &Archiver{cfg: cfg, store: store, blob: blob, logger: logger}
}

// Run executes one archive pass and returns how many rows were moved.
func (a *Archiver) Run(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(a.cfg.RetentionDays) * 24 * time.Hour)

	rows, err := a.store.ListBefore(ctx, cutoff, 0)
	if err != nil {
		return 0, fmt.Errorf("pipeline: archive query: %w", err)
	}
	if len(rows) == 0 {
		a.logger.DebugContext(ctx, "pipeline: nothing to archive",
			slog.Time("cutoff", cutoff),
		)
		return 0, nil
	}

	payload, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("pipeline: archive marshal: %w", err)
	}

	path := a.archivePath(time.Now().UTC())
	if int64(len(payload)) > a.cfg.MultipartThreshold {
		err = a.blob.PutMultipart(ctx, path, bytes.NewReader(payload), a.cfg.MultipartThreshold)
	} else {
		err = a.blob.Put(ctx, path, bytes.NewReader(payload), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("pipeline: archive upload: %w", err)
	}

	// Rows are only deleted once the object is confirmed written.
	ok, err := a.blob.Exists(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("pipeline: archive verify %s: %w", path, err)
	}
	if !ok {
		return 0, fmt.Errorf("pipeline: archive object %s missing after upload", path)
	}

	deleted, err := a.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pipeline: archive delete: %w", err)
	}

	a.logger.InfoContext(ctx, "pipeline: archive pass complete",
		slog.String("path", path),
		slog.Int("archived", len(rows)),
		slog.Int64("deleted", deleted),
		slog.Time("cutoff", cutoff),
	)
	return int64(len(rows)), nil
}

// RunLoop executes archive passes on the configured interval until the
// context is cancelled. Pass failures are logged and retried on the next
// tick.
func (a *Archiver) RunLoop(ctx context.Context) error {
	a.logger.InfoContext(ctx, "pipeline: archiver started",
		slog.Duration("interval", a.cfg.Interval),
		slog.Int("retention_days", a.cfg.RetentionDays),
	)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.InfoContext(ctx, "pipeline: archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.Run(ctx); err != nil {
				a.logger.ErrorContext(ctx, "pipeline: archive pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (a *Archiver) archivePath(at time.Time) string {
	name := at.Format("2006-01-02T15-04-05Z") + ".jsonl"
	if a.cfg.Prefix == "" {
		return "results/" + name
	}
	return a.cfg.Prefix + "/results/" + name
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
