package graph

import (
	"context"
	"time"

	"github.com/docugraph/docugraph-backend/internal/platform/logger"
)

// DefaultBatchSize is the buffer size that triggers an automatic flush.
const DefaultBatchSize = 100

// BulkStore is the persistence surface the batch writer flushes into.
type BulkStore interface {
	CreateEntitiesBulk(ctx context.Context, rows []*EntityRow) error
	CreateEntityRow(ctx context.Context, row *EntityRow) error
	CreateRelationshipsBulk(ctx context.Context, rows []*RelationshipRow) error
	CreateRelationshipRow(ctx context.Context, row *RelationshipRow) error
}

// BatchWriter buffers entity and relationship rows and flushes them in bulk.
// When a bulk write fails the buffer is bisected on an explicit range stack
// until the failing rows are isolated; rows that still fail alone are logged
// and dropped. Buffers are not safe for concurrent use: one writer belongs
// to one processing context at a time.
type BatchWriter struct {
	store     BulkStore
	batchSize int
	log       *logger.Logger

	entities      []*EntityRow
	relationships []*RelationshipRow
}

func NewBatchWriter(store BulkStore, batchSize int, baseLog *logger.Logger) *BatchWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchWriter{
		store:     store,
		batchSize: batchSize,
		log:       baseLog.With("component", "BatchWriter"),
	}
}

// AddEntity buffers one entity row, flushing when the buffer reaches the
// batch size.
func (w *BatchWriter) AddEntity(ctx context.Context, row *EntityRow) error {
	w.entities = append(w.entities, row)
	if len(w.entities) >= w.batchSize {
		return w.FlushEntities(ctx)
	}
	return nil
}

// AddRelationship buffers one relationship row, flushing when the buffer
// reaches the batch size.
func (w *BatchWriter) AddRelationship(ctx context.Context, row *RelationshipRow) error {
	w.relationships = append(w.relationships, row)
	if len(w.relationships) >= w.batchSize {
		return w.FlushRelationships(ctx)
	}
	return nil
}

// PendingEntities reports the buffered entity count.
func (w *BatchWriter) PendingEntities() int { return len(w.entities) }

// PendingRelationships reports the buffered relationship count.
func (w *BatchWriter) PendingRelationships() int { return len(w.relationships) }

// FlushAll forces both buffers out.
func (w *BatchWriter) FlushAll(ctx context.Context) error {
	if err := w.FlushEntities(ctx); err != nil {
		return err
	}
	return w.FlushRelationships(ctx)
}

// FlushEntities writes the buffered entities. The buffer is always cleared:
// rows either persist or are dropped after the bisection bottomed out on
// them individually.
func (w *BatchWriter) FlushEntities(ctx context.Context) error {
	if len(w.entities) == 0 {
		return nil
	}
	rows := w.entities
	w.entities = nil

	start := time.Now()
	err := w.bisectFlush(ctx, len(rows), "entities",
		func(ctx context.Context, lo, hi int) error {
			return w.store.CreateEntitiesBulk(ctx, rows[lo:hi])
		},
		func(ctx context.Context, i int) error {
			return w.store.CreateEntityRow(ctx, rows[i])
		},
		func(i int) []any {
			return []any{"entity_id", rows[i].ID, "entity_name", rows[i].Name}
		})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	w.log.Info("entity batch flushed",
		"count", len(rows), "elapsed_ms", elapsed.Milliseconds(), "rows_per_second", perSecond(len(rows), elapsed))
	return nil
}

// FlushRelationships writes the buffered relationships, with the same
// clearing and bisection behavior as FlushEntities.
func (w *BatchWriter) FlushRelationships(ctx context.Context) error {
	if len(w.relationships) == 0 {
		return nil
	}
	rows := w.relationships
	w.relationships = nil

	start := time.Now()
	err := w.bisectFlush(ctx, len(rows), "relationships",
		func(ctx context.Context, lo, hi int) error {
			return w.store.CreateRelationshipsBulk(ctx, rows[lo:hi])
		},
		func(ctx context.Context, i int) error {
			return w.store.CreateRelationshipRow(ctx, rows[i])
		},
		func(i int) []any {
			return []any{"relationship_id", rows[i].ID, "source", rows[i].SourceName, "target", rows[i].TargetName}
		})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	w.log.Info("relationship batch flushed",
		"count", len(rows), "elapsed_ms", elapsed.Milliseconds(), "rows_per_second", perSecond(len(rows), elapsed))
	return nil
}

type span struct{ lo, hi int }

// bisectFlush writes rows[0:n) in bulk, splitting failed ranges in half on
// an explicit work stack until single rows remain. Single rows go through
// the per-item path; a row failing there is logged and dropped. Retries are
// bounded: every range is attempted at most once per size.
func (w *BatchWriter) bisectFlush(
	ctx context.Context,
	n int,
	kind string,
	bulk func(ctx context.Context, lo, hi int) error,
	single func(ctx context.Context, i int) error,
	rowFields func(i int) []any,
) error {
	stack := []span{{0, n}}
	for len(stack) > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if sp.hi-sp.lo == 1 {
			if err := single(ctx, sp.lo); err != nil {
				fields := append([]any{"kind", kind, "error", err}, rowFields(sp.lo)...)
				w.log.Error("single row write failed, dropping", fields...)
			}
			continue
		}

		if err := bulk(ctx, sp.lo, sp.hi); err != nil {
			mid := sp.lo + (sp.hi-sp.lo)/2
			w.log.Warn("bulk write failed, bisecting",
				"kind", kind, "range_size", sp.hi-sp.lo, "error", err)
			stack = append(stack, span{mid, sp.hi}, span{sp.lo, mid})
		}
	}
	return nil
}

func perSecond(count int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Seconds()
}
