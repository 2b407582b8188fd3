package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docugraph/docugraph-backend/internal/data/graph"
	"github.com/docugraph/docugraph-backend/internal/dedup"
	"github.com/docugraph/docugraph-backend/internal/domain"
	"github.com/docugraph/docugraph-backend/internal/extract"
	"github.com/docugraph/docugraph-backend/internal/platform/envutil"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
	"github.com/docugraph/docugraph-backend/internal/platform/openai"
)

// GraphStore is everything the worker needs from the graph layer.
type GraphStore interface {
	graph.BulkStore
	entityReader
	LinkDocumentEntity(ctx context.Context, documentID uuid.UUID, entityID string, textSpan string, confidence float64) error
	UpsertDocument(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error
	UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error
}

// embedder is the slice of the AI client the worker uses for entity
// embeddings.
type embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Worker consumes the document queue sequentially. One document is fully
// processed before the next is dequeued, and shutdown takes effect between
// documents, never in the middle of one.
type Worker struct {
	queue Queue
	store GraphStore
	ai    embedder

	entities      *extract.EntityExtractor
	relationships *extract.RelationshipExtractor

	batchSize    int
	threshold    float64
	pollInterval time.Duration

	log *logger.Logger
}

func NewWorker(
	queue Queue,
	store GraphStore,
	ai embedder,
	entities *extract.EntityExtractor,
	relationships *extract.RelationshipExtractor,
	baseLog *logger.Logger,
) *Worker {
	return &Worker{
		queue:         queue,
		store:         store,
		ai:            ai,
		entities:      entities,
		relationships: relationships,
		batchSize:     envutil.Int("INGEST_BATCH_SIZE", graph.DefaultBatchSize),
		threshold:     envutil.Float("DEDUP_SIMILARITY_THRESHOLD", dedup.DefaultSimilarityThreshold),
		pollInterval:  time.Duration(envutil.Int("INGEST_POLL_SECONDS", 5)) * time.Second,
		log:           baseLog.With("service", "IngestionWorker"),
	}
}

// Run consumes tasks until ctx is canceled. It returns nil on shutdown; a
// task that fails marks its document failed and never stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("ingestion worker started",
		"batch_size", w.batchSize, "similarity_threshold", w.threshold)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("ingestion worker stopped")
			return nil
		default:
		}

		task, err := w.queue.Dequeue(ctx, w.pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("ingestion worker stopped")
				return nil
			}
			w.log.Warn("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if task == nil {
			continue
		}

		// The document in flight finishes even if ctx is canceled while it
		// runs; cancellation is honored at the top of the next iteration.
		w.Process(context.WithoutCancel(ctx), task)
	}
}

// Process runs the whole pipeline for one task: extraction, deduplication,
// batched persistence, document links, and the final status transition.
func (w *Worker) Process(ctx context.Context, task *Task) {
	log := w.log.With("document_id", task.DocumentID)
	started := time.Now()

	// MERGE rather than MATCH: a task can arrive before anything else has
	// created the document node.
	if err := w.store.UpsertDocument(ctx, task.DocumentID, domain.StatusProcessing); err != nil {
		log.Warn("status update failed", "status", domain.StatusProcessing, "error", err)
	}

	// A document with no extractable text is indexed as-is; the extractors
	// are never called for it.
	if strings.TrimSpace(task.Text) == "" {
		if err := w.store.UpdateDocumentStatus(ctx, task.DocumentID, domain.StatusIndexed); err != nil {
			log.Warn("status update failed", "status", domain.StatusIndexed, "error", err)
		}
		log.Info("document indexed", "entities", 0, "relationships", 0)
		return
	}

	entities, err := w.entities.Extract(ctx, extract.Document{ID: task.DocumentID, Text: task.Text})
	if err != nil {
		w.fail(ctx, log, task.DocumentID, "entity extraction", err)
		return
	}

	writer := graph.NewBatchWriter(w.store, w.batchSize, w.log)
	staged := newStagedStore(w.store, writer)
	deduplicator := dedup.NewDeduplicator(staged, w.threshold, w.log)
	embeddings := w.embedAll(ctx, entities, log)

	type resolved struct {
		id     string
		entity domain.ExtractedEntity
	}
	resolvedEntities := make([]resolved, 0, len(entities))
	for i, entity := range entities {
		id, err := deduplicator.FindOrCreate(ctx, entity, embeddings[i])
		if err != nil {
			w.fail(ctx, log, task.DocumentID, "entity persistence", err)
			return
		}
		resolvedEntities = append(resolvedEntities, resolved{id: id, entity: entity})
	}

	// Entities must exist before MENTIONS links and relationship edges can
	// match their endpoints.
	if err := writer.FlushEntities(ctx); err != nil {
		w.fail(ctx, log, task.DocumentID, "entity flush", err)
		return
	}
	for _, r := range resolvedEntities {
		if err := w.store.LinkDocumentEntity(ctx, task.DocumentID, r.id, r.entity.TextSpan, r.entity.ConfidenceScore); err != nil {
			log.Warn("document link failed", "entity_id", r.id, "error", err)
		}
	}

	relationships, err := w.relationships.Extract(ctx, entities, task.Text)
	if err != nil {
		w.fail(ctx, log, task.DocumentID, "relationship extraction", err)
		return
	}
	for _, rel := range relationships {
		row := &graph.RelationshipRow{
			ID:          uuid.NewString(),
			SourceName:  rel.SourceEntityName,
			TargetName:  rel.TargetEntityName,
			RelType:     string(rel.RelationshipType),
			Confidence:  rel.ConfidenceScore,
			SourceDocID: task.DocumentID.String(),
		}
		if err := writer.AddRelationship(ctx, row); err != nil {
			w.fail(ctx, log, task.DocumentID, "relationship persistence", err)
			return
		}
	}
	if err := writer.FlushAll(ctx); err != nil {
		w.fail(ctx, log, task.DocumentID, "final flush", err)
		return
	}

	if err := w.store.UpdateDocumentStatus(ctx, task.DocumentID, domain.StatusIndexed); err != nil {
		log.Warn("status update failed", "status", domain.StatusIndexed, "error", err)
	}
	log.Info("document indexed",
		"entities", len(entities), "relationships", len(relationships),
		"elapsed_ms", time.Since(started).Milliseconds())
}

// embedAll fetches one embedding per entity name in a single call. Failure
// degrades to nil embeddings; indexing proceeds without vectors.
func (w *Worker) embedAll(ctx context.Context, entities []domain.ExtractedEntity, log *logger.Logger) [][]float32 {
	vectors := make([][]float32, len(entities))
	if w.ai == nil || len(entities) == 0 {
		return vectors
	}
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.EntityName
	}
	got, err := w.ai.Embed(ctx, names)
	if err != nil {
		log.Warn("embedding failed, indexing without vectors", "error", err)
		return vectors
	}
	for i := range vectors {
		if i < len(got) {
			vectors[i] = got[i]
		}
	}
	return vectors
}

func (w *Worker) fail(ctx context.Context, log *logger.Logger, documentID uuid.UUID, stage string, cause error) {
	if err := w.store.UpdateDocumentStatus(ctx, documentID, domain.StatusFailed); err != nil {
		log.Warn("status update failed", "status", domain.StatusFailed, "error", err)
	}
	log.Error("document processing failed", "stage", stage, "error", cause)
}

var _ embedder = (openai.Client)(nil)
