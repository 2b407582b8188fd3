package ingestion

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/docugraph/docugraph-backend/internal/data/graph"
	"github.com/docugraph/docugraph-backend/internal/domain"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
)

func stagedCandidate(name, entityType string, confidence float64) domain.ExtractedEntity {
	return domain.ExtractedEntity{
		EntityName:       name,
		EntityType:       entityType,
		ConfidenceScore:  confidence,
		SourceDocumentID: uuid.New(),
	}
}

func TestStagedStoreBuffersCreates(t *testing.T) {
	inner := newFakeGraph()
	writer := graph.NewBatchWriter(inner, 100, logger.NewNop())
	staged := newStagedStore(inner, writer)
	ctx := context.Background()

	id, err := staged.CreateEntity(ctx, stagedCandidate("Microsoft", "organization", 0.9), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(inner.entities) != 0 {
		t.Fatalf("expected create to stay buffered, store has %d", len(inner.entities))
	}

	found, err := staged.FindEntityByNameAndType(ctx, "Microsoft", "organization")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.ID != id {
		t.Fatalf("expected staged entity visible before flush, got %+v", found)
	}

	byType, err := staged.FindEntitiesByType(ctx, "organization")
	if err != nil {
		t.Fatalf("find by type: %v", err)
	}
	if len(byType) != 1 || byType[0].ID != id {
		t.Fatalf("expected staged entity in type scan, got %+v", byType)
	}
}

func TestStagedStoreMergesPersistedAndStaged(t *testing.T) {
	inner := newFakeGraph()
	ctx := context.Background()
	if err := inner.CreateEntityRow(ctx, &graph.EntityRow{ID: "p1", Name: "Amazon", Type: "organization", ConfidenceScore: 0.8}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	writer := graph.NewBatchWriter(inner, 100, logger.NewNop())
	staged := newStagedStore(inner, writer)
	if _, err := staged.CreateEntity(ctx, stagedCandidate("Microsoft", "organization", 0.9), nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	byType, err := staged.FindEntitiesByType(ctx, "organization")
	if err != nil {
		t.Fatalf("find by type: %v", err)
	}
	if len(byType) != 2 {
		t.Fatalf("expected persisted plus staged, got %d", len(byType))
	}

	// After a flush the same row exists in the store too; the scan must not
	// return it twice.
	if err := writer.FlushEntities(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	byType, err = staged.FindEntitiesByType(ctx, "organization")
	if err != nil {
		t.Fatalf("find by type: %v", err)
	}
	if len(byType) != 2 {
		t.Fatalf("expected no duplicates after flush, got %d", len(byType))
	}
}

func TestStagedStoreConfidenceUpdateBeforeFlush(t *testing.T) {
	inner := newFakeGraph()
	writer := graph.NewBatchWriter(inner, 100, logger.NewNop())
	staged := newStagedStore(inner, writer)
	ctx := context.Background()

	id, err := staged.CreateEntity(ctx, stagedCandidate("Microsoft", "organization", 0.7), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := staged.UpdateEntityConfidence(ctx, id, 0.95); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := writer.FlushEntities(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	persisted, err := inner.FindEntityByNameAndType(ctx, "Microsoft", "organization")
	if err != nil || persisted == nil {
		t.Fatalf("find persisted: entity=%v err=%v", persisted, err)
	}
	if persisted.ConfidenceScore != 0.95 {
		t.Fatalf("expected buffered row to carry updated confidence, got %v", persisted.ConfidenceScore)
	}
}
