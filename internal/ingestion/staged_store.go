package ingestion

import (
	"context"

	"github.com/google/uuid"

	"github.com/docugraph/docugraph-backend/internal/data/graph"
	"github.com/docugraph/docugraph-backend/internal/domain"
)

// entityReader is the read-and-update slice of the graph store the staged
// store falls back to.
type entityReader interface {
	FindEntityByNameAndType(ctx context.Context, name, entityType string) (*domain.StoredEntity, error)
	FindEntitiesByType(ctx context.Context, entityType string) ([]*domain.StoredEntity, error)
	UpdateEntityConfidence(ctx context.Context, entityID string, confidence float64) error
}

// stagedStore overlays the entities created while one document is being
// processed on top of the persisted graph. Creates buffer into the batch
// writer instead of hitting the database row by row, and lookups see the
// buffered rows so deduplication within a document works before anything
// is flushed.
type stagedStore struct {
	inner  entityReader
	writer *graph.BatchWriter

	byKey  map[entityKey]*graph.EntityRow
	byType map[string][]*graph.EntityRow
	byID   map[string]*graph.EntityRow
}

type entityKey struct {
	name string
	typ  string
}

func newStagedStore(inner entityReader, writer *graph.BatchWriter) *stagedStore {
	return &stagedStore{
		inner:  inner,
		writer: writer,
		byKey:  make(map[entityKey]*graph.EntityRow),
		byType: make(map[string][]*graph.EntityRow),
		byID:   make(map[string]*graph.EntityRow),
	}
}

func (s *stagedStore) CreateEntity(ctx context.Context, entity domain.ExtractedEntity, embedding []float32) (string, error) {
	row := &graph.EntityRow{
		ID:              uuid.NewString(),
		Name:            entity.EntityName,
		Type:            entity.EntityType,
		ConfidenceScore: entity.ConfidenceScore,
		Embedding:       embedding,
		SourceDocID:     entity.SourceDocumentID.String(),
	}
	if err := s.writer.AddEntity(ctx, row); err != nil {
		return "", err
	}
	key := entityKey{name: entity.EntityName, typ: entity.EntityType}
	s.byKey[key] = row
	s.byType[entity.EntityType] = append(s.byType[entity.EntityType], row)
	s.byID[row.ID] = row
	return row.ID, nil
}

func (s *stagedStore) FindEntityByNameAndType(ctx context.Context, name, entityType string) (*domain.StoredEntity, error) {
	if row, ok := s.byKey[entityKey{name: name, typ: entityType}]; ok {
		return stagedEntity(row), nil
	}
	return s.inner.FindEntityByNameAndType(ctx, name, entityType)
}

func (s *stagedStore) FindEntitiesByType(ctx context.Context, entityType string) ([]*domain.StoredEntity, error) {
	persisted, err := s.inner.FindEntitiesByType(ctx, entityType)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.StoredEntity, 0, len(persisted)+len(s.byType[entityType]))
	for _, e := range persisted {
		// A mid-document flush can make a staged row show up in the
		// persisted result too; the staged copy wins.
		if e == nil {
			continue
		}
		if _, staged := s.byID[e.ID]; staged {
			continue
		}
		out = append(out, e)
	}
	for _, row := range s.byType[entityType] {
		out = append(out, stagedEntity(row))
	}
	return out, nil
}

// UpdateEntityConfidence raises the score on the buffered row when the
// entity was staged this document, and always forwards to the store so an
// already flushed row is updated in place. The store treats an unknown id
// as a no-op, so the double write is safe in both states.
func (s *stagedStore) UpdateEntityConfidence(ctx context.Context, entityID string, confidence float64) error {
	if row, ok := s.byID[entityID]; ok {
		row.ConfidenceScore = confidence
	}
	return s.inner.UpdateEntityConfidence(ctx, entityID, confidence)
}

func stagedEntity(row *graph.EntityRow) *domain.StoredEntity {
	docID, _ := uuid.Parse(row.SourceDocID)
	return &domain.StoredEntity{
		ID:              row.ID,
		Name:            row.Name,
		Type:            row.Type,
		ConfidenceScore: row.ConfidenceScore,
		Embedding:       row.Embedding,
		SourceDocID:     docID,
	}
}
