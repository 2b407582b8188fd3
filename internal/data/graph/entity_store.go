// Package graph persists the extracted knowledge graph to Neo4j: entity
// nodes, typed relationship edges and document containment links.
package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/docugraph/docugraph-backend/internal/domain"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
	"github.com/docugraph/docugraph-backend/internal/platform/neo4jdb"
)

// Store is the Neo4j-backed graph store. One session per call; writes go
// through ExecuteWrite.
type Store struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewStore(client *neo4jdb.Client, baseLog *logger.Logger) *Store {
	return &Store{
		client: client,
		log:    baseLog.With("component", "GraphStore"),
	}
}

// EnsureSchema creates constraints and indexes if they don't exist. The
// vector index needs Neo4j 5.11+, so its failure is logged and tolerated.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
		`CREATE CONSTRAINT document_id_unique IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE`,
		`CREATE INDEX entity_name_idx IF NOT EXISTS FOR (e:Entity) ON (e.name)`,
		`CREATE INDEX entity_type_idx IF NOT EXISTS FOR (e:Entity) ON (e.type)`,
		`CREATE INDEX document_status_idx IF NOT EXISTS FOR (d:Document) ON (d.status)`,
	}
	for _, q := range stmts {
		res, err := session.Run(ctx, q, nil)
		if err != nil {
			return fmt.Errorf("graph: schema init: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("graph: schema init: %w", err)
		}
	}

	vectorIdx := `CREATE VECTOR INDEX entity_embedding_idx IF NOT EXISTS
FOR (e:Entity) ON (e.embedding)
OPTIONS {indexConfig: {` + "`vector.dimensions`" + `: 1536, ` + "`vector.similarity_function`" + `: 'cosine'}}`
	if res, err := session.Run(ctx, vectorIdx, nil); err != nil {
		s.log.Warn("vector index creation failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	s.log.Info("graph schema ensured")
	return nil
}

// CreateEntity persists a single stored entity and returns its new id.
func (s *Store) CreateEntity(ctx context.Context, entity domain.ExtractedEntity, embedding []float32) (string, error) {
	row := &EntityRow{
		ID:              uuid.NewString(),
		Name:            entity.EntityName,
		Type:            entity.EntityType,
		ConfidenceScore: entity.ConfidenceScore,
		Embedding:       embedding,
		SourceDocID:     entity.SourceDocumentID.String(),
	}
	if err := s.CreateEntityRow(ctx, row); err != nil {
		return "", err
	}
	s.log.Debug("entity stored", "entity_id", row.ID, "entity_name", row.Name, "entity_type", row.Type)
	return row.ID, nil
}

// CreateEntityRow writes one entity node. Per-item fallback path for the
// batch writer.
func (s *Store) CreateEntityRow(ctx context.Context, row *EntityRow) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
CREATE (e:Entity {
	id: $id,
	name: $name,
	type: $type,
	confidence_score: $confidence_score,
	embedding: $embedding,
	source_doc_id: $source_doc_id,
	created_at: datetime()
})`, row.params())
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("%w: create entity: %v", domain.ErrStoreWrite, err)
	}
	return nil
}

// CreateEntitiesBulk writes the whole batch in one UNWIND query.
func (s *Store) CreateEntitiesBulk(ctx context.Context, rows []*EntityRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		batch = append(batch, r.params())
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $batch AS item
CREATE (e:Entity {
	id: item.id,
	name: item.name,
	type: item.type,
	confidence_score: item.confidence_score,
	embedding: item.embedding,
	source_doc_id: item.source_doc_id,
	created_at: datetime()
})`, map[string]any{"batch": batch})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("%w: bulk create entities: %v", domain.ErrStoreWrite, err)
	}
	return nil
}

// CreateRelationshipRow writes one relationship edge, matching endpoints by
// entity name.
func (s *Store) CreateRelationshipRow(ctx context.Context, row *RelationshipRow) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e1:Entity {name: $source_name})
MATCH (e2:Entity {name: $target_name})
CREATE (e1)-[r:RELATIONSHIP {
	id: $id,
	type: $rel_type,
	confidence: $confidence,
	source_doc_id: $source_doc_id,
	created_at: datetime()
}]->(e2)`, row.params())
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("%w: create relationship: %v", domain.ErrStoreWrite, err)
	}
	return nil
}

// CreateRelationshipsBulk writes the whole relationship batch in one UNWIND
// query.
func (s *Store) CreateRelationshipsBulk(ctx context.Context, rows []*RelationshipRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		batch = append(batch, r.params())
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $batch AS item
MATCH (e1:Entity {name: item.source_name})
MATCH (e2:Entity {name: item.target_name})
CREATE (e1)-[r:RELATIONSHIP {
	id: item.id,
	type: item.rel_type,
	confidence: item.confidence,
	source_doc_id: item.source_doc_id,
	created_at: datetime()
}]->(e2)`, map[string]any{"batch": batch})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("%w: bulk create relationships: %v", domain.ErrStoreWrite, err)
	}
	return nil
}

// FindEntityByNameAndType returns the stored entity with an exact
// (name, type) match, or nil.
func (s *Store) FindEntityByNameAndType(ctx context.Context, name, entityType string) (*domain.StoredEntity, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {name: $name, type: $type})
RETURN e.id AS id, e.name AS name, e.type AS type, e.confidence_score AS confidence_score
LIMIT 1`, map[string]any{"name": name, "type": entityType})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			return entityFromRecord(res.Record()), nil
		}
		return nil, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("graph: find entity by name and type: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*domain.StoredEntity), nil
}

// FindEntitiesByType returns all stored entities of a type, for the
// deduplicator's fuzzy scan.
func (s *Store) FindEntitiesByType(ctx context.Context, entityType string) ([]*domain.StoredEntity, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {type: $type})
RETURN e.id AS id, e.name AS name, e.type AS type, e.confidence_score AS confidence_score`,
			map[string]any{"type": entityType})
		if err != nil {
			return nil, err
		}
		var out []*domain.StoredEntity
		for res.Next(ctx) {
			out = append(out, entityFromRecord(res.Record()))
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("graph: find entities by type: %w", err)
	}
	return result.([]*domain.StoredEntity), nil
}

// UpdateEntityConfidence raises a stored entity's confidence score in place.
// Matching zero nodes is not an error.
func (s *Store) UpdateEntityConfidence(ctx context.Context, entityID string, confidence float64) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {id: $id})
SET e.confidence_score = $confidence`, map[string]any{"id": entityID, "confidence": confidence})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("graph: update entity confidence: %w", err)
	}
	return nil
}

// LinkDocumentEntity creates the document->entity containment edge carrying
// the text span and confidence. A missing endpoint is logged as a warning
// and skipped; processing continues.
func (s *Store) LinkDocumentEntity(ctx context.Context, documentID uuid.UUID, entityID string, textSpan string, confidence float64) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	linked, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (d:Document {id: $doc_id})
MATCH (e:Entity {id: $entity_id})
MERGE (d)-[r:CONTAINS {text_span: $text_span, confidence: $confidence}]->(e)
RETURN d.id AS doc_id`, map[string]any{
			"doc_id":     documentID.String(),
			"entity_id":  entityID,
			"text_span":  textSpan,
			"confidence": confidence,
		})
		if err != nil {
			return false, err
		}
		if res.Next(ctx) {
			return true, nil
		}
		return false, res.Err()
	})
	if err != nil {
		return fmt.Errorf("graph: link document entity: %w", err)
	}
	if ok, _ := linked.(bool); !ok {
		s.log.Warn("document or entity not found for containment link",
			"doc_id", documentID, "entity_id", entityID, "error", domain.ErrDocumentNotFound)
	}
	return nil
}

// UpsertDocument makes sure a document node exists with the given status.
func (s *Store) UpsertDocument(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (d:Document {id: $id})
ON CREATE SET d.created_at = datetime()
SET d.status = $status, d.updated_at = datetime()`,
			map[string]any{"id": documentID.String(), "status": string(status)})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("graph: upsert document: %w", err)
	}
	return nil
}

// UpdateDocumentStatus records a status transition on an existing document
// node. A missing document is logged, not fatal.
func (s *Store) UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	found, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (d:Document {id: $id})
SET d.status = $status, d.updated_at = datetime()
RETURN d.id AS id`, map[string]any{"id": documentID.String(), "status": string(status)})
		if err != nil {
			return false, err
		}
		if res.Next(ctx) {
			return true, nil
		}
		return false, res.Err()
	})
	if err != nil {
		return fmt.Errorf("graph: update document status: %w", err)
	}
	if ok, _ := found.(bool); !ok {
		s.log.Warn("document not found for status update", "doc_id", documentID, "status", status)
		return nil
	}
	s.log.Debug("document status updated", "doc_id", documentID, "status", status)
	return nil
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

func (s *Store) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
}

func entityFromRecord(rec *neo4j.Record) *domain.StoredEntity {
	// Fallthrough zero values are fine: lookups only need id/name/type and
	// the confidence score.
	out := &domain.StoredEntity{}
	if v, ok := rec.Get("id"); ok {
		out.ID, _ = v.(string)
	}
	if v, ok := rec.Get("name"); ok {
		out.Name, _ = v.(string)
	}
	if v, ok := rec.Get("type"); ok {
		out.Type, _ = v.(string)
	}
	if v, ok := rec.Get("confidence_score"); ok {
		out.ConfidenceScore, _ = v.(float64)
	}
	return out
}
