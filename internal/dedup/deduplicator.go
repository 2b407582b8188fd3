// Package dedup resolves candidate entities against previously stored
// entities so a logical entity exists at most once per (name, type).
package dedup

import (
	"context"

	"github.com/docugraph/docugraph-backend/internal/domain"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
)

// DefaultSimilarityThreshold is the minimum 0-100 similarity for a fuzzy
// name match within a type.
const DefaultSimilarityThreshold = 90.0

// EntityStore is the graph-store surface the deduplicator needs.
type EntityStore interface {
	// FindEntityByNameAndType returns the stored entity with an identical
	// (name, type), or nil when none exists.
	FindEntityByNameAndType(ctx context.Context, name, entityType string) (*domain.StoredEntity, error)

	// FindEntitiesByType returns all stored entities of the given type for
	// the fuzzy scan.
	FindEntitiesByType(ctx context.Context, entityType string) ([]*domain.StoredEntity, error)

	// UpdateEntityConfidence raises a stored entity's confidence in place.
	UpdateEntityConfidence(ctx context.Context, entityID string, confidence float64) error

	// CreateEntity persists a new stored entity and returns its id.
	CreateEntity(ctx context.Context, entity domain.ExtractedEntity, embedding []float32) (string, error)
}

// Deduplicator decides create-vs-resolve for each candidate entity: exact
// (name, type) match first, then fuzzy-name match within the type, then a
// fresh row. Store errors propagate to the caller.
type Deduplicator struct {
	store     EntityStore
	threshold float64
	log       *logger.Logger
}

func NewDeduplicator(store EntityStore, threshold float64, baseLog *logger.Logger) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Deduplicator{
		store:     store,
		threshold: threshold,
		log:       baseLog.With("component", "EntityDeduplicator"),
	}
}

// FindOrCreate resolves a candidate to an entity id. First match wins:
//  1. exact (name, type) — existing id, no writes;
//  2. fuzzy name within type strictly above the threshold — existing id,
//     raising the stored confidence when the candidate's is higher;
//  3. otherwise a new entity, optionally carrying an embedding.
func (d *Deduplicator) FindOrCreate(ctx context.Context, entity domain.ExtractedEntity, embedding []float32) (string, error) {
	exact, err := d.store.FindEntityByNameAndType(ctx, entity.EntityName, entity.EntityType)
	if err != nil {
		return "", err
	}
	if exact != nil {
		d.log.Debug("entity exact match",
			"entity_name", entity.EntityName, "entity_type", entity.EntityType, "entity_id", exact.ID)
		return exact.ID, nil
	}

	duplicate, similarity, err := d.findDuplicate(ctx, entity.EntityName, entity.EntityType)
	if err != nil {
		return "", err
	}
	if duplicate != nil {
		// Self-update of the surviving entity's score, not a merge of two
		// distinct entities.
		if entity.ConfidenceScore > duplicate.ConfidenceScore {
			if err := d.store.UpdateEntityConfidence(ctx, duplicate.ID, entity.ConfidenceScore); err != nil {
				return "", err
			}
		}
		d.log.Info("entity deduplicated",
			"new_entity_name", entity.EntityName, "existing_entity_name", duplicate.Name,
			"similarity", similarity, "entity_id", duplicate.ID)
		return duplicate.ID, nil
	}

	id, err := d.store.CreateEntity(ctx, entity, embedding)
	if err != nil {
		return "", err
	}
	d.log.Debug("entity created",
		"entity_name", entity.EntityName, "entity_type", entity.EntityType, "entity_id", id)
	return id, nil
}

// findDuplicate scans stored entities of the same type and returns the
// highest-similarity candidate strictly above the threshold. The scan is
// linear in same-type cardinality; acceptable at per-document batch volumes.
func (d *Deduplicator) findDuplicate(ctx context.Context, name, entityType string) (*domain.StoredEntity, float64, error) {
	candidates, err := d.store.FindEntitiesByType(ctx, entityType)
	if err != nil {
		return nil, 0, err
	}

	var best *domain.StoredEntity
	bestSimilarity := 0.0
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		similarity := similarityRatio(name, candidate.Name)
		d.log.Debug("fuzzy match check",
			"entity_name", name, "candidate_name", candidate.Name,
			"similarity", similarity, "threshold", d.threshold)
		if similarity > bestSimilarity && similarity > d.threshold {
			bestSimilarity = similarity
			best = candidate
		}
	}
	return best, bestSimilarity, nil
}
