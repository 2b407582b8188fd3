package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/docugraph/docugraph-backend/internal/domain"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
	"github.com/docugraph/docugraph-backend/internal/platform/openai"
)

// RelationshipExtractor produces candidate typed edges between entities that
// were already extracted from a document.
type RelationshipExtractor struct {
	ai  openai.Client
	log *logger.Logger
}

func NewRelationshipExtractor(ai openai.Client, baseLog *logger.Logger) *RelationshipExtractor {
	return &RelationshipExtractor{
		ai:  ai,
		log: baseLog.With("component", "RelationshipExtractor"),
	}
}

// Extract returns candidate relationships between the given entities. An
// empty entity list returns an empty result without calling the model.
// Relationship types outside the closed vocabulary fail only that candidate.
func (x *RelationshipExtractor) Extract(ctx context.Context, entities []domain.ExtractedEntity, documentText string) ([]domain.ExtractedRelationship, error) {
	if len(entities) == 0 {
		x.log.Debug("relationship extraction skipped: no entities")
		return nil, nil
	}

	docID := entities[0].SourceDocumentID
	x.log.Info("relationship extraction started", "doc_id", docID, "entity_count", len(entities))

	prompt := buildRelationshipPrompt(entities, documentText)
	raw, err := x.ai.Complete(ctx, relationshipSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	rels := x.parseResponse(raw, docID)

	x.log.Info("relationship extraction completed", "doc_id", docID, "relationship_count", len(rels))
	return rels, nil
}

type rawRelationship struct {
	SourceEntityName string `json:"source_entity_name"`
	TargetEntityName string `json:"target_entity_name"`
	RelationshipType string `json:"relationship_type"`
	confidenceAlias
}

func (x *RelationshipExtractor) parseResponse(raw string, docID uuid.UUID) []domain.ExtractedRelationship {
	items, outcome := decodeArray(raw)
	switch outcome {
	case outcomeNoArray:
		x.log.Warn("no JSON array in model output", "doc_id", docID, "response_head", head(raw, 200))
		return nil
	case outcomeBadJSON:
		x.log.Warn("model output array is not valid JSON", "doc_id", docID, "response_head", head(raw, 200))
		return nil
	}

	rels := make([]domain.ExtractedRelationship, 0, len(items))
	for _, item := range items {
		var rr rawRelationship
		if err := json.Unmarshal(item, &rr); err != nil {
			x.log.Warn("relationship candidate dropped", "doc_id", docID, "error", err)
			continue
		}

		relType, err := domain.NormalizeRelationshipType(rr.RelationshipType)
		if err != nil {
			x.log.Warn("relationship candidate dropped",
				"doc_id", docID, "relationship_type", rr.RelationshipType, "error", err)
			continue
		}

		confidence, _ := rr.value()
		rel := domain.ExtractedRelationship{
			SourceEntityName: rr.SourceEntityName,
			TargetEntityName: rr.TargetEntityName,
			RelationshipType: relType,
			ConfidenceScore:  confidence,
			SourceDocumentID: docID,
		}
		if err := rel.Validate(); err != nil {
			x.log.Warn("relationship candidate dropped",
				"doc_id", docID, "source", rr.SourceEntityName, "target", rr.TargetEntityName, "error", err)
			continue
		}

		rels = append(rels, rel)
		x.log.Debug("relationship extracted",
			"source", rel.SourceEntityName, "target", rel.TargetEntityName,
			"relationship_type", rel.RelationshipType, "confidence_score", rel.ConfidenceScore)
	}
	return rels
}
