// Package extract turns raw document text into candidate entities and
// relationships via prompt-driven LLM extraction.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docugraph/docugraph-backend/internal/catalog"
	"github.com/docugraph/docugraph-backend/internal/domain"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
	"github.com/docugraph/docugraph-backend/internal/platform/openai"
)

// Document is the extraction input: a document id plus its raw text.
type Document struct {
	ID   uuid.UUID
	Text string
}

// EntityExtractor composes the prompt builder, the LLM gateway and the
// response parser to produce candidate entities for one document.
type EntityExtractor struct {
	catalog *catalog.Catalog
	ai      openai.Client
	log     *logger.Logger
}

func NewEntityExtractor(cat *catalog.Catalog, ai openai.Client, baseLog *logger.Logger) *EntityExtractor {
	return &EntityExtractor{
		catalog: cat,
		ai:      ai,
		log:     baseLog.With("component", "EntityExtractor"),
	}
}

// Extract returns the candidate entities found in the document. A response
// without a parseable JSON array yields an empty list, not an error; single
// invalid candidates are dropped with a warning.
func (x *EntityExtractor) Extract(ctx context.Context, doc Document) ([]domain.ExtractedEntity, error) {
	if doc.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.Text) == "" {
		// Nothing to extract; the empty-result contract holds without an
		// LLM round trip.
		return nil, nil
	}

	x.log.Info("entity extraction started",
		"doc_id", doc.ID, "text_length", len(doc.Text), "entity_type_count", x.catalog.Len())

	prompt := buildEntityPrompt(x.catalog.Types(), doc.Text)
	raw, err := x.ai.Complete(ctx, entitySystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	entities := x.parseResponse(raw, doc)

	x.log.Info("entity extraction completed", "doc_id", doc.ID, "entity_count", len(entities))
	return entities, nil
}

type rawEntity struct {
	EntityName string `json:"entity_name"`
	EntityType string `json:"entity_type"`
	TextSpan   string `json:"text_span"`
	confidenceAlias
}

func (x *EntityExtractor) parseResponse(raw string, doc Document) []domain.ExtractedEntity {
	items, outcome := decodeArray(raw)
	switch outcome {
	case outcomeNoArray:
		x.log.Warn("no JSON array in model output", "doc_id", doc.ID, "response_head", head(raw, 200))
		return nil
	case outcomeBadJSON:
		x.log.Warn("model output array is not valid JSON", "doc_id", doc.ID, "response_head", head(raw, 200))
		return nil
	}

	entities := make([]domain.ExtractedEntity, 0, len(items))
	for _, item := range items {
		var re rawEntity
		if err := json.Unmarshal(item, &re); err != nil {
			x.log.Warn("entity candidate dropped", "doc_id", doc.ID, "error", err)
			continue
		}

		confidence, _ := re.value()
		span := re.TextSpan
		if span == "" {
			span = findTextSpan(re.EntityName, doc.Text)
		}

		entity := domain.ExtractedEntity{
			EntityName:       re.EntityName,
			EntityType:       re.EntityType,
			ConfidenceScore:  confidence,
			SourceDocumentID: doc.ID,
			TextSpan:         span,
		}
		if err := entity.Validate(); err != nil {
			x.log.Warn("entity candidate dropped", "doc_id", doc.ID, "entity_name", re.EntityName, "error", err)
			continue
		}

		entities = append(entities, entity)
		x.log.Debug("entity extracted",
			"entity_name", entity.EntityName, "entity_type", entity.EntityType, "confidence_score", entity.ConfidenceScore)
	}
	return entities
}

// findTextSpan locates an entity name in the document via case-insensitive
// substring search, falling back to the sentinel when the model paraphrased.
func findTextSpan(entityName, documentText string) string {
	if entityName == "" {
		return domain.TextSpanNotFound
	}
	idx := strings.Index(strings.ToLower(documentText), strings.ToLower(entityName))
	if idx < 0 {
		return domain.TextSpanNotFound
	}
	return fmt.Sprintf("char %d-%d", idx, idx+len(entityName))
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
