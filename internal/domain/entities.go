package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TextSpanNotFound is the sentinel recorded when an extracted entity name
// cannot be located in the source document text.
const TextSpanNotFound = "not found"

// EntityTypeDefinition is one allowed entity type from the catalog file.
// Immutable once loaded.
type EntityTypeDefinition struct {
	TypeName    string   `yaml:"type_name" json:"type_name"`
	Description string   `yaml:"description" json:"description"`
	Examples    []string `yaml:"examples" json:"examples"`
}

// Validate enforces the catalog key contract: lowercase, no internal spaces.
func (d EntityTypeDefinition) Validate() error {
	if strings.TrimSpace(d.TypeName) == "" {
		return fmt.Errorf("%w: type_name is required", ErrInvalidInput)
	}
	if d.TypeName != strings.ToLower(d.TypeName) {
		return fmt.Errorf("%w: type_name %q must be lowercase", ErrInvalidInput, d.TypeName)
	}
	if strings.Contains(d.TypeName, " ") {
		return fmt.Errorf("%w: type_name %q cannot contain spaces", ErrInvalidInput, d.TypeName)
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%w: entity type %q missing description", ErrInvalidInput, d.TypeName)
	}
	return nil
}

// ExtractedEntity is a candidate entity produced by one extraction call.
// Not mutated after creation; deduplication either stores it or resolves it
// to an existing stored entity.
type ExtractedEntity struct {
	EntityName       string    `json:"entity_name"`
	EntityType       string    `json:"entity_type"`
	ConfidenceScore  float64   `json:"confidence_score"`
	SourceDocumentID uuid.UUID `json:"source_document_id"`
	TextSpan         string    `json:"text_span,omitempty"`
}

func (e ExtractedEntity) Validate() error {
	if strings.TrimSpace(e.EntityName) == "" {
		return fmt.Errorf("%w: entity_name is required", ErrValidation)
	}
	if strings.TrimSpace(e.EntityType) == "" {
		return fmt.Errorf("%w: entity_type is required", ErrValidation)
	}
	if e.ConfidenceScore < 0.0 || e.ConfidenceScore > 1.0 {
		return fmt.Errorf("%w: confidence_score %v outside [0.0, 1.0]", ErrValidation, e.ConfidenceScore)
	}
	if e.SourceDocumentID == uuid.Nil {
		return fmt.Errorf("%w: source_document_id is required", ErrValidation)
	}
	return nil
}

// RelationshipType is the closed vocabulary for typed edges between entities.
type RelationshipType string

const (
	RelMentions   RelationshipType = "MENTIONS"
	RelRelatedTo  RelationshipType = "RELATED_TO"
	RelPartOf     RelationshipType = "PART_OF"
	RelImplements RelationshipType = "IMPLEMENTS"
	RelDependsOn  RelationshipType = "DEPENDS_ON"
	RelLocatedIn  RelationshipType = "LOCATED_IN"
	RelAuthoredBy RelationshipType = "AUTHORED_BY"
)

// RelationshipTypes lists the closed vocabulary in prompt order.
func RelationshipTypes() []RelationshipType {
	return []RelationshipType{
		RelMentions, RelRelatedTo, RelPartOf, RelImplements,
		RelDependsOn, RelLocatedIn, RelAuthoredBy,
	}
}

// NormalizeRelationshipType uppercases a raw relationship type and rejects
// anything outside the closed vocabulary.
func NormalizeRelationshipType(raw string) (RelationshipType, error) {
	rt := RelationshipType(strings.ToUpper(strings.TrimSpace(raw)))
	switch rt {
	case RelMentions, RelRelatedTo, RelPartOf, RelImplements, RelDependsOn, RelLocatedIn, RelAuthoredBy:
		return rt, nil
	default:
		return "", fmt.Errorf("%w: relationship_type %q not in vocabulary", ErrValidation, raw)
	}
}

// ExtractedRelationship is a candidate typed edge between two named entities.
type ExtractedRelationship struct {
	SourceEntityName string           `json:"source_entity_name"`
	TargetEntityName string           `json:"target_entity_name"`
	RelationshipType RelationshipType `json:"relationship_type"`
	ConfidenceScore  float64          `json:"confidence_score"`
	SourceDocumentID uuid.UUID        `json:"source_document_id"`
}

func (r ExtractedRelationship) Validate() error {
	if strings.TrimSpace(r.SourceEntityName) == "" {
		return fmt.Errorf("%w: source_entity_name is required", ErrValidation)
	}
	if strings.TrimSpace(r.TargetEntityName) == "" {
		return fmt.Errorf("%w: target_entity_name is required", ErrValidation)
	}
	if _, err := NormalizeRelationshipType(string(r.RelationshipType)); err != nil {
		return err
	}
	if r.ConfidenceScore < 0.0 || r.ConfidenceScore > 1.0 {
		return fmt.Errorf("%w: confidence_score %v outside [0.0, 1.0]", ErrValidation, r.ConfidenceScore)
	}
	return nil
}

// StoredEntity is the graph-store side of an entity: one node per logical
// entity after deduplication.
type StoredEntity struct {
	ID              string
	Name            string
	Type            string
	ConfidenceScore float64
	Embedding       []float32
	SourceDocID     uuid.UUID
	CreatedAt       time.Time
}
