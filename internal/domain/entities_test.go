package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeRelationshipType(t *testing.T) {
	rt, err := NormalizeRelationshipType("related_to")
	if err != nil {
		t.Fatalf("expected lowercase vocabulary type to normalize, got %v", err)
	}
	if rt != RelRelatedTo {
		t.Fatalf("expected RELATED_TO got %s", rt)
	}

	if _, err := NormalizeRelationshipType(" depends_on "); err != nil {
		t.Fatalf("expected padded type to normalize, got %v", err)
	}

	if _, err := NormalizeRelationshipType("FRIENDS_WITH"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown type, got %v", err)
	}
	if _, err := NormalizeRelationshipType(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty type, got %v", err)
	}
}

func TestExtractedEntityValidate(t *testing.T) {
	base := ExtractedEntity{
		EntityName:       "Microsoft",
		EntityType:       "organization",
		ConfidenceScore:  0.9,
		SourceDocumentID: uuid.New(),
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid entity, got %v", err)
	}

	tooHigh := base
	tooHigh.ConfidenceScore = 1.5
	if err := tooHigh.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for confidence 1.5, got %v", err)
	}

	negative := base
	negative.ConfidenceScore = -0.1
	if err := negative.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative confidence, got %v", err)
	}

	noName := base
	noName.EntityName = "  "
	if err := noName.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}

	noDoc := base
	noDoc.SourceDocumentID = uuid.Nil
	if err := noDoc.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for nil document id, got %v", err)
	}
}

func TestEntityTypeDefinitionValidate(t *testing.T) {
	ok := EntityTypeDefinition{TypeName: "person", Description: "people"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid definition, got %v", err)
	}

	upper := EntityTypeDefinition{TypeName: "Person", Description: "people"}
	if err := upper.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for uppercase type, got %v", err)
	}

	spaced := EntityTypeDefinition{TypeName: "legal entity", Description: "orgs"}
	if err := spaced.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for spaced type, got %v", err)
	}

	noDesc := EntityTypeDefinition{TypeName: "person"}
	if err := noDesc.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing description, got %v", err)
	}
}

func TestDocumentStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to DocumentStatus }{
		{StatusQueued, StatusProcessing},
		{StatusProcessing, StatusIndexed},
		{StatusProcessing, StatusFailed},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Fatalf("expected %s -> %s to be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to DocumentStatus }{
		{StatusIndexed, StatusProcessing},
		{StatusFailed, StatusQueued},
		{StatusQueued, StatusIndexed},
		{StatusProcessing, StatusQueued},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Fatalf("expected %s -> %s to be denied", tr.from, tr.to)
		}
	}
}
