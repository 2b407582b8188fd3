package extract

import (
	"fmt"
	"strings"

	"github.com/docugraph/docugraph-backend/internal/domain"
)

const (
	entitySystemPrompt       = "You are an expert entity extraction system. Extract entities from documents and return valid JSON arrays."
	relationshipSystemPrompt = "You are an expert relationship extraction system. Extract relationships between entities and return valid JSON arrays."

	// Document prefix passed to relationship extraction, for prompt-size control.
	relationshipDocumentLimit = 2000

	maxExamplesPerType = 3
)

// buildEntityPrompt renders the extraction instructions for one document,
// embedding the catalog's type names, descriptions and up to three examples
// per type, plus the literal JSON-array output contract.
func buildEntityPrompt(types []domain.EntityTypeDefinition, documentText string) string {
	var b strings.Builder

	b.WriteString("You are an expert entity extraction system. Extract entities from the following document and return them as a JSON array.\n\n")

	b.WriteString("**Entity Types to Extract:**\n")
	for _, t := range types {
		examples := t.Examples
		if len(examples) > maxExamplesPerType {
			examples = examples[:maxExamplesPerType]
		}
		fmt.Fprintf(&b, "- **%s**: %s\n  Examples: %s\n", t.TypeName, t.Description, strings.Join(examples, ", "))
	}

	b.WriteString("\n**Output Format:**\n")
	b.WriteString("Return a valid JSON array with this structure:\n")
	b.WriteString(`[
  {
    "entity_name": "string",
    "entity_type": "string (one of the types listed above)",
    "confidence": "float (0.0-1.0)",
    "text_span": "string (e.g., 'char 245-260')"
  }
]
`)

	b.WriteString("\n**Instructions:**\n")
	b.WriteString("1. Extract ALL relevant entities that match the entity types listed above\n")
	b.WriteString("2. Assign a confidence score (0.0-1.0) based on extraction certainty\n")
	b.WriteString("3. Record the text_span where the entity appears (character range or page/paragraph)\n")
	b.WriteString("4. Only extract entities that clearly match one of the defined types\n")
	b.WriteString("5. Return ONLY the JSON array, no additional text or explanation\n")

	b.WriteString("\n**Document Text:**\n")
	b.WriteString(documentText)
	b.WriteString("\n\n**Extracted Entities (JSON Array):**\n")

	return b.String()
}

// buildRelationshipPrompt renders the relationship extraction instructions
// over already-extracted entities plus a bounded document prefix.
func buildRelationshipPrompt(entities []domain.ExtractedEntity, documentText string) string {
	if len(documentText) > relationshipDocumentLimit {
		documentText = documentText[:relationshipDocumentLimit]
	}

	var b strings.Builder

	b.WriteString("You are an expert at identifying relationships between entities in documents.\n\n")

	b.WriteString("DOCUMENT TEXT:\n")
	b.WriteString(documentText)
	b.WriteString("\n\nEXTRACTED ENTITIES:\n")
	for _, e := range entities {
		fmt.Fprintf(&b, "- %s (%s)\n", e.EntityName, e.EntityType)
	}

	b.WriteString("\nTASK:\n")
	b.WriteString("Identify relationships between the entities above. For each relationship, provide:\n")
	b.WriteString("- source_entity_name: Name of the source entity\n")
	b.WriteString("- target_entity_name: Name of the target entity\n")
	types := make([]string, 0, len(domain.RelationshipTypes()))
	for _, rt := range domain.RelationshipTypes() {
		types = append(types, string(rt))
	}
	fmt.Fprintf(&b, "- relationship_type: One of [%s]\n", strings.Join(types, ", "))
	b.WriteString("- confidence_score: Confidence score between 0.0 and 1.0\n")

	b.WriteString("\nRELATIONSHIP TYPE DEFINITIONS:\n")
	b.WriteString("- MENTIONS: Entity A mentions entity B in the text\n")
	b.WriteString("- RELATED_TO: Generic semantic relationship between entities\n")
	b.WriteString("- PART_OF: Entity A is part of entity B (e.g., \"Database Admin\" PART_OF \"Engineering\")\n")
	b.WriteString("- IMPLEMENTS: Technology implements a concept (e.g., \"PostgreSQL\" IMPLEMENTS \"Database\")\n")
	b.WriteString("- DEPENDS_ON: Dependency relationship (e.g., \"API Service\" DEPENDS_ON \"Neo4j\")\n")
	b.WriteString("- LOCATED_IN: Geographic relationship (e.g., \"Google\" LOCATED_IN \"San Francisco\")\n")
	b.WriteString("- AUTHORED_BY: Document authorship (e.g., \"Resume\" AUTHORED_BY \"John Doe\")\n")

	b.WriteString("\nReturn ONLY a JSON array of relationships. Example:\n")
	b.WriteString("```json\n")
	b.WriteString(`[
  {
    "source_entity_name": "Python",
    "target_entity_name": "Programming Skills",
    "relationship_type": "PART_OF",
    "confidence_score": 0.95
  }
]
`)
	b.WriteString("```\n\nReturn the JSON array now:")

	return b.String()
}
