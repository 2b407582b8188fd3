package graph

// EntityRow is the wire shape of one entity node write.
type EntityRow struct {
	ID              string
	Name            string
	Type            string
	ConfidenceScore float64
	Embedding       []float32
	SourceDocID     string
}

func (r *EntityRow) params() map[string]any {
	// The driver wants []any for list properties; nil stays nil so the
	// property is absent for entities without an embedding.
	var embedding []any
	if len(r.Embedding) > 0 {
		embedding = make([]any, len(r.Embedding))
		for i, v := range r.Embedding {
			embedding[i] = float64(v)
		}
	}
	return map[string]any{
		"id":               r.ID,
		"name":             r.Name,
		"type":             r.Type,
		"confidence_score": r.ConfidenceScore,
		"embedding":        embedding,
		"source_doc_id":    r.SourceDocID,
	}
}

// RelationshipRow is the wire shape of one relationship edge write.
// Endpoints are referenced by entity name.
type RelationshipRow struct {
	ID          string
	SourceName  string
	TargetName  string
	RelType     string
	Confidence  float64
	SourceDocID string
}

func (r *RelationshipRow) params() map[string]any {
	return map[string]any{
		"id":            r.ID,
		"source_name":   r.SourceName,
		"target_name":   r.TargetName,
		"rel_type":      r.RelType,
		"confidence":    r.Confidence,
		"source_doc_id": r.SourceDocID,
	}
}
