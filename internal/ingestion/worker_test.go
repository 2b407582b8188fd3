package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docugraph/docugraph-backend/internal/catalog"
	"github.com/docugraph/docugraph-backend/internal/data/graph"
	"github.com/docugraph/docugraph-backend/internal/domain"
	"github.com/docugraph/docugraph-backend/internal/extract"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
)

// fakeAI scripts Complete responses in call order and returns a constant
// small embedding per input.
type fakeAI struct {
	responses   []string
	completeErr error
	embedErr    error
	calls       int
}

func (f *fakeAI) Complete(ctx context.Context, system, user string) (string, error) {
	idx := f.calls
	f.calls++
	if f.completeErr != nil {
		return "", f.completeErr
	}
	if idx >= len(f.responses) {
		return "[]", nil
	}
	return f.responses[idx], nil
}

func (f *fakeAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

type docLink struct {
	documentID uuid.UUID
	entityID   string
	textSpan   string
}

// fakeGraph is an in-memory GraphStore. A mutex guards it because worker
// tests read state while Run writes from its own goroutine.
type fakeGraph struct {
	mu            sync.Mutex
	entities      []*domain.StoredEntity
	relationships []*graph.RelationshipRow
	links         []docLink
	statuses      map[uuid.UUID][]domain.DocumentStatus
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{statuses: make(map[uuid.UUID][]domain.DocumentStatus)}
}

func (g *fakeGraph) storeRow(row *graph.EntityRow) {
	docID, _ := uuid.Parse(row.SourceDocID)
	g.entities = append(g.entities, &domain.StoredEntity{
		ID:              row.ID,
		Name:            row.Name,
		Type:            row.Type,
		ConfidenceScore: row.ConfidenceScore,
		Embedding:       row.Embedding,
		SourceDocID:     docID,
	})
}

func (g *fakeGraph) CreateEntitiesBulk(ctx context.Context, rows []*graph.EntityRow) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range rows {
		g.storeRow(r)
	}
	return nil
}

func (g *fakeGraph) CreateEntityRow(ctx context.Context, row *graph.EntityRow) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.storeRow(row)
	return nil
}

func (g *fakeGraph) CreateRelationshipsBulk(ctx context.Context, rows []*graph.RelationshipRow) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.relationships = append(g.relationships, rows...)
	return nil
}

func (g *fakeGraph) CreateRelationshipRow(ctx context.Context, row *graph.RelationshipRow) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.relationships = append(g.relationships, row)
	return nil
}

func (g *fakeGraph) FindEntityByNameAndType(ctx context.Context, name, entityType string) (*domain.StoredEntity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entities {
		if e.Name == name && e.Type == entityType {
			return e, nil
		}
	}
	return nil, nil
}

func (g *fakeGraph) FindEntitiesByType(ctx context.Context, entityType string) ([]*domain.StoredEntity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*domain.StoredEntity
	for _, e := range g.entities {
		if e.Type == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (g *fakeGraph) UpdateEntityConfidence(ctx context.Context, entityID string, confidence float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entities {
		if e.ID == entityID {
			e.ConfidenceScore = confidence
		}
	}
	return nil
}

func (g *fakeGraph) LinkDocumentEntity(ctx context.Context, documentID uuid.UUID, entityID string, textSpan string, confidence float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.links = append(g.links, docLink{documentID: documentID, entityID: entityID, textSpan: textSpan})
	return nil
}

func (g *fakeGraph) UpsertDocument(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[documentID] = append(g.statuses[documentID], status)
	return nil
}

func (g *fakeGraph) UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[documentID] = append(g.statuses[documentID], status)
	return nil
}

func (g *fakeGraph) statusHistory(documentID uuid.UUID) []domain.DocumentStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.DocumentStatus, len(g.statuses[documentID]))
	copy(out, g.statuses[documentID])
	return out
}

func workerCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.NewStatic([]domain.EntityTypeDefinition{
		{TypeName: "person", Description: "Individual people"},
		{TypeName: "organization", Description: "Companies and institutions"},
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return cat
}

func newTestWorker(t *testing.T, queue Queue, store GraphStore, ai *fakeAI) *Worker {
	t.Helper()
	log := logger.NewNop()
	return NewWorker(
		queue,
		store,
		ai,
		extract.NewEntityExtractor(workerCatalog(t), ai, log),
		extract.NewRelationshipExtractor(ai, log),
		log,
	)
}

func TestProcessDocument(t *testing.T) {
	store := newFakeGraph()
	ai := &fakeAI{responses: []string{
		// Entity pass: one duplicate name resolves within the document.
		`[` +
			`{"entity_name": "Microsoft", "entity_type": "organization", "confidence_score": 0.95},` +
			`{"entity_name": "Satya Nadella", "entity_type": "person", "confidence_score": 0.9},` +
			`{"entity_name": "Microsoft", "entity_type": "organization", "confidence_score": 0.8}` +
			`]`,
		// Relationship pass.
		`[{"source_entity_name": "Satya Nadella", "target_entity_name": "Microsoft", "relationship_type": "RELATED_TO", "confidence_score": 0.85}]`,
	}}
	w := newTestWorker(t, NewMemoryQueue(0), store, ai)

	docID := uuid.New()
	w.Process(context.Background(), &Task{DocumentID: docID, Text: "Satya Nadella leads Microsoft."})

	if got := store.statusHistory(docID); len(got) != 2 || got[0] != domain.StatusProcessing || got[1] != domain.StatusIndexed {
		t.Fatalf("unexpected status history: %v", got)
	}
	if len(store.entities) != 2 {
		t.Fatalf("expected duplicate name to dedup to 2 entities, got %d", len(store.entities))
	}
	if len(store.links) != 3 {
		t.Fatalf("expected a document link per candidate, got %d", len(store.links))
	}
	if len(store.relationships) != 1 {
		t.Fatalf("expected 1 relationship, got %d", len(store.relationships))
	}
	rel := store.relationships[0]
	if rel.RelType != "RELATED_TO" || rel.SourceDocID != docID.String() {
		t.Fatalf("unexpected relationship row: %+v", rel)
	}
	for _, e := range store.entities {
		if len(e.Embedding) == 0 {
			t.Fatalf("expected embeddings on created entities")
		}
	}
}

func TestProcessEmptyDocument(t *testing.T) {
	store := newFakeGraph()
	ai := &fakeAI{}
	w := newTestWorker(t, NewMemoryQueue(0), store, ai)

	docID := uuid.New()
	w.Process(context.Background(), &Task{DocumentID: docID, Text: "   "})

	if got := store.statusHistory(docID); len(got) != 2 || got[1] != domain.StatusIndexed {
		t.Fatalf("expected empty document to index directly, history %v", got)
	}
	if ai.calls != 0 {
		t.Fatalf("expected no model calls for empty document, got %d", ai.calls)
	}
	if len(store.entities) != 0 || len(store.links) != 0 {
		t.Fatalf("expected no graph writes for empty document")
	}
}

func TestProcessExtractionFailure(t *testing.T) {
	store := newFakeGraph()
	ai := &fakeAI{completeErr: errors.New("model unavailable")}
	w := newTestWorker(t, NewMemoryQueue(0), store, ai)

	docID := uuid.New()
	w.Process(context.Background(), &Task{DocumentID: docID, Text: "some text"})

	got := store.statusHistory(docID)
	if len(got) != 2 || got[1] != domain.StatusFailed {
		t.Fatalf("expected document to fail, history %v", got)
	}
}

func TestProcessEmbeddingFailureDegrades(t *testing.T) {
	store := newFakeGraph()
	ai := &fakeAI{
		embedErr: errors.New("embeddings down"),
		responses: []string{
			`[{"entity_name": "Microsoft", "entity_type": "organization", "confidence_score": 0.95}]`,
			"[]",
		},
	}
	w := newTestWorker(t, NewMemoryQueue(0), store, ai)

	docID := uuid.New()
	w.Process(context.Background(), &Task{DocumentID: docID, Text: "Microsoft ships software."})

	if got := store.statusHistory(docID); len(got) != 2 || got[1] != domain.StatusIndexed {
		t.Fatalf("expected indexing to survive embedding failure, history %v", got)
	}
	if len(store.entities) != 1 || store.entities[0].Embedding != nil {
		t.Fatalf("expected entity without embedding, got %+v", store.entities)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := newTestWorker(t, NewMemoryQueue(0), newFakeGraph(), &fakeAI{})
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop on canceled context")
	}
}

func TestRunConsumesQueue(t *testing.T) {
	store := newFakeGraph()
	queue := NewMemoryQueue(4)
	w := newTestWorker(t, queue, store, &fakeAI{})

	docID := uuid.New()
	if err := queue.Enqueue(context.Background(), Task{DocumentID: docID, Text: ""}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		history := store.statusHistory(docID)
		if len(history) == 2 && history[1] == domain.StatusIndexed {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("document was not processed, history %v", history)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop after cancel")
	}
}

func TestMemoryQueueTimeout(t *testing.T) {
	q := NewMemoryQueue(1)
	task, err := q.Dequeue(context.Background(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task on timeout")
	}

	want := Task{DocumentID: uuid.New(), Text: "body"}
	if err := q.Enqueue(context.Background(), want); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, err := q.Dequeue(context.Background(), time.Second)
	if err != nil || got == nil {
		t.Fatalf("dequeue: task=%v err=%v", got, err)
	}
	if got.DocumentID != want.DocumentID || got.Text != want.Text {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
