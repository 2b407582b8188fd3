// Package ingestion runs the document pipeline: it consumes queued
// documents one at a time, extracts entities and relationships, resolves
// duplicates, and persists the result to the graph.
package ingestion

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task is one queued document awaiting indexing.
type Task struct {
	DocumentID uuid.UUID         `json:"document_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Queue hands tasks to the worker. Dequeue blocks up to wait and returns
// (nil, nil) when no task arrived in time.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context, wait time.Duration) (*Task, error)
}

// MemoryQueue is an in-process Queue backed by a buffered channel. It backs
// single-node deployments without Redis and the worker tests.
type MemoryQueue struct {
	ch chan Task
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{ch: make(chan Task, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.ch <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (*Task, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case task := <-q.ch:
		return &task, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of tasks waiting in the buffer.
func (q *MemoryQueue) Len() int { return len(q.ch) }
