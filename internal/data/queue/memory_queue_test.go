package queue

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"relink/internal/engine/report"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue[string](2)
	t.Cleanup(func() { _ = q.Close() })

	if got := q.Enqueue("a.html"); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if got := q.Enqueue("b.html"); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}

	batch, err := q.DequeueBatch(context.Background(), 2, time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 items, got %d", len(batch))
	}
	if batch[0] != "a.html" || batch[1] != "b.html" {
		t.Fatalf("unexpected order: %#v", batch)
	}
}

func TestMemoryQueue_FullQueueDrops(t *testing.T) {
	q := NewMemoryQueue[string](1)
	t.Cleanup(func() { _ = q.Close() })

	if got := q.Enqueue("a.html"); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if got := q.Enqueue("b.html"); got != EnqueueDropped {
		t.Fatalf("expected enqueue dropped, got %s", got)
	}
}

func TestMemoryQueue_CloseReturnsEOFWhenDrained(t *testing.T) {
	q := NewMemoryQueue[string](1)
	if got := q.Enqueue("a.html"); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := q.Enqueue("b.html"); got != EnqueueDropped {
		t.Fatalf("expected enqueue after close to drop, got %s", got)
	}

	batch, err := q.DequeueBatch(context.Background(), 2, 0)
	if len(batch) != 1 {
		t.Fatalf("expected 1 item after close, got %d", len(batch))
	}
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}

	batch, err = q.DequeueBatch(context.Background(), 1, 0)
	if err != io.EOF {
		t.Fatalf("expected io.EOF on empty closed queue, got %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("expected 0 items, got %d", len(batch))
	}
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []string
}

func (m *memoryRecorder) Record(s report.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, s.RunID)
	return nil
}

func TestRecorder_DrainsOnClose(t *testing.T) {
	inner := &memoryRecorder{}
	r := NewRecorder(inner, 4, nil)

	for _, id := range []string{"r1", "r2", "r3"} {
		if err := r.Record(report.Summary{RunID: id}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.runs) != 3 || inner.runs[0] != "r1" || inner.runs[2] != "r3" {
		t.Fatalf("unexpected recorded runs: %v", inner.runs)
	}
}
