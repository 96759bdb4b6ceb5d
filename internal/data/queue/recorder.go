package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"relink/internal/core/ports"
	"relink/internal/engine/report"
)

var _ ports.HistoryRecorder = (*Recorder)(nil)

// Recorder hands summaries to a background worker so watch-mode checks never
// wait on the history database. Summaries are dropped, with a warning, when
// the worker falls behind by more than the queue capacity.
type Recorder struct {
	next   ports.HistoryRecorder
	queue  *MemoryQueue[report.Summary]
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewRecorder(next ports.HistoryRecorder, capacity int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		next:   next,
		queue:  NewMemoryQueue[report.Summary](capacity),
		logger: logger,
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

func (r *Recorder) Record(s report.Summary) error {
	if r.queue.Enqueue(s) == EnqueueDropped {
		r.logger.Warn("history queue full; dropping run", "run_id", s.RunID)
	}
	return nil
}

// Close stops accepting summaries and waits until queued ones are written.
func (r *Recorder) Close() error {
	err := r.queue.Close()
	r.wg.Wait()
	return err
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for {
		batch, err := r.queue.DequeueBatch(context.Background(), 8, time.Second)
		for _, s := range batch {
			if recErr := r.next.Record(s); recErr != nil {
				r.logger.Warn("failed to record run history", "run_id", s.RunID, "error", recErr)
			}
		}
		if errors.Is(err, io.EOF) {
			return
		}
	}
}
