package ports

import (
	"context"

	"relink/internal/data/history"
	"relink/internal/engine/report"
)

// HistoryRecorder persists finished run summaries.
type HistoryRecorder interface {
	Record(summary report.Summary) error
}

// HistoryReader lists recorded runs for trend output.
type HistoryReader interface {
	Runs() ([]history.Run, error)
}

// LinkService is the driving port used by the CLI.
type LinkService interface {
	// Run rewrites links in the project and then checks the final tree.
	Run(ctx context.Context) (report.Summary, error)
	// Check validates the tree without writing anything.
	Check(ctx context.Context) (report.Summary, error)
	// Watch re-checks the tree on every debounced batch of changes until ctx
	// is cancelled.
	Watch(ctx context.Context, onSummary func(report.Summary)) error
	Close() error
}
