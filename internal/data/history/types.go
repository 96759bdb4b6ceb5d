package history

import "time"

const SchemaVersion = 2

// Run is one persisted pipeline run.
type Run struct {
	ID            string
	ProjectKey    string
	SchemaVersion int
	Mode          string
	StartedAt     time.Time
	Duration      time.Duration
	Files         int
	FilesChanged  int
	FileErrors    int
	Scanned       int
	Internal      int
	Rewritten     int
	Unresolved    int
	Checked       int
	Broken        int
	Ignored       int
	Warnings      int
}

// LinkCheck is one broken or unresolved link recorded for a run.
type LinkCheck struct {
	RunID  string
	File   string
	Line   int
	Link   string
	Status string
	Reason string
}
