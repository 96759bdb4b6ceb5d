package history

import (
	"time"

	"relink/internal/engine/report"
)

// Adapter records report summaries in a Store.
type Adapter struct {
	store      *Store
	projectKey string
}

func NewAdapter(store *Store, projectKey string) *Adapter {
	return &Adapter{store: store, projectKey: projectKeyOrDefault(projectKey)}
}

// Record stores the summary's counts, its broken links and its unresolved links.
func (a *Adapter) Record(s report.Summary) error {
	run := Run{
		ID:           s.RunID,
		ProjectKey:   a.projectKey,
		Mode:         string(s.Mode),
		StartedAt:    s.StartedAt,
		Duration:     s.Duration,
		Files:        s.Stats.Files,
		FilesChanged: s.Stats.FilesChanged,
		FileErrors:   s.Stats.FileErrors,
		Scanned:      s.Stats.Scanned,
		Internal:     s.Stats.Internal,
		Rewritten:    s.Stats.Rewritten,
		Unresolved:   s.Stats.Unresolved,
		Checked:      s.Stats.Checked,
		Broken:       s.Stats.Broken,
		Ignored:      s.Stats.Ignored,
		Warnings:     len(s.Warnings),
	}

	checks := make([]LinkCheck, 0, len(s.Broken)+len(s.Unresolved))
	for _, b := range s.Broken {
		checks = append(checks, LinkCheck{RunID: s.RunID, File: b.File, Line: b.Line, Link: b.Link, Status: string(b.Status), Reason: b.Reason})
	}
	for _, u := range s.Unresolved {
		checks = append(checks, LinkCheck{RunID: s.RunID, File: u.File, Line: u.Line, Link: u.Link, Status: "unresolved", Reason: string(u.Reason)})
	}
	return a.store.SaveRun(run, checks)
}

func (a *Adapter) Runs() ([]Run, error) {
	return a.store.LoadRuns(a.projectKey, time.Time{})
}
