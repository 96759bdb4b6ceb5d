// Package report collects per-file outcomes and the checker result into a
// run summary.
package report

import (
	"sort"
	"sync"
	"time"

	"relink/internal/core/errors"
	"relink/internal/engine/checker"
	"relink/internal/engine/resolver"
	"relink/internal/engine/routes"
	"relink/internal/engine/scanner"
	"relink/internal/shared/observability"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeRewrite Mode = "rewrite"
	ModeCheck   Mode = "check"
)

type LinkStats struct {
	Files        int `json:"files"`
	FilesChanged int `json:"files_changed"`
	FileErrors   int `json:"file_errors"`

	Scanned       int `json:"scanned"`
	Internal      int `json:"internal"`
	Rewritten     int `json:"rewritten"`
	Exact         int `json:"exact"`
	CaseFixed     int `json:"case_fixed"`
	AliasResolved int `json:"alias_resolved"`
	Relocated     int `json:"relocated"`
	Unresolved    int `json:"unresolved"`

	Checked int `json:"checked"`
	Broken  int `json:"broken"`
	Ignored int `json:"ignored"`

	ByReason map[string]int `json:"by_reason"`
	ByClass  map[string]int `json:"by_class"`
}

// LinkOutcome pairs a scanned token with its resolution.
type LinkOutcome struct {
	Token  scanner.Token
	Line   int
	Result resolver.Result
}

// FileOutcome is everything one worker learned about one content file.
type FileOutcome struct {
	File    string
	Changed bool
	Links   []LinkOutcome
}

type UnresolvedLink struct {
	File   string          `json:"file"`
	Line   int             `json:"line"`
	Link   string          `json:"link"`
	Reason resolver.Reason `json:"reason"`
}

type FileError struct {
	File    string           `json:"file"`
	Phase   string           `json:"phase"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

type Summary struct {
	RunID      string           `json:"run_id"`
	Mode       Mode             `json:"mode"`
	Root       string           `json:"root"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
	Stats      LinkStats        `json:"stats"`
	Unresolved []UnresolvedLink `json:"unresolved"`
	Broken     []checker.Entry  `json:"broken"`
	FileErrors []FileError      `json:"file_errors"`
	Warnings   []routes.Warning `json:"warnings"`
}

// Aggregator is safe for concurrent use by the file workers.
type Aggregator struct {
	mu         sync.Mutex
	runID      string
	mode       Mode
	root       string
	startedAt  time.Time
	stats      LinkStats
	unresolved []UnresolvedLink
	broken     []checker.Entry
	fileErrors []FileError
	warnings   []routes.Warning
}

func NewAggregator(root string, mode Mode) *Aggregator {
	return &Aggregator{
		runID:     uuid.NewString(),
		mode:      mode,
		root:      root,
		startedAt: time.Now(),
		stats: LinkStats{
			ByReason: make(map[string]int),
			ByClass:  make(map[string]int),
		},
	}
}

func (a *Aggregator) RunID() string { return a.runID }

func (a *Aggregator) RecordFile(out FileOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Files++
	if out.Changed {
		a.stats.FilesChanged++
	}
	for _, l := range out.Links {
		class := l.Token.Class.String()
		a.stats.Scanned++
		a.stats.ByClass[class]++
		observability.TokensScannedTotal.WithLabelValues(class).Inc()
		if !l.Token.Class.Internal() {
			continue
		}
		a.stats.Internal++
		r := l.Result
		observability.ResolutionsTotal.WithLabelValues(r.Outcome.String(), string(r.Reason)).Inc()
		if r.Reason != resolver.ReasonNone {
			a.stats.ByReason[string(r.Reason)]++
		}
		switch r.Outcome {
		case resolver.Rewritten:
			a.stats.Rewritten++
			switch r.Reason {
			case resolver.ReasonExactMatch:
				a.stats.Exact++
			case resolver.ReasonCaseFixed:
				a.stats.CaseFixed++
			case resolver.ReasonAliasResolved:
				a.stats.AliasResolved++
			case resolver.ReasonRelocatedSource:
				a.stats.Relocated++
			}
		case resolver.Unresolved:
			a.stats.Unresolved++
			a.unresolved = append(a.unresolved, UnresolvedLink{
				File:   out.File,
				Line:   l.Line,
				Link:   l.Token.Value,
				Reason: r.Reason,
			})
		case resolver.Unchanged:
		}
	}
}

// RecordFileError records a file skipped in the given phase.
func (a *Aggregator) RecordFileError(file, phase string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.FileErrors++
	a.fileErrors = append(a.fileErrors, FileError{
		File:    file,
		Phase:   phase,
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	})
}

func (a *Aggregator) RecordWarnings(warnings []routes.Warning) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.warnings = append(a.warnings, warnings...)
}

// RecordCheck stores the authoritative checker result.
func (a *Aggregator) RecordCheck(res *checker.Result) {
	if res == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Checked = res.Checked
	a.stats.Broken = res.Broken
	a.stats.Ignored = res.Ignored
	a.broken = res.BrokenEntries()
	for _, fe := range res.FileErrors {
		a.stats.FileErrors++
		a.fileErrors = append(a.fileErrors, FileError{File: fe.File, Phase: "check", Code: fe.Code, Message: fe.Message})
	}
	if a.mode == ModeCheck {
		a.stats.Files = res.Files
	}
}

// Summary returns a snapshot; the aggregator can keep collecting afterwards.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := a.stats
	stats.ByReason = copyCounts(a.stats.ByReason)
	stats.ByClass = copyCounts(a.stats.ByClass)

	unresolved := append([]UnresolvedLink(nil), a.unresolved...)
	sort.SliceStable(unresolved, func(i, j int) bool {
		if unresolved[i].File != unresolved[j].File {
			return unresolved[i].File < unresolved[j].File
		}
		return unresolved[i].Line < unresolved[j].Line
	})
	fileErrors := append([]FileError(nil), a.fileErrors...)
	sort.SliceStable(fileErrors, func(i, j int) bool {
		if fileErrors[i].Phase != fileErrors[j].Phase {
			return fileErrors[i].Phase > fileErrors[j].Phase
		}
		return fileErrors[i].File < fileErrors[j].File
	})

	return Summary{
		RunID:      a.runID,
		Mode:       a.mode,
		Root:       a.root,
		StartedAt:  a.startedAt,
		Duration:   time.Since(a.startedAt),
		Stats:      stats,
		Unresolved: unresolved,
		Broken:     append([]checker.Entry(nil), a.broken...),
		FileErrors: fileErrors,
		Warnings:   append([]routes.Warning(nil), a.warnings...),
	}
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
