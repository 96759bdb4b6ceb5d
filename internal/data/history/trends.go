package history

import (
	"fmt"
	"math"
	"time"
)

type TrendPoint struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	Mode            string    `json:"mode"`
	Files           int       `json:"files"`
	Rewritten       int       `json:"rewritten"`
	Unresolved      int       `json:"unresolved"`
	Broken          int       `json:"broken"`
	DeltaRewritten  int       `json:"delta_rewritten"`
	DeltaUnresolved int       `json:"delta_unresolved"`
	DeltaBroken     int       `json:"delta_broken"`
	AvgBroken       float64   `json:"avg_broken"`
	WindowHours     float64   `json:"window_hours"`
}

type TrendReport struct {
	ProjectKey string       `json:"project_key"`
	Since      time.Time    `json:"since"`
	Until      time.Time    `json:"until"`
	Window     string       `json:"window"`
	RunCount   int          `json:"run_count"`
	Points     []TrendPoint `json:"points"`
}

// BuildTrendReport turns runs (oldest first) into deltas and a moving
// average of broken links over window.
func BuildTrendReport(projectKey string, runs []Run, window time.Duration) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs recorded for %q", projectKeyOrDefault(projectKey))
	}

	points := make([]TrendPoint, 0, len(runs))
	for i, current := range runs {
		point := TrendPoint{
			RunID:      current.ID,
			StartedAt:  current.StartedAt,
			Mode:       current.Mode,
			Files:      current.Files,
			Rewritten:  current.Rewritten,
			Unresolved: current.Unresolved,
			Broken:     current.Broken,
		}
		if i > 0 {
			prev := runs[i-1]
			point.DeltaRewritten = current.Rewritten - prev.Rewritten
			point.DeltaUnresolved = current.Unresolved - prev.Unresolved
			point.DeltaBroken = current.Broken - prev.Broken
		}
		point.AvgBroken = round2(movingAverage(runs, i, window))
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		ProjectKey: projectKeyOrDefault(projectKey),
		Since:      runs[0].StartedAt,
		Until:      runs[len(runs)-1].StartedAt,
		Window:     window.String(),
		RunCount:   len(points),
		Points:     points,
	}, nil
}

func movingAverage(runs []Run, index int, window time.Duration) float64 {
	if window <= 0 {
		return float64(runs[index].Broken)
	}
	cutoff := runs[index].StartedAt.Add(-window)
	total, count := 0, 0
	for i := index; i >= 0; i-- {
		if runs[i].StartedAt.Before(cutoff) {
			break
		}
		total += runs[i].Broken
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
