package report

import (
	"strings"
	"testing"
	"time"

	"relink/internal/data/history"
)

func TestRenderTrendTSV(t *testing.T) {
	report := history.TrendReport{
		ProjectKey: "site",
		Since:      time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		Until:      time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
		Window:     "24h0m0s",
		RunCount:   1,
		Points: []history.TrendPoint{
			{
				RunID:           "run-1",
				StartedAt:       time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
				Mode:            "rewrite",
				Files:           15,
				Rewritten:       4,
				Unresolved:      2,
				Broken:          1,
				DeltaRewritten:  -3,
				DeltaUnresolved: 1,
				AvgBroken:       1.5,
				WindowHours:     24,
			},
		},
	}

	out, err := RenderTrendTSV(report)
	if err != nil {
		t.Fatalf("render tsv: %v", err)
	}

	body := string(out)
	if !strings.HasPrefix(body, "RunID\tStartedAt\tMode") {
		t.Fatalf("missing header in output: %s", body)
	}
	if !strings.Contains(body, "run-1\t2026-02-13T00:00:00Z\trewrite\t15\t4\t2\t1\t-3\t1\t0\t1.50\t24.00") {
		t.Fatalf("missing row values in output: %s", body)
	}
}

func TestRenderTrendJSON(t *testing.T) {
	report := history.TrendReport{
		ProjectKey: "site",
		RunCount:   2,
	}

	out, err := RenderTrendJSON(report)
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	if !strings.Contains(string(out), "\"run_count\": 2") {
		t.Fatalf("missing run_count in json: %s", string(out))
	}
}
