package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"relink/internal/data/history"
)

func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("RunID\tStartedAt\tMode\tFiles\tRewritten\tUnresolved\tBroken\tDeltaRewritten\tDeltaUnresolved\tDeltaBroken\tAvgBroken\tWindowHours\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\n",
			point.RunID,
			point.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			point.Mode,
			point.Files,
			point.Rewritten,
			point.Unresolved,
			point.Broken,
			point.DeltaRewritten,
			point.DeltaUnresolved,
			point.DeltaBroken,
			point.AvgBroken,
			point.WindowHours,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
