package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/latwatchhq/agent/pkg/types"
)

const unavailable = "N/A"

// fieldOrder fixes how the key=value tokens appear in every line.
var fieldOrder = []string{
	"source",
	"host",
	"port",
	"total_samples",
	"success_count",
	"fail_count",
	"avg_latency",
	"min_latency",
	"max_latency",
	"samples",
}

// Render formats one line per result. Each field is padded to the
// widest rendering of that field across all rows plus one, so lines
// written consecutively form aligned columns.
func Render(source string, results []types.TargetResult) []string {
	if len(results) == 0 {
		return nil
	}

	rows := make([]map[string]string, 0, len(results))
	for _, tr := range results {
		rows = append(rows, renderFields(source, tr))
	}

	widths := make(map[string]int, len(fieldOrder))
	for _, row := range rows {
		for _, name := range fieldOrder {
			if w := len(row[name]) + 1; w > widths[name] {
				widths[name] = w
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, 0, len(fieldOrder))
		for _, name := range fieldOrder {
			parts = append(parts, fmt.Sprintf("%-*s", widths[name], row[name]))
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return lines
}

func renderFields(source string, tr types.TargetResult) map[string]string {
	result := tr.Result
	return map[string]string{
		"source":        "source=" + source,
		"host":          "host=" + tr.Target.Host,
		"port":          "port=" + strconv.Itoa(tr.Target.Port),
		"total_samples": "total_samples=" + strconv.Itoa(result.TotalSamples),
		"success_count": "success_count=" + strconv.Itoa(result.SuccessCount),
		"fail_count":    "fail_count=" + strconv.Itoa(result.FailCount),
		"avg_latency":   "avg_latency=" + latencyValue(result.AvgLatencyMs),
		"min_latency":   "min_latency=" + latencyValue(result.MinLatencyMs),
		"max_latency":   "max_latency=" + latencyValue(result.MaxLatencyMs),
		"samples":       "samples=" + joinSamples(result.Samples),
	}
}

func latencyValue(ms *float64) string {
	if ms == nil {
		return unavailable
	}
	return fmt.Sprintf("%.2fms", *ms)
}

func joinSamples(samples []types.Sample) string {
	parts := make([]string, 0, len(samples))
	for _, sample := range samples {
		if sample.Failed {
			parts = append(parts, "fail")
		} else {
			parts = append(parts, fmt.Sprintf("%.2f", sample.LatencyMs))
		}
	}
	return strings.Join(parts, ";")
}
