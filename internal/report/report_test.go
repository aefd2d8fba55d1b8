package report

import (
	"strings"
	"testing"

	"github.com/latwatchhq/agent/pkg/types"
)

func ptr(v float64) *float64 {
	return &v
}

func successResult(latencies ...float64) types.MeasurementResult {
	result := types.MeasurementResult{
		TotalSamples: len(latencies),
		SuccessCount: len(latencies),
	}
	var sum float64
	min, max := latencies[0], latencies[0]
	for _, ms := range latencies {
		result.Samples = append(result.Samples, types.Latency(ms))
		sum += ms
		if ms < min {
			min = ms
		}
		if ms > max {
			max = ms
		}
	}
	result.AvgLatencyMs = ptr(sum / float64(len(latencies)))
	result.MinLatencyMs = ptr(min)
	result.MaxLatencyMs = ptr(max)
	return result
}

func TestRenderFieldOrderAndValues(t *testing.T) {
	results := []types.TargetResult{{
		Target: types.Target{Host: "example.com", Port: 80},
		Result: successResult(10, 10),
	}}

	lines := Render("vm1", results)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	want := []string{
		"source=vm1",
		"host=example.com",
		"port=80",
		"total_samples=2",
		"success_count=2",
		"fail_count=0",
		"avg_latency=10.00ms",
		"min_latency=10.00ms",
		"max_latency=10.00ms",
		"samples=10.00;10.00",
	}
	got := strings.Fields(lines[0])
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %q", len(want), len(got), lines[0])
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRenderUnavailableLatencies(t *testing.T) {
	results := []types.TargetResult{{
		Target: types.Target{Host: "203.0.113.9", Port: 3306},
		Result: types.MeasurementResult{
			TotalSamples: 2,
			FailCount:    2,
			Samples:      []types.Sample{types.Failure(), types.Failure()},
		},
	}}

	line := Render("vm1", results)[0]
	for _, token := range []string{"avg_latency=N/A", "min_latency=N/A", "max_latency=N/A", "samples=fail;fail"} {
		if !strings.Contains(line, token) {
			t.Fatalf("expected %q in line %q", token, line)
		}
	}
}

func TestRenderAlignsColumns(t *testing.T) {
	results := []types.TargetResult{
		{
			Target: types.Target{Host: "8.8.8.8", Port: 53},
			Result: successResult(12.34),
		},
		{
			Target: types.Target{Host: "192.168.1.101", Port: 3306},
			Result: types.MeasurementResult{
				TotalSamples: 1,
				FailCount:    1,
				Samples:      []types.Sample{types.Failure()},
			},
		},
	}

	lines := Render("probe-host", results)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	// Every field after a padded column starts at the same offset in
	// both lines.
	for _, marker := range []string{"host=", "port=", "total_samples=", "avg_latency=", "samples="} {
		first := strings.Index(lines[0], marker)
		second := strings.Index(lines[1], marker)
		if first < 0 || second < 0 {
			t.Fatalf("marker %q missing from output", marker)
		}
		if first != second {
			t.Fatalf("column %q misaligned: %d vs %d\n%q\n%q", marker, first, second, lines[0], lines[1])
		}
	}

	// The host column must be padded past the longest host value.
	hostStart := strings.Index(lines[0], "host=")
	portStart := strings.Index(lines[0], "port=")
	if width := portStart - hostStart; width < len("host=192.168.1.101")+1 {
		t.Fatalf("host column too narrow: %d", width)
	}
}

func TestRenderEmpty(t *testing.T) {
	if lines := Render("vm1", nil); lines != nil {
		t.Fatalf("expected no lines for empty input, got %v", lines)
	}
}
