package types

// DefaultPort is used for targets that do not specify one.
const DefaultPort = 80

// Target is one host/port pair to probe.
type Target struct {
	Host string
	Port int
}

// Sample is the outcome of a single connection attempt: either a
// latency in milliseconds or a failure. All failure causes (timeout,
// refusal, DNS error, unreachable) collapse into the same category.
type Sample struct {
	LatencyMs float64
	Failed    bool
}

func Latency(ms float64) Sample { return Sample{LatencyMs: ms} }

func Failure() Sample { return Sample{Failed: true} }

// MeasurementResult aggregates all samples taken for one target within
// one run. The latency fields are nil when no attempt succeeded.
type MeasurementResult struct {
	TotalSamples int
	SuccessCount int
	FailCount    int
	AvgLatencyMs *float64
	MinLatencyMs *float64
	MaxLatencyMs *float64
	Samples      []Sample
}

// TargetResult pairs a target with the aggregate of its sampling run.
type TargetResult struct {
	Target Target
	Result MeasurementResult
}
