package sampler

import (
	"context"
	"net"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/latwatchhq/agent/internal/metrics"
	"github.com/latwatchhq/agent/pkg/types"
)

// DefaultConnectTimeout bounds how long a single attempt may block.
const DefaultConnectTimeout = 2 * time.Second

// DialResult is the outcome of one connection attempt. Every failure
// cause (timeout, refusal, DNS error, unreachable) ends up here as a
// non-nil Err and counts as the same kind of failed sample.
type DialResult struct {
	Latency time.Duration
	Err     error
}

func (r DialResult) Failed() bool { return r.Err != nil }

// DialFunc performs one connection attempt against address.
type DialFunc func(ctx context.Context, address string, timeout time.Duration) DialResult

// Sampler measures TCP connect latency to a target over a fixed
// window. Attempts run strictly one after another.
type Sampler struct {
	connectTimeout time.Duration
	dial           DialFunc
	now            func() time.Time
	wait           func(ctx context.Context, interval time.Duration) error
	metrics        metrics.AttemptRecorder
}

type Option func(*Sampler)

func WithConnectTimeout(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

func WithDialer(fn DialFunc) Option {
	return func(s *Sampler) {
		if fn != nil {
			s.dial = fn
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Sampler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithWait(fn func(ctx context.Context, interval time.Duration) error) Option {
	return func(s *Sampler) {
		if fn != nil {
			s.wait = fn
		}
	}
}

func WithMetrics(rec metrics.AttemptRecorder) Option {
	return func(s *Sampler) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

func New(opts ...Option) *Sampler {
	s := &Sampler{
		connectTimeout: DefaultConnectTimeout,
		dial:           tcpDial,
		now:            time.Now,
		metrics:        metrics.NoopAttemptRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Measure probes target until duration elapses, pausing a full
// interval after each attempt completes, so one cycle costs dial time
// plus interval. Both successes and failures count toward the total;
// a canceled context ends the run early with the samples taken so
// far. A non-positive duration yields zero samples.
func (s *Sampler) Measure(ctx context.Context, target types.Target, duration, interval time.Duration) types.MeasurementResult {
	wait := s.wait
	if wait == nil {
		wait = pause
	}

	address := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))
	deadline := s.now().Add(duration)

	var samples []types.Sample
	for s.now().Before(deadline) {
		result := s.dial(ctx, address, s.connectTimeout)
		if result.Failed() {
			samples = append(samples, types.Failure())
		} else {
			samples = append(samples, types.Latency(float64(result.Latency)/float64(time.Millisecond)))
		}
		s.metrics.ObserveAttempt(!result.Failed())
		if err := wait(ctx, interval); err != nil {
			break
		}
	}

	return summarize(samples)
}

// pause blocks for a full interval counted from the end of the
// attempt that preceded it, so a slow dial stretches the cycle to
// dial time plus interval rather than absorbing the pause. The
// limiter is built drained so its single token refills interval from
// now.
func pause(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ctx.Err()
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}

// tcpDial measures the elapsed wall-clock time of one TCP connect.
// When the target is a hostname this includes DNS resolution, which is
// what the report has always meant by latency.
func tcpDial(ctx context.Context, address string, timeout time.Duration) DialResult {
	dialer := net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", address)
	elapsed := time.Since(start)
	if err != nil {
		return DialResult{Err: err}
	}
	conn.Close()
	return DialResult{Latency: elapsed}
}

func summarize(samples []types.Sample) types.MeasurementResult {
	result := types.MeasurementResult{
		TotalSamples: len(samples),
		Samples:      samples,
	}

	var sum, min, max float64
	for _, sample := range samples {
		if sample.Failed {
			result.FailCount++
			continue
		}
		if result.SuccessCount == 0 || sample.LatencyMs < min {
			min = sample.LatencyMs
		}
		if result.SuccessCount == 0 || sample.LatencyMs > max {
			max = sample.LatencyMs
		}
		sum += sample.LatencyMs
		result.SuccessCount++
	}

	if result.SuccessCount > 0 {
		avg := sum / float64(result.SuccessCount)
		minCopy, maxCopy := min, max
		result.AvgLatencyMs = &avg
		result.MinLatencyMs = &minCopy
		result.MaxLatencyMs = &maxCopy
	}
	return result
}
